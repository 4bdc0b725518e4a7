package notifier

import (
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/quickhitters/clubhouse/models"
)

const channelName = "tee-times"

// DiscordNotifier announces every signup and withdrawal to the tee-times
// channel of each guild the bot is in. Guild events arrive on discordgo's
// own goroutines while Notify runs on request goroutines, so channelIds is
// guarded by mu.
type DiscordNotifier struct {
	session *discordgo.Session

	mu         sync.RWMutex
	channelIds map[string]string
}

func NewDiscordNotifier(token string) (*DiscordNotifier, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	n := &DiscordNotifier{session: dg, channelIds: map[string]string{}}

	dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) {
		log.Printf("Discord bot is ready")
	})

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.GuildCreate) {
		for _, channel := range r.Guild.Channels {
			if channel.Name == channelName {
				n.addChannel(channel.GuildID, channel.ID)
				log.Printf("Channel \"%s\" added for \"%s\"", channelName, r.Guild.Name)
			}
		}
	})

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.GuildDelete) {
		n.removeGuild(r.Guild.ID)
	})

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("opening discord session: %w", err)
	}

	return n, nil
}

func (n *DiscordNotifier) GetType() string {
	return "discord"
}

func (n *DiscordNotifier) addChannel(guildId, channelId string) {
	n.mu.Lock()
	n.channelIds[guildId] = channelId
	n.mu.Unlock()
}

func (n *DiscordNotifier) removeGuild(guildId string) {
	n.mu.Lock()
	delete(n.channelIds, guildId)
	n.mu.Unlock()
}

func (n *DiscordNotifier) channels() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	channelIds := make([]string, 0, len(n.channelIds))
	for _, channelId := range n.channelIds {
		channelIds = append(channelIds, channelId)
	}
	return channelIds
}

func (n *DiscordNotifier) Notify(event Event) error {
	message := n.formatMessage(event)

	for _, channelId := range n.channels() {
		if _, err := n.session.ChannelMessageSend(channelId, message); err != nil {
			return fmt.Errorf("sending message to channel %s: %w", channelId, err)
		}
	}

	return nil
}

func (n *DiscordNotifier) formatMessage(event Event) string {
	slot := event.Slot

	switch event.Action {
	case ActionWithdraw:
		return fmt.Sprintf("%s withdrew from %s %s at %s (%d/%d)",
			event.Player, slot.FormattedDate, slot.Time, slot.Course, len(slot.Players), models.MaxPlayers)
	default:
		msg := fmt.Sprintf("%s signed up for %s %s at %s (%d/%d)",
			event.Player, slot.FormattedDate, slot.Time, slot.Course, len(slot.Players), models.MaxPlayers)
		if slot.Full() {
			msg += " - foursome is full!"
		}
		return msg
	}
}

func (n *DiscordNotifier) Close() error {
	return n.session.Close()
}
