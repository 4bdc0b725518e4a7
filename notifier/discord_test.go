package notifier

import (
	"strconv"
	"sync"
	"testing"
)

// Guild events arrive on discordgo's goroutines while Notify reads the
// channel map from request goroutines; interleaving them must not trip the
// runtime's concurrent map check.
func TestDiscordChannelMapIsConcurrencySafe(t *testing.T) {
	n := &DiscordNotifier{channelIds: map[string]string{}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(2)

		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				guild := "guild-" + strconv.Itoa(i)
				n.addChannel(guild, "channel-"+strconv.Itoa(j))
				n.removeGuild(guild)
			}
		}()

		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				n.channels()
			}
		}()
	}
	wg.Wait()

	if got := n.channels(); len(got) != 0 {
		t.Errorf("channels() = %v, want empty after matched add/remove pairs", got)
	}
}
