package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/quickhitters/clubhouse/client"
	"github.com/quickhitters/clubhouse/config"
	"github.com/quickhitters/clubhouse/media"
	"github.com/quickhitters/clubhouse/notifier"
	"github.com/quickhitters/clubhouse/roster"
	"github.com/quickhitters/clubhouse/schedule"
	"github.com/quickhitters/clubhouse/storage"
	"github.com/quickhitters/clubhouse/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	log.Println("Loaded configuration from environment variables")

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := storage.NewBoltStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Error initializing storage: %v", err)
	}
	defer db.Close()

	mediaStore, err := media.NewStore(cfg.MediaDir, db)
	if err != nil {
		log.Fatalf("Error initializing media store: %v", err)
	}

	var notifiers []notifier.Notifier

	if cfg.EmailEnabled {
		emailNotifier := notifier.NewEmailNotifier(notifier.EmailConfig{
			SMTPHost: cfg.SMTPHost,
			SMTPPort: cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			ClubName: cfg.ClubName,
			Storage:  db,
		})
		notifiers = append(notifiers, emailNotifier)
		log.Println("Email notifications enabled")
	}

	if cfg.DiscordEnabled {
		discordNotifier, err := notifier.NewDiscordNotifier(cfg.DiscordToken)
		if err != nil {
			log.Fatalf("Error starting discord notifier: %v", err)
		}
		defer discordNotifier.Close()
		notifiers = append(notifiers, discordNotifier)
		log.Println("Discord announcements enabled")
	}

	if len(notifiers) == 0 {
		log.Println("WARNING: No notifiers configured. Signups will be tracked but nobody gets pinged.")
	}

	loader := schedule.NewLoader(client.NewFeedClient(cfg.FeedURL))
	reconciler := roster.New(db, loader, notifiers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reconciler.Reload(ctx); err != nil {
		log.Printf("Error loading tee sheet at startup: %v", err)
	}

	go reconciler.Run(ctx)

	webServer := web.NewServer(reconciler, mediaStore, db, cfg.ClubName, cfg.WebAddr, []byte(cfg.CSRFKey), cfg.CSRFSecure)
	webServer.SetNotifiers(notifiers)
	go webServer.Start()

	log.Printf("Starting %s clubhouse", cfg.ClubName)
	log.Printf("Tee sheet feed: %s", cfg.FeedURL)
	log.Printf("Database: %s", cfg.DatabasePath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down clubhouse...")
}
