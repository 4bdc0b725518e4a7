package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Feed
	FeedURL string `envconfig:"FEED_URL" default:"https://sheetdb.io/api/v1/4qv4g5mlcy4t5"`

	// Web
	WebAddr string `envconfig:"WEB_ADDR" default:":8080"`
	CSRFKey string `envconfig:"CSRF_KEY" default:"quick-hitters-dev-csrf-key-32by!"`
	// CSRFSecure marks the CSRF cookie Secure; set it wherever the site is
	// served over TLS.
	CSRFSecure bool `envconfig:"CSRF_SECURE" default:"false"`

	// Storage
	DatabasePath string `envconfig:"DB_PATH" default:"./clubhouse.db"`
	MediaDir     string `envconfig:"MEDIA_DIR" default:"./scorecards"`

	// Email notifications (sent when a tee time fills up)
	EmailEnabled bool   `envconfig:"EMAIL_ENABLED" default:"false"`
	SMTPHost     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     string `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	EmailFrom    string `envconfig:"EMAIL_FROM"`

	// Discord announcements (every signup and withdrawal)
	DiscordEnabled bool   `envconfig:"DISCORD_ENABLED" default:"false"`
	DiscordToken   string `envconfig:"DISCORD_TOKEN"`

	ClubName string `envconfig:"CLUB_NAME" default:"Quick Hitters Golf Club"`
}

func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("FEED_URL is required")
	}

	if len(c.CSRFKey) != 32 {
		return fmt.Errorf("CSRF_KEY must be exactly 32 bytes, got %d", len(c.CSRFKey))
	}

	if c.EmailEnabled {
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when email is enabled")
		}

		if c.EmailFrom == "" {
			return fmt.Errorf("EMAIL_FROM is required when email is enabled")
		}
	}

	if c.DiscordEnabled && c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required when discord is enabled")
	}

	return nil
}
