package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
// It is constructed once at startup and passed to components by value.
type Config struct {
	SlackBotToken      string `envconfig:"SLACK_BOT_TOKEN" required:"true"`
	SlackSigningSecret string `envconfig:"SLACK_SIGNING_SECRET" required:"true"`
	ManagerUserIDs     string `envconfig:"SLACK_MANAGER_USER_ID"` // comma-separated
	ExcludedUserIDs    string `envconfig:"EXCLUDED_USER_IDS"`     // comma-separated

	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	ExemptionFile string `envconfig:"EXEMPTION_FILE" default:"./data/exempted_users.json"`

	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Timezone is the single authority for both period-boundary math and
	// display formatting. Timestamps are stored in UTC.
	Timezone string `envconfig:"TIMEZONE" default:"Asia/Kolkata"`

	ReminderHour  int `envconfig:"REMINDER_HOUR" default:"23"`        // local hour for reminder triggers
	FollowUpDelay int `envconfig:"FOLLOWUP_DELAY_SEC" default:"3600"` // seconds between reminder and follow-up
}

// Load reads a local .env file (if present) and the environment into Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	// envconfig's required tag only rejects unset variables; set-but-empty
	// credentials must fail here too.
	if cfg.SlackBotToken == "" {
		return cfg, errors.New("SLACK_BOT_TOKEN must not be empty")
	}
	if cfg.SlackSigningSecret == "" {
		return cfg, errors.New("SLACK_SIGNING_SECRET must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL must not be empty")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.ReminderHour < 0 || cfg.ReminderHour > 23 {
		return cfg, fmt.Errorf("REMINDER_HOUR out of range: %d", cfg.ReminderHour)
	}
	if cfg.FollowUpDelay < 0 {
		return cfg, fmt.Errorf("FOLLOWUP_DELAY_SEC must be non-negative: %d", cfg.FollowUpDelay)
	}
	return cfg, nil
}

// Location resolves the configured timezone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Managers returns the configured manager user IDs.
func (c Config) Managers() []string {
	return splitIDs(c.ManagerUserIDs)
}

// Excluded returns the env-level exempted user IDs.
func (c Config) Excluded() []string {
	return splitIDs(c.ExcludedUserIDs)
}

// IsManager reports whether userID is one of the configured managers.
func (c Config) IsManager(userID string) bool {
	for _, id := range c.Managers() {
		if id == userID {
			return true
		}
	}
	return false
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
