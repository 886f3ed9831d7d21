package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration read from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// Admin endpoints reject requests without this key. Empty disables the check.
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Cron expression for the scheduled publication run.
	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"*/5 * * * *"`

	// Upper bound for a single post reconciliation inside a trigger run.
	ReconcileTimeout time.Duration `envconfig:"RECONCILE_TIMEOUT" default:"10s"`

	// Campaign window for the editorial calendar: first day of week 1 plus
	// the number of 7-day weeks the window spans.
	CampaignStart string `envconfig:"CAMPAIGN_START" default:"2026-01-05"`
	CampaignWeeks int    `envconfig:"CAMPAIGN_WEEKS" default:"12"`

	// Optional webhook notified after a post goes live (fire-and-forget).
	PublishWebhookURL string `envconfig:"PUBLISH_WEBHOOK_URL"`
}

// DSN returns the Data Source Name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// CampaignStartDate parses CAMPAIGN_START as a UTC calendar date.
func (c *Config) CampaignStartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.CampaignStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid CAMPAIGN_START %q: %w", c.CampaignStart, err)
	}
	return t.UTC(), nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
