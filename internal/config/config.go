package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default window during which review reminders may be sent
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	TelegramToken string
	DBType        string // "sqlite" or "postgres"
	DatabasePath  string // sqlite file path
	DatabaseURL   string // postgres connection URL
	// Hour-of-day window for sending review reminders
	NotificationStartHour int
	NotificationEndHour   int
}

// Load reads configuration from the environment, providing sensible defaults.
// A .env file is honored if present.
func Load() (*Config, error) {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		DBType:                getEnv("DB_TYPE", "sqlite"),
		DatabasePath:          getEnv("DATABASE_PATH", "data/studybot.db"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		NotificationStartHour: getEnvInt("NOTIFICATION_START_HOUR", DefaultNotificationStartHour),
		NotificationEndHour:   getEnvInt("NOTIFICATION_END_HOUR", DefaultNotificationEndHour),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	if cfg.DBType == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set for DB_TYPE=postgres")
	}

	return cfg, nil
}

// Driver returns the database/sql driver name for the configured DB type.
func (c *Config) Driver() string {
	if c.DBType == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

// DSN returns the data source name for the configured DB type.
func (c *Config) DSN() string {
	if c.DBType == "postgres" {
		return c.DatabaseURL
	}
	return c.DatabasePath
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 && n <= 23 {
			return n
		}
	}
	return fallback
}
