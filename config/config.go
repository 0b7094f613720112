/*
Package config loads process configuration and constructs the logger.

PURPOSE:
  Environment-driven configuration with a .env fallback for development.
  Command-line flags in cmd/server take precedence over everything here.

VARIABLES:
  PORT              HTTP server port (default 8080)
  DB_PATH           SQLite database path (default ledger.db)
  LEDGER_USER_ID    User scope for the single-user deployment (default "default")
  MILEAGE_API_URL   Distance service base URL (empty disables mileage)
  MILEAGE_API_KEY   Distance service API key
  LOG_LEVEL         logrus level name (default "info")
*/
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port          int
	DBPath        string
	UserID        string
	MileageAPIURL string
	MileageAPIKey string
	LogLevel      string
}

// Load reads configuration from the environment, after loading .env if one
// exists (missing .env is not an error).
func Load() Config {
	godotenv.Load()

	return Config{
		Port:          envInt("PORT", 8080),
		DBPath:        env("DB_PATH", "ledger.db"),
		UserID:        env("LEDGER_USER_ID", "default"),
		MileageAPIURL: env("MILEAGE_API_URL", ""),
		MileageAPIKey: env("MILEAGE_API_KEY", ""),
		LogLevel:      env("LOG_LEVEL", "info"),
	}
}

// NewLogger builds a JSON-formatted logrus logger at the configured level.
// An unrecognized level name falls back to info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
