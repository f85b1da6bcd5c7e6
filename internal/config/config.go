package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// DBPath is the SQLite database file.
	DBPath string

	// Port the HTTP API listens on.
	Port string

	// Timezone for region-local civil time.
	Timezone string

	// Workers bounds concurrent per-region pipeline tasks.
	Workers int

	// PollInterval controls how often the hourly pipeline fires.
	PollInterval time.Duration

	// HistoryYears of station data requested on a region's first fetch.
	HistoryYears int
}

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg := &Config{
		DBPath:       getenvDefault("CLIMARG_DB", "climarg.db"),
		Port:         getenvDefault("CLIMARG_PORT", "8080"),
		Timezone:     getenvDefault("CLIMARG_TZ", "America/Argentina/Buenos_Aires"),
		Workers:      getenvInt("CLIMARG_WORKERS", 4),
		HistoryYears: getenvInt("CLIMARG_HISTORY_YEARS", 2),
	}

	intervalStr := getenvDefault("CLIMARG_POLL_INTERVAL", "1h")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CLIMARG_POLL_INTERVAL: %w", err)
	}
	cfg.PollInterval = interval

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("CLIMARG_WORKERS must be at least 1, got %d", cfg.Workers)
	}
	if cfg.HistoryYears < 1 {
		return nil, fmt.Errorf("CLIMARG_HISTORY_YEARS must be at least 1, got %d", cfg.HistoryYears)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
