package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LiteConfig configures the embedded-SQLite server. It reads the environment
// directly so the lite binary stays a single self-contained process with no
// config file.
type LiteConfig struct {
	Host       string
	Port       int
	DBPath     string
	SessionTTL time.Duration
	LogLevel   string
}

// LoadLiteConfig reads the lite server configuration from WATER_ML_LITE_*
// environment variables, falling back to local defaults.
func LoadLiteConfig() (*LiteConfig, error) {
	cfg := &LiteConfig{
		Host:       envOr("WATER_ML_LITE_HOST", "127.0.0.1"),
		Port:       8080,
		DBPath:     envOr("WATER_ML_LITE_DB_PATH", "data/water_ml.db"),
		SessionTTL: 720 * time.Hour,
		LogLevel:   envOr("WATER_ML_LITE_LOG_LEVEL", "info"),
	}

	if v := os.Getenv("WATER_ML_LITE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid WATER_ML_LITE_PORT: %q", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("WATER_ML_LITE_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid WATER_ML_LITE_SESSION_TTL: %q", v)
		}
		cfg.SessionTTL = ttl
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
