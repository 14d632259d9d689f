// Package config holds process-level configuration read from the environment.
// Runtime-tunable knobs (API keys, provider toggles, queue delays) live in the
// settings store instead, so admins can change them without a restart.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the process configuration
type Config struct {
	Port         string
	DataDir      string
	ArtworkDir   string
	DatabaseType string
	SQLitePath   string

	// Provider HTTP behavior
	UserAgent             string
	ProviderTimeoutSecs   int
	ImageDownloadMaxBytes int64
}

var current *Config

// Load builds the configuration from environment variables with defaults
func Load() *Config {
	dataDir := getEnv("HARMONIA_DATA_DIR", "./harmonia-data")

	current = &Config{
		Port:         getEnv("PORT", "8080"),
		DataDir:      dataDir,
		ArtworkDir:   getEnv("HARMONIA_ARTWORK_DIR", filepath.Join(dataDir, "artwork")),
		DatabaseType: getEnv("DATABASE_TYPE", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", filepath.Join(dataDir, "harmonia.db")),

		UserAgent:             getEnv("HARMONIA_USER_AGENT", "Harmonia/1.0 (+https://github.com/mantonx/harmonia)"),
		ProviderTimeoutSecs:   getEnvInt("HARMONIA_PROVIDER_TIMEOUT", 10),
		ImageDownloadMaxBytes: int64(getEnvInt("HARMONIA_IMAGE_MAX_BYTES", 20*1024*1024)),
	}
	return current
}

// Get returns the loaded configuration, loading it on first use
func Get() *Config {
	if current == nil {
		return Load()
	}
	return current
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
