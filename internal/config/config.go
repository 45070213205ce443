// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"os"
)

type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string
	// DataDir is where retro snapshot files are written and loaded from.
	DataDir string
	// PublicDir optionally serves the bundled UI assets. Empty disables it.
	PublicDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8765"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		DataDir:   getEnv("DATA_DIR", "."),
		PublicDir: getEnv("PUBLIC_DIR", ""),
	}

	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("DATA_DIR %q is not usable: %w", cfg.DataDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("DATA_DIR %q is not a directory", cfg.DataDir)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
