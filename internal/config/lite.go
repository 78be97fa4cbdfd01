// Package config provides configuration management for the flare risk servers.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/flare-risk-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the symptom log and exports

	// Session settings
	MaxSessions int // Sessions kept in memory before the least recent is evicted
	Window      int // Records kept per session

	// Pipeline settings
	ScorerIterations int           // Gradient steps for the reference model
	SinkTimeout      time.Duration // Budget for one symptom log append

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".flare-risk")

	return &LiteConfig{
		DataDir:          dataDir,
		MaxSessions:      1024,
		Window:           30,
		ScorerIterations: 2000,
		SinkTimeout:      10 * time.Second,
		Transport:        "stdio",
		HTTPPort:         8080,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("FLARE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Sessions
	if n, ok := positiveInt("FLARE_MAX_SESSIONS"); ok {
		cfg.MaxSessions = n
	}
	if n, ok := positiveInt("FLARE_WINDOW"); ok && n <= domain.RollingLogLimit {
		cfg.Window = n
	}

	// Pipeline
	if n, ok := positiveInt("FLARE_SCORER_ITERATIONS"); ok {
		cfg.ScorerIterations = n
	}
	if v := os.Getenv("FLARE_SINK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SinkTimeout = d
		}
	}

	// Transport
	if v := os.Getenv("FLARE_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if n, ok := positiveInt("FLARE_HTTP_PORT"); ok {
		cfg.HTTPPort = n
	}

	// Logging
	if v := os.Getenv("FLARE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLARE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

func positiveInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SymptomLogDBPath returns the path to the symptom log SQLite database.
func (c *LiteConfig) SymptomLogDBPath() string {
	return filepath.Join(c.DataDir, "symptom_log.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
