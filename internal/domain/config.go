package domain

import (
	"time"
)

// Scorer kinds
const (
	ScorerLogistic = "logistic"
	ScorerRemote   = "remote"
)

// Sink kinds
const (
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
	SinkWebhook  = "webhook"
	SinkNone     = "none"
)

// Config represents the main application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Scorer      ScorerConfig   `mapstructure:"scorer"`
	Sink        SinkConfig     `mapstructure:"sink"`
	Session     SessionConfig  `mapstructure:"session"`
	Triggers    TriggerConfig  `mapstructure:"triggers"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second per client
	RateBurst      int           `mapstructure:"rate_burst"`
	TLSEnabled     bool          `mapstructure:"tls_enabled"`
	CertFile       string        `mapstructure:"cert_file"`
	KeyFile        string        `mapstructure:"key_file"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`

	// MemoryEntries bounds the in-process verdict tier in front of Redis.
	MemoryEntries int           `mapstructure:"memory_entries"`
	MemoryTTL     time.Duration `mapstructure:"memory_ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ScorerConfig selects and tunes the risk scorer.
type ScorerConfig struct {
	Kind       string        `mapstructure:"kind"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	Iterations int           `mapstructure:"iterations"`
}

// SinkConfig selects and tunes the symptom log sink.
type SinkConfig struct {
	Kind       string        `mapstructure:"kind"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	WebhookURL string        `mapstructure:"webhook_url"`
	RateLimit  int           `mapstructure:"rate_limit"`
}

// TriggerConfig overrides the free-text trigger keywords. An empty list keeps
// DefaultTriggerKeywords.
type TriggerConfig struct {
	Keywords []string `mapstructure:"keywords"`
}

// SessionConfig bounds per-session state.
type SessionConfig struct {
	MaxSessions int `mapstructure:"max_sessions"`
	Window      int `mapstructure:"window"`
}
