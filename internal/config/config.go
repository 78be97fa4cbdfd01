package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/flare-risk-server/internal/database"
	"github.com/flare-risk-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	mu         sync.RWMutex
	configFile string
	config     *domain.Config
}

var _ domain.ConfigManager = (*Manager)(nil)

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerWithFile("")
}

// NewManagerWithFile loads configuration from an explicit file instead of
// searching the default paths. An empty path falls back to the search.
func NewManagerWithFile(path string) (*Manager, error) {
	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/flare-risk-server/")
	}

	v.SetEnvPrefix("FLARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// A searched-for file is optional; an explicit one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	return nil
}

func (m *Manager) current() *domain.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.tls_enabled", false)

	// Database defaults; only used when the audit trail or postgres sink is on
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "flare_risk")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "")

	// Cache defaults; an empty URL disables the verdict cache
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.memory_entries", 4096)
	v.SetDefault("cache.memory_ttl", "15m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Scorer defaults
	v.SetDefault("scorer.kind", domain.ScorerLogistic)
	v.SetDefault("scorer.base_url", "")
	v.SetDefault("scorer.api_key", "")
	v.SetDefault("scorer.timeout", "5s")
	v.SetDefault("scorer.rate_limit", 20)
	v.SetDefault("scorer.cache_ttl", "1h")
	v.SetDefault("scorer.iterations", 2000)

	// Symptom log sink defaults
	v.SetDefault("sink.kind", domain.SinkSQLite)
	v.SetDefault("sink.timeout", "10s")
	v.SetDefault("sink.sqlite_path", "")
	v.SetDefault("sink.webhook_url", "")
	v.SetDefault("sink.rate_limit", 5)

	// Session defaults
	v.SetDefault("session.max_sessions", 1024)
	v.SetDefault("session.window", 30)

	// Empty keeps the built-in trigger keywords
	v.SetDefault("triggers.keywords", []string{})
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.current()
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.current().Server
}

// Reload re-reads every configuration source. The current configuration is
// kept when the new one fails to load or validate.
func (m *Manager) Reload() error {
	next := &Manager{configFile: m.configFile}
	if err := next.loadConfig(); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.mu.Lock()
	m.config = next.config
	m.mu.Unlock()
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.current()

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RateLimit < 0 {
		return fmt.Errorf("server rate limit must not be negative: %g", config.Server.RateLimit)
	}

	if m.NeedsDatabase() {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	switch config.Scorer.Kind {
	case domain.ScorerLogistic:
		if config.Scorer.Iterations <= 0 {
			return fmt.Errorf("scorer iterations must be positive: %d", config.Scorer.Iterations)
		}
	case domain.ScorerRemote:
		if config.Scorer.BaseURL == "" {
			return fmt.Errorf("scorer base URL is required for the remote scorer")
		}
	default:
		return fmt.Errorf("invalid scorer kind: %s", config.Scorer.Kind)
	}

	switch config.Sink.Kind {
	case domain.SinkSQLite, domain.SinkPostgres, domain.SinkNone:
	case domain.SinkWebhook:
		if config.Sink.WebhookURL == "" {
			return fmt.Errorf("webhook URL is required for the webhook sink")
		}
	default:
		return fmt.Errorf("invalid sink kind: %s", config.Sink.Kind)
	}

	if config.Session.MaxSessions <= 0 {
		return fmt.Errorf("session max_sessions must be positive: %d", config.Session.MaxSessions)
	}
	if config.Session.Window <= 0 || config.Session.Window > domain.RollingLogLimit {
		return fmt.Errorf("session window must be between 1 and %d: %d", domain.RollingLogLimit, config.Session.Window)
	}

	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// NeedsDatabase reports whether PostgreSQL must be reachable.
func (m *Manager) NeedsDatabase() bool {
	config := m.current()
	return config.Database.Enabled || config.Sink.Kind == domain.SinkPostgres
}

// GetDatabaseURL returns the postgres:// URL used by migrations and the
// postgres sink.
func (m *Manager) GetDatabaseURL() string {
	return database.ConfigFrom(m.current().Database).URL()
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.current().Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.current().Environment)
	return env == "development" || env == "dev" || env == ""
}
