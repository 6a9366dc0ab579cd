// Package config loads application configuration from file, environment,
// and defaults using Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/immunization-audit-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/immunization-audit-server/")

	viper.SetEnvPrefix("IMMUNIZATION_AUDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars cover everything.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.rate_limit", 50.0)
	viper.SetDefault("server.rate_burst", 100)

	// Dataset defaults
	viper.SetDefault("dataset.source", "./data/immunizations.json")
	viper.SetDefault("dataset.fetch_timeout", "30s")
	viper.SetDefault("dataset.fetch_retries", 3)
	viper.SetDefault("dataset.rate_limit", 1.0)

	// Ledger defaults
	viper.SetDefault("ledger.backend", "sqlite")
	viper.SetDefault("ledger.sqlite_path", "./data/review-ledger.db")
	viper.SetDefault("ledger.redis_url", "redis://localhost:6379")
	viper.SetDefault("ledger.database_url", "")
	viper.SetDefault("ledger.migrations_path", "./migrations")
	viper.SetDefault("ledger.max_open_conns", 25)
	viper.SetDefault("ledger.max_idle_conns", 5)
	viper.SetDefault("ledger.conn_max_lifetime", "5m")

	// Cache defaults
	viper.SetDefault("cache.classification_size", 4096)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetLedgerConfig returns review ledger configuration
func (m *Manager) GetLedgerConfig() *domain.LedgerConfig {
	return &m.config.Ledger
}

// GetDatasetConfig returns dataset source configuration
func (m *Manager) GetDatasetConfig() *domain.DatasetConfig {
	return &m.config.Dataset
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// validLedgerBackends are the review ledger backend names.
var validLedgerBackends = map[string]bool{
	"memory": true, "sqlite": true, "redis": true, "postgres": true,
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Dataset.Source == "" {
		return fmt.Errorf("dataset source is required")
	}

	backend := strings.ToLower(config.Ledger.Backend)
	if !validLedgerBackends[backend] {
		return fmt.Errorf("invalid ledger backend: %s", config.Ledger.Backend)
	}
	switch backend {
	case "sqlite":
		if config.Ledger.SQLitePath == "" {
			return fmt.Errorf("ledger sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if config.Ledger.RedisURL == "" {
			return fmt.Errorf("ledger redis_url is required for the redis backend")
		}
	case "postgres":
		if config.Ledger.DatabaseURL == "" {
			return fmt.Errorf("ledger database_url is required for the postgres backend")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
