package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

// DatasetConfig describes where the immunization record extract is loaded
// from: a local file path or an HTTP(S) URL, fetched once at startup.
type DatasetConfig struct {
	Source       string        `mapstructure:"source"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	FetchRetries int           `mapstructure:"fetch_retries"`
	RateLimit    float64       `mapstructure:"rate_limit"`
}

// LedgerConfig selects and configures the review ledger backend.
type LedgerConfig struct {
	Backend        string        `mapstructure:"backend"` // memory, sqlite, redis, postgres
	SQLitePath     string        `mapstructure:"sqlite_path"`
	RedisURL       string        `mapstructure:"redis_url"`
	DatabaseURL    string        `mapstructure:"database_url"`
	MigrationsPath string        `mapstructure:"migrations_path"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	ConnMaxLife    time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig configures the in-process classification cache.
type CacheConfig struct {
	ClassificationSize int `mapstructure:"classification_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
