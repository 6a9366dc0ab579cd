package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immunization-audit-server/internal/domain"
)

func validConfig() *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{
			Host: "0.0.0.0", Port: 8080,
			ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second,
			RateLimit: 50, RateBurst: 100,
		},
		Dataset: domain.DatasetConfig{Source: "./data/immunizations.json"},
		Ledger:  domain.LedgerConfig{Backend: "sqlite", SQLitePath: "./data/review-ledger.db"},
		Cache:   domain.CacheConfig{ClassificationSize: 4096},
		Logging: domain.LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestNewManagerDefaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 50.0, cfg.Server.RateLimit)
	assert.Equal(t, "sqlite", cfg.Ledger.Backend)
	assert.Equal(t, 4096, cfg.Cache.ClassificationSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.NoError(t, manager.Validate(), "defaults are a valid configuration")
}

func TestManagerAccessors(t *testing.T) {
	manager := &Manager{config: validConfig()}

	assert.Equal(t, 8080, manager.GetServerConfig().Port)
	assert.Equal(t, "sqlite", manager.GetLedgerConfig().Backend)
	assert.Equal(t, "./data/immunizations.json", manager.GetDatasetConfig().Source)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{
			"valid config",
			func(c *domain.Config) {},
			"",
		},
		{
			"port zero",
			func(c *domain.Config) { c.Server.Port = 0 },
			"invalid server port",
		},
		{
			"port out of range",
			func(c *domain.Config) { c.Server.Port = 70000 },
			"invalid server port",
		},
		{
			"missing dataset source",
			func(c *domain.Config) { c.Dataset.Source = "" },
			"dataset source is required",
		},
		{
			"unknown ledger backend",
			func(c *domain.Config) { c.Ledger.Backend = "etcd" },
			"invalid ledger backend",
		},
		{
			"backend name is case-insensitive",
			func(c *domain.Config) { c.Ledger.Backend = "SQLite" },
			"",
		},
		{
			"sqlite without path",
			func(c *domain.Config) { c.Ledger.SQLitePath = "" },
			"sqlite_path is required",
		},
		{
			"redis without url",
			func(c *domain.Config) {
				c.Ledger.Backend = "redis"
				c.Ledger.RedisURL = ""
			},
			"redis_url is required",
		},
		{
			"postgres without url",
			func(c *domain.Config) {
				c.Ledger.Backend = "postgres"
				c.Ledger.DatabaseURL = ""
			},
			"database_url is required",
		},
		{
			"memory backend needs nothing else",
			func(c *domain.Config) {
				c.Ledger = domain.LedgerConfig{Backend: "memory"}
			},
			"",
		},
		{
			"bad log level",
			func(c *domain.Config) { c.Logging.Level = "verbose" },
			"invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			manager := &Manager{config: cfg}

			err := manager.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
