package domain

import (
	"context"
	"time"
)

// ReviewLedger is the capability interface for the persisted reviewed-flag
// store. Read paths degrade silently: a backend failure reads as
// not-reviewed so classification and aggregation are never blocked.
type ReviewLedger interface {
	// IsReviewed reports the acknowledged state for a record identifier.
	IsReviewed(ctx context.Context, docID string) bool
	// SetReviewed toggles the acknowledged state. Setting true stamps the
	// current time; setting false clears the timestamp.
	SetReviewed(ctx context.Context, docID string, reviewed bool) error
	// ReviewedAt returns the acknowledgment timestamp, ok=false when absent.
	ReviewedAt(ctx context.Context, docID string) (time.Time, bool)
	// Close releases backend resources.
	Close() error
}

// RecordSource loads the immunization record extract once at startup.
type RecordSource interface {
	Load(ctx context.Context) ([]ImmunizationRecord, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetLedgerConfig() *LedgerConfig
	GetDatasetConfig() *DatasetConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
