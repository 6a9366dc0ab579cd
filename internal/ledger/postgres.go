package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements the ReviewLedger interface using PostgreSQL, for
// deployments where multiple reviewers share one ledger.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL review ledger.
// It expects the database and schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB, logger *logrus.Logger) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL review ledger from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// IsReviewed reports the acknowledged state for a record. Backend failures
// read as not-reviewed.
func (s *PostgresStore) IsReviewed(ctx context.Context, docID string) bool {
	var reviewed bool
	err := s.db.QueryRowContext(ctx,
		"SELECT reviewed FROM review_flags WHERE doc_id = $1", docID,
	).Scan(&reviewed)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		s.logger.WithError(err).WithField("doc_id", docID).Warn("Ledger read failed, treating as not reviewed")
		return false
	}
	return reviewed
}

// SetReviewed toggles the acknowledged state via upsert. Last write wins;
// there is no merge semantics for concurrent toggles of the same record.
func (s *PostgresStore) SetReviewed(ctx context.Context, docID string, reviewed bool) error {
	now := time.Now()

	var reviewedAt sql.NullTime
	if reviewed {
		reviewedAt = sql.NullTime{Time: now, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_flags (doc_id, reviewed, reviewed_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doc_id) DO UPDATE SET
			reviewed = EXCLUDED.reviewed,
			reviewed_at = EXCLUDED.reviewed_at,
			updated_at = EXCLUDED.updated_at
	`, docID, reviewed, reviewedAt, now)
	if err != nil {
		return fmt.Errorf("failed to set reviewed flag: %w", err)
	}
	return nil
}

// ReviewedAt returns the acknowledgment timestamp, ok=false when absent.
func (s *PostgresStore) ReviewedAt(ctx context.Context, docID string) (time.Time, bool) {
	var reviewedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT reviewed_at FROM review_flags WHERE doc_id = $1 AND reviewed = TRUE", docID,
	).Scan(&reviewedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false
	}
	if err != nil {
		s.logger.WithError(err).WithField("doc_id", docID).Warn("Ledger timestamp read failed")
		return time.Time{}, false
	}
	if !reviewedAt.Valid {
		return time.Time{}, false
	}
	return reviewedAt.Time, true
}

// Count returns the number of reviewed records, for operational visibility.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM review_flags WHERE reviewed = TRUE").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
