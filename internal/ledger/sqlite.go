package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the ReviewLedger interface using SQLite. This is
// the default backend for single-node deployments: one file, no external
// service.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite review ledger.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// createSchema creates the review flag table and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS review_flags (
		doc_id TEXT PRIMARY KEY,
		reviewed INTEGER NOT NULL DEFAULT 0,
		reviewed_at TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_review_flags_reviewed ON review_flags(reviewed);
	`

	_, err := db.Exec(schema)
	return err
}

// IsReviewed reports the acknowledged state for a record. Backend failures
// read as not-reviewed.
func (s *SQLiteStore) IsReviewed(ctx context.Context, docID string) bool {
	var reviewed int
	err := s.db.QueryRowContext(ctx,
		"SELECT reviewed FROM review_flags WHERE doc_id = ?", docID,
	).Scan(&reviewed)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		s.logger.WithError(err).WithField("doc_id", docID).Warn("Ledger read failed, treating as not reviewed")
		return false
	}
	return reviewed == 1
}

// SetReviewed toggles the acknowledged state, stamping the current time on
// true and clearing the timestamp on false.
func (s *SQLiteStore) SetReviewed(ctx context.Context, docID string, reviewed bool) error {
	now := time.Now()

	var reviewedAt sql.NullString
	flag := 0
	if reviewed {
		flag = 1
		reviewedAt = sql.NullString{String: now.Format(timestampLayout), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_flags (doc_id, reviewed, reviewed_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			reviewed = excluded.reviewed,
			reviewed_at = excluded.reviewed_at,
			updated_at = excluded.updated_at
	`, docID, flag, reviewedAt, now)
	if err != nil {
		return fmt.Errorf("failed to set reviewed flag: %w", err)
	}
	return nil
}

// ReviewedAt returns the acknowledgment timestamp, ok=false when absent or
// when the backend fails.
func (s *SQLiteStore) ReviewedAt(ctx context.Context, docID string) (time.Time, bool) {
	var reviewedAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT reviewed_at FROM review_flags WHERE doc_id = ? AND reviewed = 1", docID,
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

	ts, err := time.Parse(timestampLayout, reviewedAt.String)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Count returns the number of reviewed records, for operational visibility.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM review_flags WHERE reviewed = 1").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
