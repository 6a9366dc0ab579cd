// Package ledger implements the persisted reviewed-flag store behind the
// domain.ReviewLedger capability interface. Four backends share identical
// semantics: an in-memory fake for tests, SQLite for single-node
// deployments, Redis, and PostgreSQL.
//
// Semantics common to every backend: setting reviewed=true stamps the
// current time, setting false clears the timestamp, repeated sets are
// idempotent with last-write-wins on the timestamp, and read failures
// degrade to "not reviewed" so classification is never blocked.
package ledger

import "time"

// Entry is one reviewed-flag record as stored by a backend.
type Entry struct {
	DocID      string    `json:"doc_id"`
	Reviewed   bool      `json:"reviewed"`
	ReviewedAt time.Time `json:"reviewed_at,omitempty"`
}

// timestampLayout is the wire format for persisted review timestamps.
const timestampLayout = time.RFC3339

// FlagKey returns the key-value store key for a record's reviewed flag,
// holding "1" or "0".
func FlagKey(docID string) string {
	return "resolved:" + docID
}

// TimestampKey returns the key holding the RFC3339 review timestamp. The
// key is absent while the record is un-reviewed.
func TimestampKey(docID string) string {
	return FlagKey(docID) + ":ts"
}
