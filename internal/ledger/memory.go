package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory ReviewLedger. It satisfies the same contract
// as the persistent backends and is the fake used throughout the test
// suites; nothing survives process exit.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// IsReviewed reports the acknowledged state for a record.
func (m *MemoryStore) IsReviewed(_ context.Context, docID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[docID].Reviewed
}

// SetReviewed toggles the acknowledged state, stamping the current time on
// true and clearing the timestamp on false.
func (m *MemoryStore) SetReviewed(_ context.Context, docID string, reviewed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := Entry{DocID: docID, Reviewed: reviewed}
	if reviewed {
		entry.ReviewedAt = time.Now()
	}
	m.entries[docID] = entry
	return nil
}

// ReviewedAt returns the acknowledgment timestamp, ok=false when absent.
func (m *MemoryStore) ReviewedAt(_ context.Context, docID string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[docID]
	if !ok || !entry.Reviewed || entry.ReviewedAt.IsZero() {
		return time.Time{}, false
	}
	return entry.ReviewedAt, true
}

// Close is a no-op for the in-memory ledger.
func (m *MemoryStore) Close() error {
	return nil
}
