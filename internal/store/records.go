// Package store holds the loaded immunization record collection and the
// active view selection. The raw collection is read-only after load; the
// selection is the only mutable piece and changes one field at a time under
// a lock, so rapid repeated UI-driven updates are safe.
package store

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/immunization-audit-server/internal/domain"
)

// Selection is the user-chosen view over the collection: an optional
// administered-date range (inclusive, YYYY-MM-DD) and a filter mode.
type Selection struct {
	From string            `json:"from,omitempty"`
	To   string            `json:"to,omitempty"`
	Mode domain.FilterMode `json:"mode"`
}

// RecordStore owns the immutable record collection for the session plus the
// current selection. All derived views are recomputed from scratch on read.
type RecordStore struct {
	logger *logrus.Logger

	mu        sync.RWMutex
	records   []domain.ImmunizationRecord
	byID      map[string]int
	selection Selection
}

// NewRecordStore creates an empty record store.
func NewRecordStore(logger *logrus.Logger) *RecordStore {
	return &RecordStore{
		logger:    logger,
		byID:      make(map[string]int),
		selection: Selection{Mode: domain.FilterAll},
	}
}

// SetRecords installs the loaded collection. Called once at startup; the
// records themselves are never mutated afterwards.
func (s *RecordStore) SetRecords(records []domain.ImmunizationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = records
	s.byID = make(map[string]int, len(records))
	for i := range records {
		if records[i].DocID != "" {
			s.byID[records[i].DocID] = i
		}
	}

	s.logger.WithField("records", len(records)).Info("Record collection loaded")
}

// Len returns the size of the loaded collection.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record with the given doc_id.
func (s *RecordStore) Get(docID string) (*domain.ImmunizationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[docID]
	if !ok {
		return nil, false
	}
	record := s.records[idx]
	return &record, true
}

// SetSelection replaces the active selection.
func (s *RecordStore) SetSelection(sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel.Mode == "" {
		sel.Mode = domain.FilterAll
	}
	s.selection = sel
}

// Selection returns the active selection.
func (s *RecordStore) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// ActiveSubset returns the records matching the given selection's date range
// plus an optional caller predicate (used for ledger- and
// classification-aware filter modes). When a date range is set, records
// whose administered date is missing or unparseable are excluded; without a
// range they pass through.
func (s *RecordStore) ActiveSubset(sel Selection, keep func(*domain.ImmunizationRecord) bool) []domain.ImmunizationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ImmunizationRecord, 0, len(s.records))
	ranged := sel.From != "" || sel.To != ""

	for i := range s.records {
		record := &s.records[i]
		if ranged {
			day, ok := record.AdministeredDay()
			if !ok {
				continue
			}
			if sel.From != "" && day < sel.From {
				continue
			}
			if sel.To != "" && day > sel.To {
				continue
			}
		}
		if keep != nil && !keep(record) {
			continue
		}
		out = append(out, *record)
	}
	return out
}
