// Package domain contains the core entities for immunization record
// data-quality auditing: the record model, severity tiers, readiness and
// quality scoring types, and the field guidance catalog used to turn raw
// registry extracts into actionable documentation-gap reports.
package domain

import (
	"errors"
	"fmt"
)

// Tier is the coarse severity classification of a record's documentation
// gaps. Tiers are derived on every read and never stored on the record.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierClean  Tier = "clean"
)

// AnomalyFlag marks a (vaccine, lot) usage group as suspicious during lot
// inventory aggregation. Precedence when several apply: typo > one_off > rare.
type AnomalyFlag string

const (
	AnomalyTypo   AnomalyFlag = "typo"
	AnomalyOneOff AnomalyFlag = "one_off"
	AnomalyRare   AnomalyFlag = "rare"
	AnomalyNone   AnomalyFlag = "none"
)

// FilterMode selects which slice of the loaded collection a view operates on.
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterAttention FilterMode = "attention"
	FilterReviewed  FilterMode = "reviewed"
	FilterComplete  FilterMode = "complete"
)

// Validation errors for derived classification data.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTier       = errors.New("invalid severity tier")
	ErrInvalidFilterMode = errors.New("invalid filter mode")
	ErrRecordComplete    = errors.New("record is complete and cannot be toggled")
)

// IsValid reports whether the tier is one of the four defined severities.
func (t Tier) IsValid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow, TierClean:
		return true
	default:
		return false
	}
}

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// Rank orders tiers from most to least severe, clean last. Used for stable
// presentation ordering of severity strips and issue lists.
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 0
	case TierMedium:
		return 1
	case TierLow:
		return 2
	case TierClean:
		return 3
	default:
		return 4
	}
}

// IsValid reports whether the anomaly flag is defined.
func (f AnomalyFlag) IsValid() bool {
	switch f {
	case AnomalyTypo, AnomalyOneOff, AnomalyRare, AnomalyNone:
		return true
	default:
		return false
	}
}

// String returns the string representation of the anomaly flag.
func (f AnomalyFlag) String() string {
	return string(f)
}

// IsValid reports whether the filter mode is defined.
func (m FilterMode) IsValid() bool {
	switch m {
	case FilterAll, FilterAttention, FilterReviewed, FilterComplete:
		return true
	default:
		return false
	}
}

// ParseFilterMode converts a raw query-string value into a FilterMode.
// The empty string means "all".
func ParseFilterMode(raw string) (FilterMode, error) {
	if raw == "" {
		return FilterAll, nil
	}
	m := FilterMode(raw)
	if !m.IsValid() {
		return "", fmt.Errorf("parsing filter mode %q: %w", raw, ErrInvalidFilterMode)
	}
	return m, nil
}
