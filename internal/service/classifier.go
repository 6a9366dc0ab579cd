// Package service implements the audit core: per-record severity
// classification and readiness scoring, set-level aggregation with lot
// anomaly detection, and deterministic narrative seeding.
package service

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/immunization-audit-server/internal/domain"
)

// dateSanityPenalty is subtracted from the readiness score when the
// expiration date precedes the administered date.
const dateSanityPenalty = 15

// readinessWeights is the fixed weighted field list for the per-record
// readiness score. The weights sum to 100: a record missing every weighted
// field with no date conflict scores exactly 0.
var readinessWeights = []struct {
	field  string
	weight int
	value  func(*domain.ImmunizationRecord) string
}{
	{"lot_number", 25, func(r *domain.ImmunizationRecord) string { return r.LotNumber }},
	{"ndc", 25, func(r *domain.ImmunizationRecord) string { return r.NDC }},
	{"expiration_date", 10, func(r *domain.ImmunizationRecord) string { return r.ExpirationDate }},
	{"vfc_status", 15, func(r *domain.ImmunizationRecord) string { return r.VFCStatus }},
	{"funding_source", 15, func(r *domain.ImmunizationRecord) string { return r.FundingSource }},
	{"mobile", 5, func(r *domain.ImmunizationRecord) string { return r.Mobile }},
	{"email", 5, func(r *domain.ImmunizationRecord) string { return r.Email }},
}

// issueChecks enumerates the fields surfaced in guidance panels, in
// severity order. Unlike tier classification this list does not
// short-circuit: every applicable issue is reported.
var issueChecks = []struct {
	field string
	tier  domain.Tier
	value func(*domain.ImmunizationRecord) string
}{
	{"vfc_status", domain.TierHigh, func(r *domain.ImmunizationRecord) string { return r.VFCStatus }},
	{"funding_source", domain.TierHigh, func(r *domain.ImmunizationRecord) string { return r.FundingSource }},
	{"race", domain.TierMedium, func(r *domain.ImmunizationRecord) string { return r.Race }},
	{"ethnicity", domain.TierMedium, func(r *domain.ImmunizationRecord) string { return r.Ethnicity }},
	{"mobile", domain.TierLow, func(r *domain.ImmunizationRecord) string { return r.Mobile }},
	{"email", domain.TierLow, func(r *domain.ImmunizationRecord) string { return r.Email }},
}

// FieldIssue is one concrete missing-field finding with its guidance text.
type FieldIssue struct {
	Field  string      `json:"field"`
	Label  string      `json:"label"`
	Tier   domain.Tier `json:"tier"`
	Impact string      `json:"impact,omitempty"`
	Fix    string      `json:"fix,omitempty"`
}

// Assessment bundles every per-record derived value computed by the
// classifier. Records are immutable, so an assessment is a pure function of
// the record and safe to cache by doc_id.
type Assessment struct {
	DocID          string       `json:"doc_id"`
	Tier           domain.Tier  `json:"tier"`
	ReadinessScore int          `json:"readiness_score"`
	Complete       bool         `json:"complete"`
	Issues         []FieldIssue `json:"issues,omitempty"`
}

// ClassifierService computes per-record severity, readiness, completeness,
// and issue lists. It is the single canonical severity policy: every call
// site (row highlighting, severity strips, tier counts) goes through it.
type ClassifierService struct {
	logger *logrus.Logger
	cache  *lru.Cache[string, *Assessment]
}

// NewClassifierService creates a new classifier service. cacheSize bounds
// the memoized assessments; a non-positive size disables memoization.
func NewClassifierService(logger *logrus.Logger, cacheSize int) (*ClassifierService, error) {
	c := &ClassifierService{logger: logger}
	if cacheSize > 0 {
		cache, err := lru.New[string, *Assessment](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating assessment cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// ClassifySeverity assigns a severity tier using precedence-ordered rules,
// first match wins: missing eligibility or funding data is high, missing
// demographics is medium, missing contact is low, anything else is clean.
func (c *ClassifierService) ClassifySeverity(record *domain.ImmunizationRecord) domain.Tier {
	switch {
	case domain.FieldMissing(record.VFCStatus) || domain.FieldMissing(record.FundingSource):
		return domain.TierHigh
	case domain.FieldMissing(record.Race) || domain.FieldMissing(record.Ethnicity):
		return domain.TierMedium
	case domain.FieldMissing(record.Mobile) || domain.FieldMissing(record.Email):
		return domain.TierLow
	default:
		return domain.TierClean
	}
}

// ReadinessScore computes the per-record weighted completeness score in
// [0,100]: 100 minus the weight of each missing field, minus a flat
// date-sanity penalty when the expiration date precedes administration.
func (c *ClassifierService) ReadinessScore(record *domain.ImmunizationRecord) int {
	score := 100
	for _, w := range readinessWeights {
		if domain.FieldMissing(w.value(record)) {
			score -= w.weight
		}
	}
	if record.DateConflict() {
		score -= dateSanityPenalty
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// IsComplete reports whether none of the seven weighted fields is missing.
// The date-sanity penalty does not affect completeness.
func (c *ClassifierService) IsComplete(record *domain.ImmunizationRecord) bool {
	for _, w := range readinessWeights {
		if domain.FieldMissing(w.value(record)) {
			return false
		}
	}
	return true
}

// EvaluateIssues enumerates every applicable missing-field issue with its
// guidance text, independent of the tier precedence short-circuit.
func (c *ClassifierService) EvaluateIssues(record *domain.ImmunizationRecord) []FieldIssue {
	issues := make([]FieldIssue, 0, len(issueChecks))
	for _, check := range issueChecks {
		if !domain.FieldMissing(check.value(record)) {
			continue
		}
		issue := FieldIssue{Field: check.field, Tier: check.tier}
		if g, ok := domain.GuidanceFor(check.field); ok {
			issue.Label = g.Label
			issue.Impact = g.Impact
			issue.Fix = g.Fix
		}
		issues = append(issues, issue)
	}
	return issues
}

// Assess computes the full assessment for a record, memoized by doc_id.
func (c *ClassifierService) Assess(record *domain.ImmunizationRecord) *Assessment {
	if c.cache != nil && record.DocID != "" {
		if cached, ok := c.cache.Get(record.DocID); ok {
			return cached
		}
	}

	assessment := &Assessment{
		DocID:          record.DocID,
		Tier:           c.ClassifySeverity(record),
		ReadinessScore: c.ReadinessScore(record),
		Complete:       c.IsComplete(record),
		Issues:         c.EvaluateIssues(record),
	}

	if c.cache != nil && record.DocID != "" {
		c.cache.Add(record.DocID, assessment)
	}
	return assessment
}
