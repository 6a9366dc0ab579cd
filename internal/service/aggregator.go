package service

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/immunization-audit-server/internal/domain"
	"github.com/immunization-audit-server/pkg/lotmatch"
)

// qualityWeights drives the aggregate quality score over a record set. The
// contact category counts once per record missing either contact channel.
var qualityWeights = []struct {
	category string
	weight   float64
	missing  func(*domain.ImmunizationRecord) bool
}{
	{"vfc_status", 28, func(r *domain.ImmunizationRecord) bool { return domain.FieldMissing(r.VFCStatus) }},
	{"funding_source", 24, func(r *domain.ImmunizationRecord) bool { return domain.FieldMissing(r.FundingSource) }},
	{"race", 14, func(r *domain.ImmunizationRecord) bool { return domain.FieldMissing(r.Race) }},
	{"ethnicity", 14, func(r *domain.ImmunizationRecord) bool { return domain.FieldMissing(r.Ethnicity) }},
	{"contact", 20, func(r *domain.ImmunizationRecord) bool { return r.ContactMissing() }},
}

// Lot anomaly thresholds. The dominant-lot floor keeps the typo detector
// quiet on low-volume vaccines where there is no trustworthy reference lot.
const (
	rareCountCeiling  = 3
	rareShareCeiling  = 0.02
	typoDominantFloor = 10
)

// QualityScore is the aggregate score over a record set. Available is false
// for an empty set: "no data" and "zero quality" are distinct outcomes.
type QualityScore struct {
	Value     int  `json:"value"`
	Available bool `json:"available"`
}

// Summary rolls up a filtered record set for the severity strip and the
// headline quality figure.
type Summary struct {
	Total        int                 `json:"total"`
	TierCounts   map[domain.Tier]int `json:"tier_counts"`
	QualityScore QualityScore        `json:"quality_score"`
}

// LotUsage is one (vaccine, lot) usage group with its anomaly verdict.
// Flag is the highest-precedence flag; Flags lists everything that matched.
type LotUsage struct {
	VaccineName string               `json:"vaccine_name"`
	LotNumber   string               `json:"lot_number"`
	Count       int                  `json:"count"`
	FirstSeen   string               `json:"first_seen,omitempty"`
	LastSeen    string               `json:"last_seen,omitempty"`
	Flag        domain.AnomalyFlag   `json:"flag"`
	Flags       []domain.AnomalyFlag `json:"flags,omitempty"`
}

// MissingCounts is one date bucket of per-category missing-field counters.
type MissingCounts struct {
	VFC       int `json:"vfc"`
	Funding   int `json:"funding"`
	Race      int `json:"race"`
	Ethnicity int `json:"ethnicity"`
	Contact   int `json:"contact"`
}

// EligibilityBucket is one vfc_status category with its record count.
type EligibilityBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// EligibilityBreakdown supports waterfall-style presentation: total records,
// per-category contributions, and the documented remainder.
type EligibilityBreakdown struct {
	Total      int                 `json:"total"`
	Documented int                 `json:"documented"`
	Buckets    []EligibilityBucket `json:"buckets"`
}

// missingEligibilityLabel is the synthetic category for records without a
// vfc_status value. It is always ordered first in the breakdown.
const missingEligibilityLabel = "Missing eligibility"

// AggregatorService computes set-level rollups from a filtered record
// subset. Every operation is a total function: empty input yields empty,
// zero, or sentinel outputs, never an error.
type AggregatorService struct {
	logger     *logrus.Logger
	classifier *ClassifierService
}

// NewAggregatorService creates a new aggregator service.
func NewAggregatorService(logger *logrus.Logger, classifier *ClassifierService) *AggregatorService {
	return &AggregatorService{
		logger:     logger,
		classifier: classifier,
	}
}

// SummarizeSet computes severity-tier counts and the aggregate quality score
// over a record set. The quality score is a weighted completeness metric
// distinct from per-record readiness: each category contributes
// weight * missingCount / total to a penalty subtracted from 100.
func (a *AggregatorService) SummarizeSet(records []domain.ImmunizationRecord) Summary {
	summary := Summary{
		Total: len(records),
		TierCounts: map[domain.Tier]int{
			domain.TierHigh:   0,
			domain.TierMedium: 0,
			domain.TierLow:    0,
			domain.TierClean:  0,
		},
	}

	if len(records) == 0 {
		return summary
	}

	missingByCategory := make(map[string]int, len(qualityWeights))
	for i := range records {
		record := &records[i]
		summary.TierCounts[a.classifier.ClassifySeverity(record)]++
		for _, w := range qualityWeights {
			if w.missing(record) {
				missingByCategory[w.category]++
			}
		}
	}

	var penalty float64
	total := float64(len(records))
	for _, w := range qualityWeights {
		penalty += w.weight * float64(missingByCategory[w.category]) / total
	}

	value := int(math.Round(100 - penalty))
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	summary.QualityScore = QualityScore{Value: value, Available: true}

	a.logger.WithFields(logrus.Fields{
		"records":       summary.Total,
		"quality_score": value,
	}).Debug("Summarized record set")

	return summary
}

// AggregateLotUsage groups records by (vaccine, lot), computes usage counts
// and first/last administration dates, and flags suspicious groups. Groups
// are returned sorted by count descending, ties broken by vaccine then lot
// for deterministic output.
func (a *AggregatorService) AggregateLotUsage(records []domain.ImmunizationRecord) []LotUsage {
	type lotKey struct {
		vaccine string
		lot     string
	}

	groups := make(map[lotKey]*LotUsage)
	vaccineTotals := make(map[string]int)

	for i := range records {
		record := &records[i]
		if domain.FieldMissing(record.VaccineName) || domain.FieldMissing(record.LotNumber) {
			continue
		}
		key := lotKey{vaccine: record.VaccineName, lot: record.LotNumber}
		entry, ok := groups[key]
		if !ok {
			entry = &LotUsage{VaccineName: record.VaccineName, LotNumber: record.LotNumber}
			groups[key] = entry
		}
		entry.Count++
		vaccineTotals[record.VaccineName]++

		if day, ok := record.AdministeredDay(); ok {
			if entry.FirstSeen == "" || day < entry.FirstSeen {
				entry.FirstSeen = day
			}
			if entry.LastSeen == "" || day > entry.LastSeen {
				entry.LastSeen = day
			}
		}
	}

	// Dominant lot per vaccine: the group with the highest count, ties
	// broken by the lexicographically smaller lot so repeated aggregation
	// of the same set always picks the same dominant.
	dominant := make(map[string]*LotUsage)
	for _, entry := range groups {
		current, ok := dominant[entry.VaccineName]
		if !ok || entry.Count > current.Count ||
			(entry.Count == current.Count && entry.LotNumber < current.LotNumber) {
			dominant[entry.VaccineName] = entry
		}
	}

	out := make([]LotUsage, 0, len(groups))
	for _, entry := range groups {
		entry.Flags = a.anomalyFlags(entry, dominant[entry.VaccineName], vaccineTotals[entry.VaccineName])
		entry.Flag = domain.AnomalyNone
		if len(entry.Flags) > 0 {
			entry.Flag = entry.Flags[0]
		}
		out = append(out, *entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].VaccineName != out[j].VaccineName {
			return out[i].VaccineName < out[j].VaccineName
		}
		return out[i].LotNumber < out[j].LotNumber
	})

	return out
}

// anomalyFlags returns every matched flag in precedence order:
// typo > one_off > rare.
func (a *AggregatorService) anomalyFlags(entry, dominantLot *LotUsage, vaccineTotal int) []domain.AnomalyFlag {
	var flags []domain.AnomalyFlag

	if dominantLot != nil &&
		dominantLot.LotNumber != entry.LotNumber &&
		dominantLot.Count >= typoDominantFloor &&
		lotmatch.NearMatch(entry.LotNumber, dominantLot.LotNumber) {
		flags = append(flags, domain.AnomalyTypo)
	}

	if entry.Count == 1 {
		flags = append(flags, domain.AnomalyOneOff)
	}

	share := 0.0
	if vaccineTotal > 0 {
		share = float64(entry.Count) / float64(vaccineTotal)
	}
	if entry.Count <= rareCountCeiling || share < rareShareCeiling {
		flags = append(flags, domain.AnomalyRare)
	}

	return flags
}

// BucketMissingByDate truncates each record's administered date to its day
// and increments one counter per missing category in that bucket. Records
// with a missing or unparseable administered date contribute nothing.
func (a *AggregatorService) BucketMissingByDate(records []domain.ImmunizationRecord) map[string]MissingCounts {
	buckets := make(map[string]MissingCounts)
	for i := range records {
		record := &records[i]
		day, ok := record.AdministeredDay()
		if !ok {
			continue
		}
		counts := buckets[day]
		if domain.FieldMissing(record.VFCStatus) {
			counts.VFC++
		}
		if domain.FieldMissing(record.FundingSource) {
			counts.Funding++
		}
		if domain.FieldMissing(record.Race) {
			counts.Race++
		}
		if domain.FieldMissing(record.Ethnicity) {
			counts.Ethnicity++
		}
		if record.ContactMissing() {
			counts.Contact++
		}
		buckets[day] = counts
	}
	return buckets
}

// BucketMissingByEligibility groups records by vfc_status. Records without a
// value fall into the "Missing eligibility" category, which always orders
// first; the rest order by count descending, ties alphabetical.
func (a *AggregatorService) BucketMissingByEligibility(records []domain.ImmunizationRecord) EligibilityBreakdown {
	counts := make(map[string]int)
	for i := range records {
		label := records[i].VFCStatus
		if domain.FieldMissing(label) {
			label = missingEligibilityLabel
		}
		counts[label]++
	}

	buckets := make([]EligibilityBucket, 0, len(counts))
	for label, count := range counts {
		buckets = append(buckets, EligibilityBucket{Label: label, Count: count})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Label == missingEligibilityLabel {
			return true
		}
		if buckets[j].Label == missingEligibilityLabel {
			return false
		}
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Label < buckets[j].Label
	})

	return EligibilityBreakdown{
		Total:      len(records),
		Documented: len(records) - counts[missingEligibilityLabel],
		Buckets:    buckets,
	}
}
