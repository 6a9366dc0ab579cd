package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immunization-audit-server/internal/domain"
)

func newTestAggregator(t *testing.T) *AggregatorService {
	t.Helper()
	return NewAggregatorService(testLogger(), newTestClassifier(t))
}

func TestSummarizeSetEmpty(t *testing.T) {
	a := newTestAggregator(t)

	summary := a.SummarizeSet(nil)

	assert.Equal(t, 0, summary.Total)
	assert.False(t, summary.QualityScore.Available, "empty set yields the unavailable sentinel, not zero")
	for _, tier := range []domain.Tier{domain.TierHigh, domain.TierMedium, domain.TierLow, domain.TierClean} {
		assert.Zero(t, summary.TierCounts[tier])
	}
}

func TestSummarizeSetTierCounts(t *testing.T) {
	a := newTestAggregator(t)

	// Three records dated consecutively: one complete, one missing
	// eligibility, one missing race and mobile.
	r1 := fullRecord("d-1")
	r1.AdministeredDate = "2024-01-01"

	r2 := fullRecord("d-2")
	r2.AdministeredDate = "2024-01-02"
	r2.VFCStatus = ""

	r3 := fullRecord("d-3")
	r3.AdministeredDate = "2024-01-03"
	r3.Race = ""
	r3.Mobile = ""

	summary := a.SummarizeSet([]domain.ImmunizationRecord{r1, r2, r3})

	// Record 3 classifies medium: eligibility fields are present, so the
	// precedence chain stops at demographics despite the missing contact.
	assert.Equal(t, 1, summary.TierCounts[domain.TierClean])
	assert.Equal(t, 1, summary.TierCounts[domain.TierHigh])
	assert.Equal(t, 1, summary.TierCounts[domain.TierMedium])
	assert.Equal(t, 0, summary.TierCounts[domain.TierLow])
}

func TestSummarizeSetQualityScore(t *testing.T) {
	a := newTestAggregator(t)

	t.Run("all complete scores 100", func(t *testing.T) {
		records := []domain.ImmunizationRecord{fullRecord("d-1"), fullRecord("d-2")}
		summary := a.SummarizeSet(records)
		require.True(t, summary.QualityScore.Available)
		assert.Equal(t, 100, summary.QualityScore.Value)
	})

	t.Run("everything missing scores 0", func(t *testing.T) {
		records := []domain.ImmunizationRecord{{DocID: "d-1"}, {DocID: "d-2"}}
		summary := a.SummarizeSet(records)
		require.True(t, summary.QualityScore.Available)
		assert.Equal(t, 0, summary.QualityScore.Value)
	})

	t.Run("single-category penalties use the documented weights", func(t *testing.T) {
		// One of two records missing vfc_status: penalty 28 * 1/2 = 14.
		r1 := fullRecord("d-1")
		r2 := fullRecord("d-2")
		r2.VFCStatus = ""
		summary := a.SummarizeSet([]domain.ImmunizationRecord{r1, r2})
		require.True(t, summary.QualityScore.Available)
		assert.Equal(t, 86, summary.QualityScore.Value)
	})

	t.Run("contact counts once per record", func(t *testing.T) {
		// Missing both mobile and email is one contact penalty: 100 - 20.
		r := fullRecord("d-1")
		r.Mobile = ""
		r.Email = ""
		summary := a.SummarizeSet([]domain.ImmunizationRecord{r})
		require.True(t, summary.QualityScore.Available)
		assert.Equal(t, 80, summary.QualityScore.Value)
	})
}

func lotRecord(docID, vaccine, lot, day string) domain.ImmunizationRecord {
	r := fullRecord(docID)
	r.VaccineName = vaccine
	r.LotNumber = lot
	r.AdministeredDate = day
	return r
}

func TestAggregateLotUsageTypo(t *testing.T) {
	a := newTestAggregator(t)

	var records []domain.ImmunizationRecord
	for i := 0; i < 50; i++ {
		records = append(records, lotRecord("d-dom", "Influenza", "ABC123", "2024-01-02"))
	}
	records = append(records, lotRecord("d-typo", "Influenza", "ABD123", "2024-01-03"))

	lots := a.AggregateLotUsage(records)
	require.Len(t, lots, 2)

	// Sorted by count descending: dominant lot first.
	assert.Equal(t, "ABC123", lots[0].LotNumber)
	assert.Equal(t, 50, lots[0].Count)
	assert.Equal(t, domain.AnomalyNone, lots[0].Flag)

	assert.Equal(t, "ABD123", lots[1].LotNumber)
	assert.Equal(t, domain.AnomalyTypo, lots[1].Flag, "one-character substitution against a dominant lot")
	// Lower-precedence flags still surfaced in the full list.
	assert.Contains(t, lots[1].Flags, domain.AnomalyOneOff)
	assert.Contains(t, lots[1].Flags, domain.AnomalyRare)
}

func TestAggregateLotUsageDominantTieIsStable(t *testing.T) {
	a := newTestAggregator(t)

	// Two lots tied at the top count: the lexicographically smaller one is
	// the dominant, so the near-match neighbor is flagged the same way on
	// every aggregation of the same set.
	var records []domain.ImmunizationRecord
	for i := 0; i < 12; i++ {
		records = append(records, lotRecord("d-a", "Influenza", "ABC123", "2024-01-02"))
		records = append(records, lotRecord("d-z", "Influenza", "ZZZ999", "2024-01-02"))
	}
	records = append(records, lotRecord("d-typo", "Influenza", "ABD123", "2024-01-03"))

	for run := 0; run < 5; run++ {
		lots := a.AggregateLotUsage(records)
		require.Len(t, lots, 3)
		assert.Equal(t, "ABD123", lots[2].LotNumber)
		assert.Equal(t, domain.AnomalyTypo, lots[2].Flag)
	}
}

func TestAggregateLotUsageOneOffWithoutDominant(t *testing.T) {
	a := newTestAggregator(t)

	// A single record for its vaccine: no dominant lot with 10+ uses, so
	// no typo flag is possible; the row is a one-off.
	lots := a.AggregateLotUsage([]domain.ImmunizationRecord{
		lotRecord("d-1", "Varicella", "XYZ", "2024-01-05"),
	})
	require.Len(t, lots, 1)
	assert.Equal(t, domain.AnomalyOneOff, lots[0].Flag)
	assert.NotContains(t, lots[0].Flags, domain.AnomalyTypo)
}

func TestAggregateLotUsageRareByShare(t *testing.T) {
	a := newTestAggregator(t)

	// 4 uses of a lot is past the one-off and count ceilings, but under a
	// 2% share when the vaccine has 400 total administrations.
	var records []domain.ImmunizationRecord
	for i := 0; i < 396; i++ {
		records = append(records, lotRecord("d-main", "MMR", "LOT-MAIN-99", "2024-02-01"))
	}
	for i := 0; i < 4; i++ {
		records = append(records, lotRecord("d-rare", "MMR", "ZZ9876", "2024-02-02"))
	}

	lots := a.AggregateLotUsage(records)
	require.Len(t, lots, 2)
	assert.Equal(t, "ZZ9876", lots[1].LotNumber)
	assert.Equal(t, domain.AnomalyRare, lots[1].Flag)
	assert.NotContains(t, lots[1].Flags, domain.AnomalyOneOff)
}

func TestAggregateLotUsageDates(t *testing.T) {
	a := newTestAggregator(t)

	records := []domain.ImmunizationRecord{
		lotRecord("d-1", "Influenza", "ABC123", "2024-01-15"),
		lotRecord("d-2", "Influenza", "ABC123", "2024-01-03"),
		lotRecord("d-3", "Influenza", "ABC123", "2024-02-01T08:30:00Z"),
	}

	lots := a.AggregateLotUsage(records)
	require.Len(t, lots, 1)
	assert.Equal(t, 3, lots[0].Count)
	assert.Equal(t, "2024-01-03", lots[0].FirstSeen)
	assert.Equal(t, "2024-02-01", lots[0].LastSeen)
}

func TestAggregateLotUsageSkipsUnidentifiedRows(t *testing.T) {
	a := newTestAggregator(t)

	records := []domain.ImmunizationRecord{
		lotRecord("d-1", "Influenza", "", "2024-01-15"),
		lotRecord("d-2", "", "ABC123", "2024-01-15"),
	}
	assert.Empty(t, a.AggregateLotUsage(records))
}

func TestBucketMissingByDate(t *testing.T) {
	a := newTestAggregator(t)

	// Timestamped and plain dates share a bucket; the undated record and
	// the complete record contribute nothing.
	r1 := fullRecord("d-1")
	r1.AdministeredDate = "2024-01-05T10:00:00Z"
	r1.VFCStatus = ""

	r2 := fullRecord("d-2")
	r2.AdministeredDate = "2024-01-05"
	r2.Race = ""
	r2.Mobile = ""

	r3 := fullRecord("d-3")
	r3.AdministeredDate = ""
	r3.VFCStatus = ""

	r4 := fullRecord("d-4")
	r4.AdministeredDate = "2024-01-06"

	buckets := a.BucketMissingByDate([]domain.ImmunizationRecord{r1, r2, r3, r4})

	require.Contains(t, buckets, "2024-01-05")
	jan5 := buckets["2024-01-05"]
	assert.Equal(t, 1, jan5.VFC)
	assert.Equal(t, 1, jan5.Race)
	assert.Equal(t, 1, jan5.Contact, "either contact channel missing counts once")
	assert.Equal(t, 0, jan5.Funding)

	jan6 := buckets["2024-01-06"]
	assert.Zero(t, jan6.VFC+jan6.Funding+jan6.Race+jan6.Ethnicity+jan6.Contact)
}

func TestBucketMissingByEligibility(t *testing.T) {
	a := newTestAggregator(t)

	mk := func(docID, vfc string) domain.ImmunizationRecord {
		r := fullRecord(docID)
		r.VFCStatus = vfc
		return r
	}

	records := []domain.ImmunizationRecord{
		mk("d-1", "V02"), mk("d-2", "V02"), mk("d-3", "V02"),
		mk("d-4", "V01"),
		mk("d-5", "V05"),
		mk("d-6", ""), mk("d-7", "   "),
	}

	breakdown := a.BucketMissingByEligibility(records)

	assert.Equal(t, 7, breakdown.Total)
	assert.Equal(t, 5, breakdown.Documented)

	require.Len(t, breakdown.Buckets, 4)
	assert.Equal(t, "Missing eligibility", breakdown.Buckets[0].Label, "missing category always orders first")
	assert.Equal(t, 2, breakdown.Buckets[0].Count)
	assert.Equal(t, "V02", breakdown.Buckets[1].Label)
	// V01 and V05 tie on count; alphabetical order breaks the tie.
	assert.Equal(t, "V01", breakdown.Buckets[2].Label)
	assert.Equal(t, "V05", breakdown.Buckets[3].Label)
}

func TestBucketMissingByEligibilityEmpty(t *testing.T) {
	a := newTestAggregator(t)

	breakdown := a.BucketMissingByEligibility(nil)
	assert.Zero(t, breakdown.Total)
	assert.Zero(t, breakdown.Documented)
	assert.Empty(t, breakdown.Buckets)
}
