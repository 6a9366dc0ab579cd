package service

import (
	"hash/fnv"

	"github.com/immunization-audit-server/internal/domain"
)

// Phrase banks for the dashboard's explanatory prose panel. The content is
// presentation flavor; the contract is only that the same filter selection
// always yields the same selection of phrases.
var (
	narrativeOpeners = []string{
		"Within the selected window,",
		"Across the filtered records,",
		"For this slice of the registry extract,",
		"Looking at the current selection,",
	}
	narrativeFocus = []string{
		"eligibility documentation drives most of the outstanding gaps.",
		"funding attribution is the largest single completeness risk.",
		"demographic capture lags behind clinical documentation.",
		"contact coverage limits how many families outreach can reach.",
		"lot traceability is the dominant recall-readiness concern.",
	}
	narrativeClosers = []string{
		"Addressing the high-severity rows first yields the fastest score recovery.",
		"Most gaps are correctable at the next patient encounter.",
		"A small number of clinics account for the bulk of the findings.",
		"Recent buckets trend better than the start of the window.",
	}
)

// NarrativeSeed selects one phrase per bank from a deterministic hash of the
// filter parameters. Identical selections always produce identical output;
// there is no randomness and no per-call state.
type NarrativeSeed struct {
	Indices []int    `json:"indices"`
	Phrases []string `json:"phrases"`
}

// SeedNarrative hashes the active filter selection into phrase-bank indices.
func SeedNarrative(from, to string, mode domain.FilterMode) NarrativeSeed {
	h := fnv.New64a()
	h.Write([]byte(from))
	h.Write([]byte{0})
	h.Write([]byte(to))
	h.Write([]byte{0})
	h.Write([]byte(mode))
	sum := h.Sum64()

	banks := [][]string{narrativeOpeners, narrativeFocus, narrativeClosers}
	seed := NarrativeSeed{
		Indices: make([]int, 0, len(banks)),
		Phrases: make([]string, 0, len(banks)),
	}
	for _, bank := range banks {
		idx := int(sum % uint64(len(bank)))
		sum /= uint64(len(bank))
		seed.Indices = append(seed.Indices, idx)
		seed.Phrases = append(seed.Phrases, bank[idx])
	}
	return seed
}
