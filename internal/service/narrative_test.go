package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immunization-audit-server/internal/domain"
)

func TestSeedNarrativeDeterminism(t *testing.T) {
	first := SeedNarrative("2024-01-01", "2024-03-31", domain.FilterAttention)
	second := SeedNarrative("2024-01-01", "2024-03-31", domain.FilterAttention)

	assert.Equal(t, first, second, "identical parameters always select the same phrases")
}

func TestSeedNarrativeShape(t *testing.T) {
	seed := SeedNarrative("", "", domain.FilterAll)

	require.Len(t, seed.Indices, 3)
	require.Len(t, seed.Phrases, 3)

	banks := [][]string{narrativeOpeners, narrativeFocus, narrativeClosers}
	for i, bank := range banks {
		assert.GreaterOrEqual(t, seed.Indices[i], 0)
		assert.Less(t, seed.Indices[i], len(bank))
		assert.Equal(t, bank[seed.Indices[i]], seed.Phrases[i])
	}
}

func TestSeedNarrativeDistinguishesParameters(t *testing.T) {
	// Field boundaries are delimited: ("ab","c") and ("a","bc") hash apart.
	a := SeedNarrative("ab", "c", domain.FilterAll)
	b := SeedNarrative("a", "bc", domain.FilterAll)
	assert.NotEqual(t, a.Indices, b.Indices)
}
