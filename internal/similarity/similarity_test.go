package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"triage/internal/models"
)

func unitGroup(id, canonicalText string) models.PatternGroup {
	return models.PatternGroup{ID: id, Kind: models.KindUnit, CanonicalText: canonicalText}
}

func TestCompute_FindsCloseVariantsWithinThreshold(t *testing.T) {
	groups := []models.PatternGroup{
		unitGroup("p-tsp", "tsp"),
		unitGroup("p-tsps", "tsps"),
		unitGroup("p-cup", "cup"),
	}

	out := Compute(groups, 0.7)

	byID := map[string]models.PatternGroup{}
	for _, g := range out {
		byID[g.ID] = g
	}
	assert.Contains(t, byID["p-tsp"].SimilarGroupIDs, "p-tsps")
	assert.NotContains(t, byID["p-tsp"].SimilarGroupIDs, "p-cup")
}

func TestCompute_NeverCrossesKind(t *testing.T) {
	groups := []models.PatternGroup{
		unitGroup("p-tsp", "tsp"),
		{ID: "p-food-tsp", Kind: models.KindFood, CanonicalText: "tsp"},
	}

	out := Compute(groups, 0.5)
	for _, g := range out {
		assert.Empty(t, g.SimilarGroupIDs, "identical text across kinds must not be suggested as similar")
	}
}

func TestCompute_CapsAtFiveCandidates(t *testing.T) {
	groups := []models.PatternGroup{unitGroup("p-tsp", "tsp")}
	for i := 0; i < 10; i++ {
		groups = append(groups, unitGroup(string(rune('a'+i))+"-variant", "tsp"+string(rune('a'+i))))
	}

	out := Compute(groups, 0.6)
	assert.LessOrEqual(t, len(out[0].SimilarGroupIDs), 5)
}

func TestRatio_IdenticalStringsAreOne(t *testing.T) {
	assert.Equal(t, 1.0, ratio("tsp", "tsp"))
}

func TestDistance_Basic(t *testing.T) {
	assert.Equal(t, 1, distance("tsp", "tsps"))
	assert.Equal(t, 0, distance("cup", "cup"))
}
