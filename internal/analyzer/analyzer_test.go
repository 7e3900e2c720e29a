package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/models"
)

func teaspoonUnits() []models.Unit {
	return []models.Unit{{ID: "u-tsp", Name: "teaspoon", Abbreviation: "tsp"}}
}

func recipeWithNote(id, ingID, note string) models.Recipe {
	return models.Recipe{
		ID:   id,
		Slug: id,
		Name: id,
		Ingredients: []models.Ingredient{
			{ID: ingID, RecipeID: id, Note: note},
		},
	}
}

// Canonicalization is case/whitespace/Unicode-form insensitive.
func TestAnalyze_CanonicalizationCollapsesVariants(t *testing.T) {
	dict := NewUnitDictionary(teaspoonUnits())
	recipes := []models.Recipe{
		recipeWithNote("r1", "i1", "2 tsp salt"),
		recipeWithNote("r2", "i2", "1 TSP sugar"),
		recipeWithNote("r3", "i3", "2  tsp   vanilla"),
	}

	groups := Analyze(recipes, dict)

	var unitGroups []models.PatternGroup
	for _, g := range groups {
		if g.Kind == models.KindUnit {
			unitGroups = append(unitGroups, g)
		}
	}
	require.Len(t, unitGroups, 1)
	assert.Equal(t, "tsp", unitGroups[0].CanonicalText)
	assert.Len(t, unitGroups[0].IngredientRefs, 3)
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, unitGroups[0].RecipeIDs)
}

// Every unparsed ingredient contributes at least one pattern key.
func TestAnalyze_EveryUnparsedIngredientCovered(t *testing.T) {
	dict := NewUnitDictionary(teaspoonUnits())
	recipes := []models.Recipe{
		recipeWithNote("r1", "i1", "2 tsp salt"),
		recipeWithNote("r2", "i2", "a pinch of cumin"),
	}

	groups := Analyze(recipes, dict)

	seen := make(map[models.Ref]bool)
	for _, g := range groups {
		for _, ref := range g.IngredientRefs {
			seen[ref] = true
		}
	}
	assert.True(t, seen[models.Ref{RecipeID: "r1", IngredientID: "i1"}])
	assert.True(t, seen[models.Ref{RecipeID: "r2", IngredientID: "i2"}])
}

// Running the analyzer twice on the same input is deterministic.
func TestAnalyze_IDStabilityAcrossRuns(t *testing.T) {
	dict := NewUnitDictionary(teaspoonUnits())
	recipes := []models.Recipe{
		recipeWithNote("r1", "i1", "2 tsp salt"),
		recipeWithNote("r2", "i2", "1 tsp sugar"),
	}

	first := Analyze(recipes, dict)
	second := Analyze(recipes, dict)

	idsOf := func(gs []models.PatternGroup) []string {
		ids := make([]string, len(gs))
		for i, g := range gs {
			ids[i] = g.ID
		}
		return ids
	}
	assert.ElementsMatch(t, idsOf(first), idsOf(second))
}

func TestAnalyze_SkipsParsedIngredients(t *testing.T) {
	unitRef := "u-tsp"
	foodRef := "f-salt"
	recipes := []models.Recipe{
		{ID: "r1", Ingredients: []models.Ingredient{
			{ID: "i1", RecipeID: "r1", Note: "2 tsp salt", UnitRef: &unitRef, FoodRef: &foodRef},
		}},
	}

	groups := Analyze(recipes, NewUnitDictionary(nil))
	assert.Empty(t, groups)
}

func TestAnalyze_DiscardsNumericOnlyFragments(t *testing.T) {
	recipes := []models.Recipe{
		recipeWithNote("r1", "i1", "2 1/2"),
	}
	groups := Analyze(recipes, NewUnitDictionary(nil))
	assert.Empty(t, groups)
}

func TestAnalyze_DiscardsPunctuationOnlyFragments(t *testing.T) {
	recipes := []models.Recipe{
		recipeWithNote("r1", "i1", "•••"),
		recipeWithNote("r2", "i2", "--"),
	}
	groups := Analyze(recipes, NewUnitDictionary(nil))
	assert.Empty(t, groups)
}

func TestIsolateFragments_NoUnitMatchUsesWholeNoteAsFood(t *testing.T) {
	dict := NewUnitDictionary(teaspoonUnits())
	unit, food := isolateFragments("a pinch of cumin", dict)
	assert.Empty(t, unit)
	assert.Equal(t, "a pinch of cumin", food)
}

func TestIsolateFragments_MatchedUnitIsolatesRemainderAsFood(t *testing.T) {
	dict := NewUnitDictionary(teaspoonUnits())
	unit, food := isolateFragments("2 tsp vanilla extract", dict)
	assert.Equal(t, "tsp", unit)
	assert.Equal(t, "vanilla extract", food)
}
