// Package analyzer implements the Pattern Analyzer: a pure function from
// a recipe snapshot to a set of PatternGroups. It performs no I/O and
// never suspends on anything but the Go scheduler.
package analyzer

import (
	"runtime"
	"strings"

	"triage/internal/canon"
	"triage/internal/models"
)

// yieldEvery bounds how many ingredients are processed between
// runtime.Gosched calls, so a snapshot of several thousand ingredients
// does not monopolize a goroutine's time slice while the UI shell
// expects sub-100ms responsiveness.
const yieldEvery = 500

// Analyze converts a recipe snapshot into PatternGroups. unitDict is
// built by the caller from the cached Unit catalog (see
// NewUnitDictionary) so fragment isolation reflects live catalog state.
func Analyze(recipes []models.Recipe, unitDict *UnitDictionary) []models.PatternGroup {
	groups := make(map[string]*models.PatternGroup)
	order := make([]string, 0)

	processed := 0
	for _, recipe := range recipes {
		for _, ing := range recipe.Ingredients {
			processed++
			if processed%yieldEvery == 0 {
				runtime.Gosched()
			}
			if !ing.Unparsed() {
				continue
			}
			ref := models.Ref{RecipeID: recipe.ID, IngredientID: ing.ID}
			note := ing.Text()

			unitFragment, foodFragment := isolateFragments(note, unitDict)

			if ing.UnitRef == nil {
				text := unitFragment
				if text == "" {
					text = note
				}
				mergeInto(groups, &order, models.KindUnit, text, ref, recipe.ID)
			}
			if ing.FoodRef == nil {
				text := foodFragment
				if text == "" {
					text = note
				}
				mergeInto(groups, &order, models.KindFood, text, ref, recipe.ID)
			}
		}
	}

	out := make([]models.PatternGroup, 0, len(order))
	for _, id := range order {
		out = append(out, *groups[id])
	}
	return out
}

// mergeInto canonicalizes displayText, computes its pattern id, and
// folds ref/recipeID into the matching group — creating one if this is
// the first ingredient observed for that pattern. Empty-after-
// canonicalization, purely-numeric, and punctuation-only fragments are
// discarded per the analyzer's edge-case rules.
func mergeInto(groups map[string]*models.PatternGroup, order *[]string, kind models.Kind, displayText string, ref models.Ref, recipeID string) {
	canonical := canon.Text(displayText)
	if canonical == "" || canon.IsNumeric(canonical) || canon.IsPunctuationOnly(canonical) {
		return
	}

	id := patternID(kind, canonical)
	g, ok := groups[id]
	if !ok {
		g = &models.PatternGroup{
			ID:            id,
			Kind:          kind,
			CanonicalText: canonical,
			DisplayText:   strings.TrimSpace(displayText),
			Status:        models.StatusPending,
		}
		groups[id] = g
		*order = append(*order, id)
	}
	g.IngredientRefs = append(g.IngredientRefs, ref)
	if !containsString(g.RecipeIDs, recipeID) {
		g.RecipeIDs = append(g.RecipeIDs, recipeID)
	}
}

// isolateFragments tokenizes note, isolates unit-dictionary matches as
// the unit fragment, and treats the remaining non-numeric tokens as the
// food fragment. If no token matches the unit dictionary, unitFragment
// is empty and foodFragment is the whole note.
func isolateFragments(note string, unitDict *UnitDictionary) (unitFragment, foodFragment string) {
	tokens := tokenize(note)
	var unitTokens, foodTokens []string

	for _, tok := range tokens {
		ct := canon.Text(tok)
		if ct == "" || canon.IsNumeric(ct) {
			continue
		}
		if unitDict != nil && unitDict.Match(ct) {
			unitTokens = append(unitTokens, tok)
		} else {
			foodTokens = append(foodTokens, tok)
		}
	}

	if len(unitTokens) == 0 {
		return "", note
	}
	return strings.Join(unitTokens, " "), strings.Join(foodTokens, " ")
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
