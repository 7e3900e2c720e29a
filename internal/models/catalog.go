// Package models defines the domain types shared across the triage
// pipeline: recipe-service entities (Recipe, Ingredient, Unit, Food) and
// the pipeline's own working set (PatternGroup, BatchOperation,
// BatchResult, SessionState). All identifiers are opaque strings assigned
// by the recipe service.
package models

// Recipe is a read-through snapshot of a recipe-service recipe, held for
// the duration of one session.
type Recipe struct {
	ID          string       `json:"id"`
	Slug        string       `json:"slug"`
	Name        string       `json:"name"`
	Ingredients []Ingredient `json:"ingredients"`
}

// Ingredient belongs to exactly one Recipe. It is unparsed iff Note or
// OriginalText is non-empty and at least one of UnitRef/FoodRef is absent.
type Ingredient struct {
	ID           string   `json:"id"`
	RecipeID     string   `json:"recipe_id"`
	Note         string   `json:"note"`
	OriginalText string   `json:"original_text"`
	UnitRef      *string  `json:"unit_ref,omitempty"`
	FoodRef      *string  `json:"food_ref,omitempty"`
	Quantity     *float64 `json:"quantity,omitempty"`
}

// Unparsed reports whether the ingredient is missing a unit or food
// reference despite carrying free text worth mining for a pattern.
func (i Ingredient) Unparsed() bool {
	if i.Note == "" && i.OriginalText == "" {
		return false
	}
	return i.UnitRef == nil || i.FoodRef == nil
}

// Text returns the free-text note to analyze, preferring Note and
// falling back to OriginalText.
func (i Ingredient) Text() string {
	if i.Note != "" {
		return i.Note
	}
	return i.OriginalText
}

// Ref identifies one ingredient within one recipe — the unit of work the
// Batch Executor fans out over and the unit of reference a PatternGroup
// aggregates.
type Ref struct {
	RecipeID     string `json:"recipe_id"`
	IngredientID string `json:"ingredient_id"`
}

// Unit is a catalog entity: a unit of measure an ingredient can reference.
type Unit struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

// Food is a catalog entity: a foodstuff an ingredient can reference,
// optionally known under one or more alternate surface forms.
type Food struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}
