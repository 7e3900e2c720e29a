package analyzer

import (
	"strings"
	"unicode"

	"triage/internal/canon"
	"triage/internal/models"
)

// UnitDictionary is a lookup table of canonicalized unit surface forms —
// name and abbreviation — built fresh from the cached
// Unit catalog before each analysis run. This generalizes a
// SimpleIngredientMapper synonym table from a hardcoded dictionary to one
// built from live catalog data, and IngredientAggregator's unit-token
// vocabulary from a fixed Japanese-cooking-unit table to whatever units
// the recipe service actually knows about.
type UnitDictionary struct {
	tokens map[string]struct{}
}

// NewUnitDictionary indexes every unit's name and abbreviation under
// their canonical forms.
func NewUnitDictionary(units []models.Unit) *UnitDictionary {
	d := &UnitDictionary{tokens: make(map[string]struct{})}
	for _, u := range units {
		if u.Name != "" {
			d.tokens[canon.Text(u.Name)] = struct{}{}
		}
		if u.Abbreviation != "" {
			d.tokens[canon.Text(u.Abbreviation)] = struct{}{}
		}
	}
	return d
}

// Match reports whether token (already canonicalized) is a known unit
// surface form.
func (d *UnitDictionary) Match(token string) bool {
	_, ok := d.tokens[token]
	return ok
}

// tokenize splits free text on whitespace and punctuation, matching the
// teacher's regex-driven amount/unit tokenizing approach in
// IngredientAggregator.ParseQuantity but generalized to arbitrary
// delimiters instead of a fixed "number then unit" shape.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}
