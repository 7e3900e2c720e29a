package executor

import (
	"strings"

	"triage/internal/canon"
	"triage/internal/models"
)

// CatalogView is the Orchestrator's read-through snapshot of the
// recipe-service catalog, passed in fresh for every BatchOperation so
// pre-flight validation never has to reach the network itself.
type CatalogView struct {
	Units []models.Unit
	Foods []models.Food
}

func (c CatalogView) unitNameOrAbbrevTaken(name, abbreviation string) bool {
	_, found := findUnitMatch(c.Units, name, abbreviation)
	return found
}

func (c CatalogView) foodNameTaken(name string) bool {
	_, found := findFoodMatch(c.Foods, name)
	return found
}

// findUnitMatch locates the unit in units whose name or abbreviation
// canonicalizes to name or abbreviation — the entity a duplicate-name
// conflict on create actually collided with.
func findUnitMatch(units []models.Unit, name, abbreviation string) (models.Unit, bool) {
	nameCanon := canon.Text(name)
	abbrevCanon := canon.Text(abbreviation)
	for _, u := range units {
		if canon.Text(u.Name) == nameCanon {
			return u, true
		}
		if abbrevCanon != "" && canon.Text(u.Abbreviation) == abbrevCanon {
			return u, true
		}
		if abbrevCanon != "" && canon.Text(u.Name) == abbrevCanon {
			return u, true
		}
		if u.Abbreviation != "" && canon.Text(u.Abbreviation) == nameCanon {
			return u, true
		}
	}
	return models.Unit{}, false
}

// findFoodMatch locates the food in foods whose name or an existing
// alias canonicalizes to name.
func findFoodMatch(foods []models.Food, name string) (models.Food, bool) {
	nameCanon := canon.Text(name)
	for _, f := range foods {
		if canon.Text(f.Name) == nameCanon {
			return f, true
		}
		for _, a := range f.Aliases {
			if canon.Text(a) == nameCanon {
				return f, true
			}
		}
	}
	return models.Food{}, false
}

func (c CatalogView) findFood(id string) (models.Food, bool) {
	for _, f := range c.Foods {
		if f.ID == id {
			return f, true
		}
	}
	return models.Food{}, false
}

func aliasAlreadyAttached(food models.Food, alias string) bool {
	aliasCanon := canon.Text(alias)
	for _, a := range food.Aliases {
		if canon.Text(a) == aliasCanon {
			return true
		}
	}
	return canon.Text(food.Name) == aliasCanon
}

func trimmedNonEmpty(s string) (string, bool) {
	t := strings.TrimSpace(s)
	return t, t != ""
}
