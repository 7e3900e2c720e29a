package remoteclient

import (
	"context"
	"fmt"
)

// UpdateMode selects which recipe-service endpoint shape UpdateIngredient
// targets. Recipe-service deployments differ on which shape they expose;
// the client encapsulates both and the fan-out in internal/executor
// tolerates either.
type UpdateMode int

const (
	// ModePerIngredient calls a dedicated per-ingredient PATCH endpoint.
	ModePerIngredient UpdateMode = iota
	// ModeWholeRecipe calls PUT /recipes/{slug} with the full ingredient
	// array, requiring writes to the same recipe to be serialized to
	// avoid lost updates (see Client.recipeLock).
	ModeWholeRecipe
)

// IngredientPatch sets a unit and/or food reference on one ingredient.
type IngredientPatch struct {
	UnitRef *string
	FoodRef *string
}

type patchRequest struct {
	UnitRef *string `json:"unit_ref,omitempty"`
	FoodRef *string `json:"food_ref,omitempty"`
}

// UpdateIngredient applies patch to one ingredient. Under ModeWholeRecipe
// the call is serialized against other updates to the same recipe id via
// a per-recipe mutex, so two concurrent fan-out workers touching the same
// recipe never race a read-modify-write replace.
func (c *Client) UpdateIngredient(ctx context.Context, mode UpdateMode, recipeID, ingredientID string, patch IngredientPatch) error {
	switch mode {
	case ModeWholeRecipe:
		lock := c.recipeLock(recipeID)
		lock.Lock()
		defer lock.Unlock()
		return c.updateViaWholeRecipe(ctx, recipeID, ingredientID, patch)
	default:
		return c.updateViaPerIngredient(ctx, recipeID, ingredientID, patch)
	}
}

func (c *Client) updateViaPerIngredient(ctx context.Context, recipeID, ingredientID string, patch IngredientPatch) error {
	req := patchRequest{UnitRef: patch.UnitRef, FoodRef: patch.FoodRef}
	path := fmt.Sprintf("/recipes/%s/ingredients/%s", recipeID, ingredientID)
	spec := requestSpec{method: "PATCH", path: path, body: req, idempotent: true}
	if callErr := c.doWithRetry(ctx, spec, nil); callErr != nil {
		return callErr
	}
	return nil
}

// updateViaWholeRecipe fetches the current recipe, patches the one
// ingredient in place, and PUTs the whole array back. Must be called
// with the recipe's lock held.
func (c *Client) updateViaWholeRecipe(ctx context.Context, recipeID, ingredientID string, patch IngredientPatch) error {
	recipe, err := c.GetRecipe(ctx, recipeID)
	if err != nil {
		return err
	}
	found := false
	for i := range recipe.Ingredients {
		if recipe.Ingredients[i].ID == ingredientID {
			if patch.UnitRef != nil {
				recipe.Ingredients[i].UnitRef = patch.UnitRef
			}
			if patch.FoodRef != nil {
				recipe.Ingredients[i].FoodRef = patch.FoodRef
			}
			found = true
			break
		}
	}
	if !found {
		return &CallError{Kind: PermanentNotFound, Method: "PUT", Endpoint: recipeID,
			Err: fmt.Errorf("ingredient %s not found in recipe %s", ingredientID, recipeID)}
	}

	path := fmt.Sprintf("/recipes/%s", recipeID)
	spec := requestSpec{method: "PUT", path: path, body: recipe, idempotent: true}
	if callErr := c.doWithRetry(ctx, spec, nil); callErr != nil {
		return callErr
	}
	return nil
}
