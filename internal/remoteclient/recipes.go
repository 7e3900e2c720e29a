package remoteclient

import (
	"context"
	"fmt"

	"triage/internal/models"
)

// pagedRecipes mirrors the recipe service's GET /recipes pagination
// envelope.
type pagedRecipes struct {
	Items      []recipeDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type recipeDTO struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Ingredients []ingredientDTO `json:"ingredients"`
}

type ingredientDTO struct {
	ID           string   `json:"id"`
	RecipeID     string   `json:"recipe_id"`
	Note         string   `json:"note"`
	OriginalText string   `json:"original_text"`
	UnitRef      *string  `json:"unit_ref"`
	FoodRef      *string  `json:"food_ref"`
	Quantity     *float64 `json:"quantity"`
}

func (d recipeDTO) toDomain() models.Recipe {
	ingredients := make([]models.Ingredient, len(d.Ingredients))
	for i, ing := range d.Ingredients {
		ingredients[i] = models.Ingredient{
			ID: ing.ID, RecipeID: ing.RecipeID, Note: ing.Note,
			OriginalText: ing.OriginalText, UnitRef: ing.UnitRef,
			FoodRef: ing.FoodRef, Quantity: ing.Quantity,
		}
	}
	return models.Recipe{ID: d.ID, Slug: d.Slug, Name: d.Name, Ingredients: ingredients}
}

// ListRecipes returns every recipe in the recipe service, handling
// paging transparently. Result order is irrelevant to callers.
func (c *Client) ListRecipes(ctx context.Context) ([]models.Recipe, error) {
	var all []models.Recipe
	cursor := ""
	for {
		path := "/recipes"
		if cursor != "" {
			path = fmt.Sprintf("/recipes?cursor=%s", cursor)
		}
		var page pagedRecipes
		if callErr := c.doWithRetry(ctx, requestSpec{method: "GET", path: path}, &page); callErr != nil {
			return nil, callErr
		}
		for _, d := range page.Items {
			all = append(all, d.toDomain())
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return all, nil
}

// GetRecipe fetches a single recipe, including its full ingredient array.
func (c *Client) GetRecipe(ctx context.Context, slug string) (models.Recipe, error) {
	var d recipeDTO
	path := fmt.Sprintf("/recipes/%s", slug)
	if callErr := c.doWithRetry(ctx, requestSpec{method: "GET", path: path}, &d); callErr != nil {
		return models.Recipe{}, callErr
	}
	return d.toDomain(), nil
}
