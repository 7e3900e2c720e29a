package remoteclient

import (
	"context"
	"errors"
	"fmt"

	"triage/internal/models"
)

type unitDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

type foodDTO struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// ListUnits returns the full unit catalog.
func (c *Client) ListUnits(ctx context.Context) ([]models.Unit, error) {
	var dtos []unitDTO
	if callErr := c.doWithRetry(ctx, requestSpec{method: "GET", path: "/units"}, &dtos); callErr != nil {
		return nil, callErr
	}
	out := make([]models.Unit, len(dtos))
	for i, d := range dtos {
		out[i] = models.Unit{ID: d.ID, Name: d.Name, Abbreviation: d.Abbreviation}
	}
	return out, nil
}

// ListFoods returns the full food catalog.
func (c *Client) ListFoods(ctx context.Context) ([]models.Food, error) {
	var dtos []foodDTO
	if callErr := c.doWithRetry(ctx, requestSpec{method: "GET", path: "/foods"}, &dtos); callErr != nil {
		return nil, callErr
	}
	out := make([]models.Food, len(dtos))
	for i, d := range dtos {
		out[i] = models.Food{ID: d.ID, Name: d.Name, Aliases: d.Aliases}
	}
	return out, nil
}

type createUnitRequest struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Description  string `json:"description,omitempty"`
}

// CreateUnit creates a new unit. On PERMANENT_CONFLICT the returned Unit
// carries whatever entity the recipe service's response body decoded to
// (often the unit that already satisfies the request); the caller (the
// Batch Executor) is responsible for deciding whether it satisfies the
// operation, falling back to a catalog refresh if the body was empty.
func (c *Client) CreateUnit(ctx context.Context, name, abbreviation, description string) (models.Unit, error) {
	req := createUnitRequest{Name: name, Abbreviation: abbreviation, Description: description}
	var d unitDTO
	spec := requestSpec{method: "POST", path: "/units", body: req, idempotent: true}
	callErr := c.doWithRetry(ctx, spec, &d)
	unit := models.Unit{ID: d.ID, Name: d.Name, Abbreviation: d.Abbreviation}
	if callErr != nil {
		return unit, callErr
	}
	return unit, nil
}

type createFoodRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateFood creates a new food. On PERMANENT_CONFLICT the returned Food
// carries whatever entity the response body decoded to, for the same
// reason as CreateUnit above.
func (c *Client) CreateFood(ctx context.Context, name, description string) (models.Food, error) {
	req := createFoodRequest{Name: name, Description: description}
	var d foodDTO
	spec := requestSpec{method: "POST", path: "/foods", body: req, idempotent: true}
	callErr := c.doWithRetry(ctx, spec, &d)
	food := models.Food{ID: d.ID, Name: d.Name, Aliases: d.Aliases}
	if callErr != nil {
		return food, callErr
	}
	return food, nil
}

type addAliasRequest struct {
	Alias string `json:"alias"`
}

// AddFoodAlias attaches an alias to an existing food and returns the
// updated entity. A PERMANENT_CONFLICT "alias already exists" response is
// not retried here — the caller treats that as success when the
// alias-target binding already matches intent, which only the caller
// (holding the pre-flight-validated intent) can judge.
func (c *Client) AddFoodAlias(ctx context.Context, foodID, alias string) (models.Food, error) {
	if foodID == "" {
		return models.Food{}, errors.New("food id is required")
	}
	req := addAliasRequest{Alias: alias}
	var d foodDTO
	spec := requestSpec{method: "PUT", path: fmt.Sprintf("/foods/%s", foodID), body: req, idempotent: true}
	if callErr := c.doWithRetry(ctx, spec, &d); callErr != nil {
		return models.Food{}, callErr
	}
	return models.Food{ID: d.ID, Name: d.Name, Aliases: d.Aliases}, nil
}
