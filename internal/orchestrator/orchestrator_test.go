package orchestrator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/executor"
	"triage/internal/models"
	"triage/internal/remoteclient"
	"triage/internal/session"
)

type fakeRemote struct {
	recipes []models.Recipe
	units   []models.Unit
	foods   []models.Food

	createUnitResult models.Unit
}

func (f *fakeRemote) ListRecipes(ctx context.Context) ([]models.Recipe, error) { return f.recipes, nil }
func (f *fakeRemote) ListUnits(ctx context.Context) ([]models.Unit, error)     { return f.units, nil }
func (f *fakeRemote) ListFoods(ctx context.Context) ([]models.Food, error)    { return f.foods, nil }
func (f *fakeRemote) CreateUnit(ctx context.Context, name, abbreviation, description string) (models.Unit, error) {
	return f.createUnitResult, nil
}
func (f *fakeRemote) CreateFood(ctx context.Context, name, description string) (models.Food, error) {
	return models.Food{}, nil
}
func (f *fakeRemote) AddFoodAlias(ctx context.Context, foodID, alias string) (models.Food, error) {
	return models.Food{}, nil
}
func (f *fakeRemote) UpdateIngredient(ctx context.Context, mode remoteclient.UpdateMode, recipeID, ingredientID string, patch remoteclient.IngredientPatch) error {
	return nil
}

func newTestOrchestrator(t *testing.T, remote *fakeRemote) *Orchestrator {
	t.Helper()
	exec := executor.New(remote, 10, remoteclient.ModePerIngredient, zerolog.Nop())
	store := session.New(filepath.Join(t.TempDir(), "session.json"))
	return New(remote, exec, store, similarityThreshold, 8, zerolog.Nop())
}

const similarityThreshold = 0.85

func recipeWithNote(id, ingID, note string) models.Recipe {
	return models.Recipe{ID: id, Ingredients: []models.Ingredient{{ID: ingID, RecipeID: id, Note: note}}}
}

// Resuming after an interruption reconciles completed/skipped ids
// against the freshly analyzed pattern set.
func TestBootstrap_ReconcilesResumedSession(t *testing.T) {
	remote := &fakeRemote{
		recipes: []models.Recipe{
			recipeWithNote("r1", "i1", "2 tsp salt"),
			recipeWithNote("r2", "i2", "1 tbsp sugar"),
		},
		units: []models.Unit{{Name: "teaspoon", Abbreviation: "tsp"}, {Name: "tablespoon", Abbreviation: "tbsp"}},
	}
	o := newTestOrchestrator(t, remote)

	require.NoError(t, o.Bootstrap(context.Background()))

	var tspID, cupGhostID string
	for _, g := range o.Patterns() {
		if g.Kind == models.KindUnit && g.CanonicalText == "tsp" {
			tspID = g.ID
		}
	}
	require.NotEmpty(t, tspID)
	cupGhostID = "p-cup-that-no-longer-exists"

	o.state.CompletedPatternIDs = []string{tspID, cupGhostID}
	o.state.Stats.UnitsCreated = 2
	o.reconcile()

	assert.Contains(t, o.state.CompletedPatternIDs, tspID)
	assert.NotContains(t, o.state.CompletedPatternIDs, cupGhostID, "ids no longer in analysis are dropped silently")

	for _, g := range o.Patterns() {
		if g.ID == tspID {
			assert.Equal(t, models.StatusCompleted, g.Status)
		}
	}
}

// Save calls are totally ordered even under concurrent callers.
func TestPersist_SerializesConcurrentSaves(t *testing.T) {
	remote := &fakeRemote{}
	o := newTestOrchestrator(t, remote)
	o.state = models.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = o.persist(context.Background())
		}()
	}
	wg.Wait()

	loaded, err := o.store.Load()
	require.NoError(t, err)
	assert.Equal(t, models.SchemaVersion, loaded.SchemaVersion)
}

func TestSkipThenUnskip_RoundTrips(t *testing.T) {
	remote := &fakeRemote{
		recipes: []models.Recipe{recipeWithNote("r1", "i1", "2 tsp salt")},
	}
	o := newTestOrchestrator(t, remote)
	require.NoError(t, o.Bootstrap(context.Background()))

	patternID := o.Patterns()[0].ID
	require.NoError(t, o.Skip(context.Background(), patternID))
	assert.True(t, o.state.IsSkipped(patternID))

	require.NoError(t, o.Unskip(context.Background(), patternID))
	assert.False(t, o.state.IsSkipped(patternID))
	assert.False(t, o.state.IsCompleted(patternID))
}

func TestProcessBatch_CompletesPatternAndPersistsStats(t *testing.T) {
	remote := &fakeRemote{
		recipes:          []models.Recipe{recipeWithNote("r1", "i1", "2 tsp salt")},
		createUnitResult: models.Unit{ID: "u-tsp", Name: "teaspoon", Abbreviation: "tsp"},
	}
	o := newTestOrchestrator(t, remote)
	require.NoError(t, o.Bootstrap(context.Background()))

	var patternID string
	for _, g := range o.Patterns() {
		if g.Kind == models.KindUnit {
			patternID = g.ID
		}
	}
	require.NotEmpty(t, patternID)

	result, err := o.ProcessBatch(context.Background(), patternID, models.OpCreateUnit,
		models.OperationPayload{Name: "teaspoon", Abbreviation: "tsp"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, models.FinalAllOK, result.FinalStatus)
	assert.True(t, o.state.IsCompleted(patternID))
	assert.Equal(t, 1, o.state.Stats.UnitsCreated)
}
