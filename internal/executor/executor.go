// Package executor implements the Batch Executor: it takes one
// BatchOperation and a PatternGroup and produces one BatchResult,
// preserving correctness even under partial failure.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"triage/internal/models"
	"triage/internal/remoteclient"
)

// RemoteClient is the subset of *remoteclient.Client the executor needs
// — narrowed to an interface so tests can supply a fake.
type RemoteClient interface {
	CreateUnit(ctx context.Context, name, abbreviation, description string) (models.Unit, error)
	CreateFood(ctx context.Context, name, description string) (models.Food, error)
	AddFoodAlias(ctx context.Context, foodID, alias string) (models.Food, error)
	UpdateIngredient(ctx context.Context, mode remoteclient.UpdateMode, recipeID, ingredientID string, patch remoteclient.IngredientPatch) error
	ListUnits(ctx context.Context) ([]models.Unit, error)
	ListFoods(ctx context.Context) ([]models.Food, error)
}

// Executor runs BatchOperations with bounded-concurrency ingredient
// fan-out, following a validate-then-act-then-persist shape: pre-flight
// checks, one catalog mutation, then a worker pool over the affected
// ingredients.
type Executor struct {
	client   RemoteClient
	width    int
	mode     remoteclient.UpdateMode
	log      zerolog.Logger
	validate *validator.Validate

	// OnProgress, if set, is called once per completed ingredient update
	// (success or permanent failure) so a caller can publish one
	// progress event per completion, per the explicit message-passing
	// design note. The Orchestrator is the only intended caller and runs
	// one batch at a time, so this is not safe to mutate concurrently
	// with Run/RetryFailed.
	OnProgress func(models.Ref, error)
}

// New constructs an Executor. width is the fan-out concurrency; it
// should be ≤ the client's connection pool size, to avoid deadlocking
// the pool.
func New(client RemoteClient, width int, mode remoteclient.UpdateMode, log zerolog.Logger) *Executor {
	if width <= 0 {
		width = 10
	}
	return &Executor{client: client, width: width, mode: mode, log: log, validate: validator.New()}
}

// RefreshedCatalog carries whichever catalog slice the executor
// refreshed after a successful mutation, so the Orchestrator can fold it
// back into its owned caches (only the Orchestrator mutates caches).
type RefreshedCatalog struct {
	Units *[]models.Unit
	Foods *[]models.Food
}

// Run executes one BatchOperation against one PatternGroup's affected
// ingredients.
func (e *Executor) Run(ctx context.Context, op models.BatchOperation, catalog CatalogView, cancel *CancelSignal) (models.BatchResult, *RefreshedCatalog, error) {
	start := time.Now()

	if err := e.validate.Struct(op); err != nil {
		return abortedResult(op, start), nil, nil
	}

	if err := preflight(op, catalog); err != nil {
		e.log.Warn().Str("pattern_id", op.PatternID).Err(err).Msg("pre-flight validation failed")
		return abortedResult(op, start), nil, nil
	}

	entityID, mutateErr := e.mutateCatalog(ctx, &op)
	if mutateErr != nil {
		e.log.Warn().Str("pattern_id", op.PatternID).Err(mutateErr).Msg("catalog mutation failed; no ingredient updates attempted")
		return abortedResult(op, start), nil, nil
	}
	op.TargetEntityID = entityID

	succeeded, failed := e.fanOut(ctx, op, cancel)

	refreshed := e.refreshCatalog(ctx, op.Kind)

	result := models.BatchResult{
		Op:              op,
		CreatedEntityID: entityID,
		Succeeded:       succeeded,
		Failed:          failed,
		Duration:        time.Since(start),
		FinalStatus:     classify(succeeded, failed),
	}
	return result, refreshed, nil
}

// RetryFailed re-runs only the previously failed ingredient set against
// the already-created entity; it never issues a second catalog create
// a second time.
func (e *Executor) RetryFailed(ctx context.Context, prev models.BatchResult, cancel *CancelSignal) (models.BatchResult, error) {
	start := time.Now()
	op := prev.Op
	op.Affected = failedRefs(prev.Failed)

	succeeded, failed := e.fanOut(ctx, op, cancel)

	return models.BatchResult{
		Op:              op,
		CreatedEntityID: prev.CreatedEntityID,
		Succeeded:       succeeded,
		Failed:          failed,
		Duration:        time.Since(start),
		FinalStatus:     classify(succeeded, failed),
	}, nil
}

func failedRefs(failed []models.FailedUpdate) []models.Ref {
	refs := make([]models.Ref, len(failed))
	for i, f := range failed {
		refs[i] = f.Ref
	}
	return refs
}

func abortedResult(op models.BatchOperation, start time.Time) models.BatchResult {
	return models.BatchResult{
		Op:          op,
		Duration:    time.Since(start),
		FinalStatus: models.FinalAborted,
	}
}

// mutateCatalog performs at most one catalog-create (or alias-add) call
// per invocation. A PERMANENT_CONFLICT on create is reconcilable: the
// entity the request collided with already satisfies the operation, so
// mutateCatalog locates it — first in the conflict response body itself,
// falling back to a fresh catalog listing — and returns its id as
// success. It aborts only when no matching entity can be found, which
// means the conflict was about something other than the intended name.
func (e *Executor) mutateCatalog(ctx context.Context, op *models.BatchOperation) (string, error) {
	switch op.Kind {
	case models.OpCreateUnit:
		u, err := e.client.CreateUnit(ctx, op.Payload.Name, op.Payload.Abbreviation, op.Payload.Description)
		if err == nil {
			return u.ID, nil
		}
		if remoteclient.Kind(err) != remoteclient.PermanentConflict {
			return "", err
		}
		if u.ID != "" {
			return u.ID, nil
		}
		fresh, refreshErr := e.client.ListUnits(ctx)
		if refreshErr != nil {
			return "", err
		}
		if existing, found := findUnitMatch(fresh, op.Payload.Name, op.Payload.Abbreviation); found {
			return existing.ID, nil
		}
		return "", err

	case models.OpCreateFood:
		f, err := e.client.CreateFood(ctx, op.Payload.Name, op.Payload.Description)
		if err == nil {
			return f.ID, nil
		}
		if remoteclient.Kind(err) != remoteclient.PermanentConflict {
			return "", err
		}
		if f.ID != "" {
			return f.ID, nil
		}
		fresh, refreshErr := e.client.ListFoods(ctx)
		if refreshErr != nil {
			return "", err
		}
		if existing, found := findFoodMatch(fresh, op.Payload.Name); found {
			return existing.ID, nil
		}
		return "", err

	case models.OpAddFoodAlias:
		f, err := e.client.AddFoodAlias(ctx, op.TargetEntityID, op.Payload.AliasText)
		if err == nil {
			return f.ID, nil
		}
		if remoteclient.Kind(err) != remoteclient.PermanentConflict {
			return "", err
		}
		// Idempotent replay: if the target food already carries this
		// alias, treat the conflict as success.
		fresh, refreshErr := e.client.ListFoods(ctx)
		if refreshErr != nil {
			return "", err
		}
		for _, food := range fresh {
			if food.ID == op.TargetEntityID && aliasAlreadyAttached(food, op.Payload.AliasText) {
				return food.ID, nil
			}
		}
		return "", err

	default:
		return "", err404Unknown(op.Kind)
	}
}

func (e *Executor) fanOut(ctx context.Context, op models.BatchOperation, cancel *CancelSignal) ([]models.Ref, []models.FailedUpdate) {
	patch := buildPatch(op)

	var mu sync.Mutex
	var succeeded []models.Ref
	var failed []models.FailedUpdate

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.width)

	for _, ref := range op.Affected {
		if cancel.Cancelled() {
			break
		}
		ref := ref
		g.Go(func() error {
			if cancel.Cancelled() {
				return nil
			}
			err := e.client.UpdateIngredient(gctx, e.mode, ref.RecipeID, ref.IngredientID, patch)
			if e.OnProgress != nil {
				e.OnProgress(ref, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, models.FailedUpdate{
					Ref:       ref,
					ErrorKind: string(remoteclient.Kind(err)),
					Message:   err.Error(),
				})
				return nil // one failure must never poison the batch
			}
			succeeded = append(succeeded, ref)
			return nil
		})
	}
	_ = g.Wait()

	return succeeded, failed
}

func buildPatch(op models.BatchOperation) remoteclient.IngredientPatch {
	switch op.Kind {
	case models.OpCreateUnit:
		id := op.TargetEntityID
		return remoteclient.IngredientPatch{UnitRef: &id}
	case models.OpCreateFood, models.OpAddFoodAlias:
		id := op.TargetEntityID
		return remoteclient.IngredientPatch{FoodRef: &id}
	default:
		return remoteclient.IngredientPatch{}
	}
}

func (e *Executor) refreshCatalog(ctx context.Context, kind models.OperationKind) *RefreshedCatalog {
	switch kind {
	case models.OpCreateUnit:
		units, err := e.client.ListUnits(ctx)
		if err != nil {
			e.log.Warn().Err(err).Msg("post-batch unit catalog refresh failed; will retry on next batch")
			return nil
		}
		return &RefreshedCatalog{Units: &units}
	case models.OpCreateFood, models.OpAddFoodAlias:
		foods, err := e.client.ListFoods(ctx)
		if err != nil {
			e.log.Warn().Err(err).Msg("post-batch food catalog refresh failed; will retry on next batch")
			return nil
		}
		return &RefreshedCatalog{Foods: &foods}
	default:
		return nil
	}
}

func classify(succeeded []models.Ref, failed []models.FailedUpdate) models.FinalStatus {
	switch {
	case len(failed) == 0:
		return models.FinalAllOK
	case len(succeeded) > 0:
		return models.FinalPartial
	default:
		return models.FinalAborted
	}
}

func err404Unknown(kind models.OperationKind) error {
	return fmt.Errorf("unknown operation kind: %s", kind)
}
