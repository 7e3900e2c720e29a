// Package orchestrator drives the end-to-end session lifecycle: fetch a
// snapshot, analyze it, reconcile with any resumed session, and run an
// interactive select-decide-execute-persist loop until the operator
// exits.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"triage/internal/analyzer"
	"triage/internal/executor"
	"triage/internal/models"
	"triage/internal/session"
	"triage/internal/similarity"
)

// RemoteClient is the subset of *remoteclient.Client the orchestrator
// calls directly; catalog mutation and ingredient fan-out go through
// the Executor instead.
type RemoteClient interface {
	ListRecipes(ctx context.Context) ([]models.Recipe, error)
	ListUnits(ctx context.Context) ([]models.Unit, error)
	ListFoods(ctx context.Context) ([]models.Food, error)
}

// ProgressEvent is published once per ingredient-update completion and
// once per terminal BatchResult, realizing the "explicit message
// passing" design note: the shell (or internal/httpapi) renders from
// these events instead of observing executor internals.
type ProgressEvent struct {
	Type      string // "progress" | "batch_result" | "session"
	PatternID string
	Ref       *models.Ref
	Err       error
	Result    *models.BatchResult
	Patterns  []models.PatternGroup
}

// Orchestrator owns the catalog caches and SessionState for one run and
// is the only component allowed to mutate either.
type Orchestrator struct {
	client    RemoteClient
	exec      *executor.Executor
	store     *session.Store
	threshold float64
	log       zerolog.Logger

	saveMu sync.Mutex

	units   []models.Unit
	foods   []models.Food
	recipes []models.Recipe
	groups  []models.PatternGroup
	state   *models.SessionState

	events chan ProgressEvent
}

// New constructs an Orchestrator. eventBuffer sizes the ProgressEvent
// channel; 0 is a valid (unbuffered) choice for tests.
func New(client RemoteClient, exec *executor.Executor, store *session.Store, threshold float64, eventBuffer int, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client:    client,
		exec:      exec,
		store:     store,
		threshold: threshold,
		log:       log,
		events:    make(chan ProgressEvent, eventBuffer),
	}
}

// Events returns the channel ProgressEvents are published on. internal/httpapi
// subscribes to this to serve long-poll clients.
func (o *Orchestrator) Events() <-chan ProgressEvent {
	return o.events
}

// Bootstrap fetches recipes/units/foods in parallel,
// analyzes the snapshot, computes similarity suggestions, and reconciles
// with any resumable session. Any auth failure (surfaced as a non-nil
// error from the parallel fetch) halts before anything is persisted.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recipes, err := o.client.ListRecipes(gctx)
		o.recipes = recipes
		return err
	})
	g.Go(func() error {
		units, err := o.client.ListUnits(gctx)
		o.units = units
		return err
	})
	g.Go(func() error {
		foods, err := o.client.ListFoods(gctx)
		o.foods = foods
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	o.analyze()

	state, err := o.loadOrFreshSession()
	if err != nil {
		return err
	}
	o.state = state
	o.reconcile()
	return nil
}

func (o *Orchestrator) analyze() {
	dict := analyzer.NewUnitDictionary(o.units)
	groups := analyzer.Analyze(o.recipes, dict)
	o.groups = similarity.Compute(groups, o.threshold)
}

// loadOrFreshSession treats missing/corrupted/incompatible-schema
// identically at this layer: start a fresh SessionState. Callers
// that need to distinguish for UX purposes should inspect the logs,
// which do carry the distinct sentinel via errors.Is.
func (o *Orchestrator) loadOrFreshSession() (*models.SessionState, error) {
	state, err := o.store.Load()
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, models.ErrSessionMissing):
		return models.New(), nil
	default:
		o.log.Warn().Err(err).Msg("session could not be loaded; starting fresh")
		if discardErr := o.store.Discard(); discardErr != nil {
			return nil, discardErr
		}
		return models.New(), nil
	}
}

// reconcile drops completed/skipped pattern ids no longer present in the
// fresh analysis and leaves ids newly present untouched —
// they simply default to pending by absence from both sets.
func (o *Orchestrator) reconcile() {
	present := make(map[string]struct{}, len(o.groups))
	for _, g := range o.groups {
		present[g.ID] = struct{}{}
	}

	o.state.CompletedPatternIDs = intersect(o.state.CompletedPatternIDs, present)
	o.state.SkippedPatternIDs = intersect(o.state.SkippedPatternIDs, present)

	for i := range o.groups {
		switch {
		case o.state.IsCompleted(o.groups[i].ID):
			o.groups[i].Status = models.StatusCompleted
		case o.state.IsSkipped(o.groups[i].ID):
			o.groups[i].Status = models.StatusSkipped
		default:
			o.groups[i].Status = models.StatusPending
		}
	}
}

func intersect(ids []string, present map[string]struct{}) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Patterns returns the current pattern set, for presentation.
func (o *Orchestrator) Patterns() []models.PatternGroup {
	return o.groups
}

// Skip marks a pending pattern as skipped and persists the session.
func (o *Orchestrator) Skip(ctx context.Context, patternID string) error {
	o.state.Skip(patternID)
	o.setStatus(patternID, models.StatusSkipped)
	return o.persist(ctx)
}

// Unskip moves a skipped pattern back to pending and persists.
func (o *Orchestrator) Unskip(ctx context.Context, patternID string) error {
	o.state.Unskip(patternID)
	o.setStatus(patternID, models.StatusPending)
	return o.persist(ctx)
}

func (o *Orchestrator) setStatus(patternID string, status models.PatternStatus) {
	for i := range o.groups {
		if o.groups[i].ID == patternID {
			o.groups[i].Status = status
			return
		}
	}
}

// ProcessBatch builds a BatchOperation for patternID from the operator's
// decision, invokes the Batch Executor, folds the result into the
// catalog caches and SessionState, and persists. A pattern can never
// belong to more than one active batch at a time because this method is
// only ever called from the Orchestrator's single interactive loop
// goroutine.
func (o *Orchestrator) ProcessBatch(ctx context.Context, patternID string, kind models.OperationKind, payload models.OperationPayload, targetEntityID string, cancel *executor.CancelSignal) (models.BatchResult, error) {
	group := o.findGroup(patternID)
	if group == nil {
		return models.BatchResult{}, models.ErrPatternNotFound
	}
	if group.Status == models.StatusProcessing {
		return models.BatchResult{}, models.ErrPatternBusy
	}

	o.setStatus(patternID, models.StatusProcessing)

	op := models.BatchOperation{
		PatternID:      patternID,
		Kind:           kind,
		TargetEntityID: targetEntityID,
		Payload:        payload,
		Affected:       group.IngredientRefs,
	}

	o.exec.OnProgress = func(ref models.Ref, err error) {
		o.publish(ProgressEvent{Type: "progress", PatternID: patternID, Ref: &ref, Err: err})
	}

	result, refreshed, err := o.exec.Run(ctx, op, CatalogViewFrom(o.units, o.foods), cancel)
	if err != nil {
		o.setStatus(patternID, models.StatusPending)
		return result, err
	}

	o.foldResult(patternID, result, refreshed)
	o.publish(ProgressEvent{Type: "batch_result", PatternID: patternID, Result: &result})

	if persistErr := o.persist(ctx); persistErr != nil {
		return result, persistErr
	}
	return result, nil
}

func (o *Orchestrator) findGroup(patternID string) *models.PatternGroup {
	for i := range o.groups {
		if o.groups[i].ID == patternID {
			return &o.groups[i]
		}
	}
	return nil
}

// foldResult applies a BatchResult's effects to the orchestrator-owned
// caches and SessionState — the only place either is mutated.
func (o *Orchestrator) foldResult(patternID string, result models.BatchResult, refreshed *executor.RefreshedCatalog) {
	if refreshed != nil {
		if refreshed.Units != nil {
			o.units = *refreshed.Units
		}
		if refreshed.Foods != nil {
			o.foods = *refreshed.Foods
		}
	}

	switch result.FinalStatus {
	case models.FinalAllOK:
		o.state.MarkCompleted(patternID)
		o.setStatus(patternID, models.StatusCompleted)
		o.state.Stats.PatternsCompleted++
	default:
		o.setStatus(patternID, models.StatusPending)
	}

	o.state.Stats.IngredientsUpdated += len(result.Succeeded)
	if result.CreatedEntityID != "" {
		switch result.Op.Kind {
		case models.OpCreateUnit:
			o.state.CreatedUnitIDs = append(o.state.CreatedUnitIDs, result.CreatedEntityID)
			o.state.Stats.UnitsCreated++
		case models.OpCreateFood:
			o.state.CreatedFoodIDs = append(o.state.CreatedFoodIDs, result.CreatedEntityID)
			o.state.Stats.FoodsCreated++
		case models.OpAddFoodAlias:
			o.state.AliasAdditions = append(o.state.AliasAdditions, models.AliasAddition{
				FoodID: result.CreatedEntityID, Alias: result.Op.Payload.AliasText,
			})
			o.state.Stats.AliasesAdded++
		}
	}

	o.state.AppendOperation(models.OperationRecord{
		Timestamp: time.Now(),
		Op:        result.Op.Kind,
		PatternID: patternID,
		Count:     len(result.Succeeded) + len(result.Failed),
		Status:    result.FinalStatus,
	})
}

// persist serializes SessionState under the save mutex, per the
// totally-ordered save guarantee.
func (o *Orchestrator) persist(ctx context.Context) error {
	o.saveMu.Lock()
	defer o.saveMu.Unlock()
	o.state.Timestamp = time.Now()
	return o.store.Save(o.state)
}

func (o *Orchestrator) publish(ev ProgressEvent) {
	select {
	case o.events <- ev:
	default:
		o.log.Warn().Str("pattern_id", ev.PatternID).Msg("progress event dropped; no reader keeping up")
	}
}

// CatalogViewFrom adapts the orchestrator's owned slices into the
// executor's read-only validation view.
func CatalogViewFrom(units []models.Unit, foods []models.Food) executor.CatalogView {
	return executor.CatalogView{Units: units, Foods: foods}
}
