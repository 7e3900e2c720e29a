package models

import "time"

// Kind distinguishes the two axes an unparsed ingredient fragment can be
// grouped along.
type Kind string

const (
	KindUnit Kind = "unit"
	KindFood Kind = "food"
)

// PatternStatus tracks a PatternGroup through the operator workflow.
//
//	pending ──(executor starts)──▶ processing
//	processing ──(all_ok)──▶ completed         (terminal for this session)
//	processing ──(partial|aborted)──▶ pending
//	pending ──(skip)──▶ skipped
//	skipped ──(unskip)──▶ pending
type PatternStatus string

const (
	StatusPending    PatternStatus = "pending"
	StatusProcessing PatternStatus = "processing"
	StatusCompleted  PatternStatus = "completed"
	StatusSkipped    PatternStatus = "skipped"
)

// PatternGroup is the set of ingredients sharing one canonicalized
// fragment, produced by the Pattern Analyzer and mutated only by the
// Orchestrator via the Session Store.
type PatternGroup struct {
	ID              string        `json:"id"`
	Kind            Kind          `json:"kind"`
	CanonicalText   string        `json:"canonical_text"`
	DisplayText     string        `json:"display_text"`
	IngredientRefs  []Ref         `json:"ingredient_refs"`
	RecipeIDs       []string      `json:"recipe_ids"`
	SimilarGroupIDs []string      `json:"similar_group_ids,omitempty"`
	Status          PatternStatus `json:"status"`
}

// OperationKind is a closed tagged union over the three operator
// decisions a PatternGroup can be resolved with.
type OperationKind string

const (
	OpCreateUnit     OperationKind = "create_unit"
	OpCreateFood     OperationKind = "create_food"
	OpAddFoodAlias   OperationKind = "add_food_alias"
)

// OperationPayload carries the name/abbreviation/description the operator
// supplied for the chosen action. Name is required for every Kind, so
// add_food_alias operations carry a Name too; other fields irrelevant to
// Kind are left zero.
type OperationPayload struct {
	Name         string `json:"name" validate:"required"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Description  string `json:"description,omitempty"`
	AliasText    string `json:"alias_text,omitempty"`
}

// BatchOperation is built transiently when the operator confirms an
// action and consumed by the Batch Executor.
type BatchOperation struct {
	PatternID      string            `json:"pattern_id"`
	Kind           OperationKind     `json:"kind" validate:"required,oneof=create_unit create_food add_food_alias"`
	TargetEntityID string            `json:"target_entity_id,omitempty"`
	Payload        OperationPayload  `json:"payload" validate:"required"`
	Affected       []Ref             `json:"affected"`
}

// FinalStatus classifies the outcome of one BatchOperation.
type FinalStatus string

const (
	FinalAllOK    FinalStatus = "all_ok"
	FinalPartial  FinalStatus = "partial"
	FinalAborted  FinalStatus = "aborted"
)

// FailedUpdate records one ingredient update that failed permanently.
type FailedUpdate struct {
	Ref       Ref    `json:"ref"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// BatchResult is produced by the Batch Executor and retained in the
// session's audit log; it determines the pattern's post-state.
type BatchResult struct {
	Op              BatchOperation `json:"op"`
	CreatedEntityID string         `json:"created_entity_id,omitempty"`
	Succeeded       []Ref          `json:"succeeded"`
	Failed          []FailedUpdate `json:"failed"`
	Duration        time.Duration  `json:"duration"`
	FinalStatus     FinalStatus    `json:"final_status"`
}
