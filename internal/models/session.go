package models

import "time"

// SchemaVersion is the current on-disk SessionState schema tag. The
// Session Store refuses to load a file stamped with a different value.
const SchemaVersion = "1.0"

// AliasAddition records one alias attached to a food during the session,
// so a resumed session can tell idempotent replays from fresh work.
type AliasAddition struct {
	FoodID string `json:"food_id"`
	Alias  string `json:"alias"`
}

// Stats is the running tally surfaced to the operator and persisted for
// the lifetime of the session.
type Stats struct {
	UnitsCreated       int `json:"units_created"`
	FoodsCreated       int `json:"foods_created"`
	AliasesAdded       int `json:"aliases_added"`
	IngredientsUpdated int `json:"ingredients_updated"`
	PatternsCompleted  int `json:"patterns_completed"`
	PatternsSkipped    int `json:"patterns_skipped"`
}

// OperationRecord is one entry in the capped recent-operations audit
// trail.
type OperationRecord struct {
	Timestamp time.Time   `json:"ts"`
	Op        OperationKind `json:"op"`
	PatternID string      `json:"pattern_id"`
	Count     int         `json:"count"`
	Status    FinalStatus `json:"status"`
}

// MaxRecentOperations bounds the recent_operations list so the session
// file cannot grow unboundedly across a long-running operator session.
const MaxRecentOperations = 50

// SessionState is the durable record of operator progress, serialized to
// exactly one JSON file by the Session Store.
//
// Invariant: CompletedPatternIDs and SkippedPatternIDs are disjoint at
// every observable state; un-skipping moves an id between the two sets
// atomically.
type SessionState struct {
	SchemaVersion       string            `json:"schema_version"`
	Timestamp           time.Time         `json:"timestamp"`
	CompletedPatternIDs []string          `json:"completed_pattern_ids"`
	SkippedPatternIDs   []string          `json:"skipped_pattern_ids"`
	ProcessedRecipeIDs  []string          `json:"processed_recipe_ids"`
	CreatedUnitIDs      []string          `json:"created_unit_ids"`
	CreatedFoodIDs      []string          `json:"created_food_ids"`
	AliasAdditions      []AliasAddition   `json:"alias_additions"`
	Stats               Stats             `json:"stats"`
	RecentOperations    []OperationRecord `json:"recent_operations"`
}

// New returns an empty, schema-tagged SessionState ready for a fresh
// session.
func New() *SessionState {
	return &SessionState{
		SchemaVersion:       SchemaVersion,
		Timestamp:           time.Now(),
		CompletedPatternIDs: []string{},
		SkippedPatternIDs:   []string{},
		ProcessedRecipeIDs:  []string{},
		CreatedUnitIDs:      []string{},
		CreatedFoodIDs:      []string{},
		AliasAdditions:      []AliasAddition{},
		RecentOperations:    []OperationRecord{},
	}
}

// AppendOperation records one operation in the capped audit trail,
// dropping the oldest entry once MaxRecentOperations is exceeded.
func (s *SessionState) AppendOperation(rec OperationRecord) {
	s.RecentOperations = append(s.RecentOperations, rec)
	if len(s.RecentOperations) > MaxRecentOperations {
		s.RecentOperations = s.RecentOperations[len(s.RecentOperations)-MaxRecentOperations:]
	}
}

// IsCompleted reports whether a pattern id is recorded as completed.
func (s *SessionState) IsCompleted(patternID string) bool {
	return contains(s.CompletedPatternIDs, patternID)
}

// IsSkipped reports whether a pattern id is recorded as skipped.
func (s *SessionState) IsSkipped(patternID string) bool {
	return contains(s.SkippedPatternIDs, patternID)
}

// MarkCompleted moves a pattern id into CompletedPatternIDs, removing it
// from SkippedPatternIDs if present so the disjointness invariant holds.
func (s *SessionState) MarkCompleted(patternID string) {
	s.SkippedPatternIDs = remove(s.SkippedPatternIDs, patternID)
	if !contains(s.CompletedPatternIDs, patternID) {
		s.CompletedPatternIDs = append(s.CompletedPatternIDs, patternID)
	}
}

// Skip moves a pattern id into SkippedPatternIDs.
func (s *SessionState) Skip(patternID string) {
	s.CompletedPatternIDs = remove(s.CompletedPatternIDs, patternID)
	if !contains(s.SkippedPatternIDs, patternID) {
		s.SkippedPatternIDs = append(s.SkippedPatternIDs, patternID)
	}
}

// Unskip moves a pattern id out of SkippedPatternIDs back to pending
// (i.e. present in neither set).
func (s *SessionState) Unskip(patternID string) {
	s.SkippedPatternIDs = remove(s.SkippedPatternIDs, patternID)
}

// Disjoint reports whether CompletedPatternIDs and SkippedPatternIDs
// share no id — the invariant the Session Store checks on load.
func (s *SessionState) Disjoint() bool {
	seen := make(map[string]struct{}, len(s.CompletedPatternIDs))
	for _, id := range s.CompletedPatternIDs {
		seen[id] = struct{}{}
	}
	for _, id := range s.SkippedPatternIDs {
		if _, ok := seen[id]; ok {
			return false
		}
	}
	return true
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func remove(ss []string, v string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
