package models

import "errors"

// Validation errors surfaced by pre-flight checks in the Batch Executor.
var (
	ErrEmptyName          = errors.New("name cannot be empty after trim")
	ErrDuplicateUnitName  = errors.New("unit name or abbreviation already exists in catalog")
	ErrDuplicateFoodName  = errors.New("food name already exists in catalog")
	ErrUnknownTargetFood  = errors.New("target food id does not resolve in cache")
	ErrEmptyAlias         = errors.New("alias text cannot be empty")
	ErrAliasAlreadyExists = errors.New("alias is already attached to this food")
)

// Session Store load errors, distinguished in logs even though the UX
// treats them identically (offer "start fresh").
var (
	ErrSessionMissing            = errors.New("session file does not exist")
	ErrSessionCorrupted          = errors.New("session file is corrupted")
	ErrSessionIncompatibleSchema = errors.New("session file has an incompatible schema version")
)

// Orchestrator-level errors.
var (
	ErrPatternNotFound  = errors.New("pattern group not found in current analysis")
	ErrPatternBusy      = errors.New("pattern already belongs to an active batch operation")
	ErrAuthHalt         = errors.New("authentication failed; session halted")
	ErrWidthExceedsPool = errors.New("batch width must not exceed connection pool size")
)
