package engine

import (
	"errors"
	"fmt"
)

// ErrWriteConflict is returned by declaration writers when a write's base
// fingerprint no longer matches the materialized declaration - another
// recomputation got there first. The engine resolves it by scheduling one
// follow-up recompute on the freshest snapshot; the stale write is discarded,
// never partially applied.
var ErrWriteConflict = errors.New("declaration write conflict")

// ReconcileError represents a failure detected during a recompute pass.
//
// UnresolvedReference is deliberately NOT an error: unresolved lines are
// expected legacy data, contribute nothing, and surface as warnings.
type ReconcileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RecipeID identifies the affected recipe.
	RecipeID string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes reconciliation errors.
type ErrorCode string

const (
	// ErrCodeMalformedOverrides indicates the manual override record was
	// missing or unparseable. Recovered locally with an empty record; this
	// code appears only in logs, never aborts a recompute.
	ErrCodeMalformedOverrides ErrorCode = "MALFORMED_OVERRIDES"

	// ErrCodeInvariantViolation indicates the reconciled declaration broke a
	// safety invariant (e.g. contains/may-contain overlap). Never coerced:
	// the write is rejected and the violation alerted.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeWriteConflict indicates two recomputations raced on the same
	// recipe's declaration. Surfaced as a retry signal, never as data loss.
	ErrCodeWriteConflict ErrorCode = "WRITE_CONFLICT"
)

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	if e.RecipeID != "" {
		return fmt.Sprintf("%s: %s (recipe=%s)", e.Code, e.Message, e.RecipeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvariantViolation reports whether err is an invariant violation.
// Uses errors.As to handle wrapped errors.
func IsInvariantViolation(err error) bool {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvariantViolation
	}
	return false
}

// IsWriteConflict reports whether err is a declaration write conflict.
func IsWriteConflict(err error) bool {
	if errors.Is(err, ErrWriteConflict) {
		return true
	}
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Code == ErrCodeWriteConflict
	}
	return false
}

// NewInvariantViolation creates a ReconcileError for a broken invariant.
func NewInvariantViolation(recipeID, message string, details map[string]string) *ReconcileError {
	return &ReconcileError{
		Code:     ErrCodeInvariantViolation,
		Message:  message,
		RecipeID: recipeID,
		Details:  details,
	}
}
