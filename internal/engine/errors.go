package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during the closure pass.
//
// Runtime errors include:
//   - Contradiction: two relations that cannot both hold
//   - Quota exceeded: the pass derived too much or ran too many rounds
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeContradiction indicates the predicate set is unsatisfiable.
	ErrCodeContradiction RuntimeErrorCode = "CONTRADICTION"

	// ErrCodeQuotaExceeded indicates the pass hit a resource limit.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ContradictionError describes a relation that contradicts one already known.
type ContradictionError struct {
	// Existing is the stored relation, in canonical text.
	Existing string

	// Incoming is the rejected relation, in canonical text.
	Incoming string

	// Derived is true when Incoming came from the closure rather than input.
	Derived bool
}

// Error implements the error interface.
func (e *ContradictionError) Error() string {
	origin := "input"
	if e.Derived {
		origin = "derived"
	}
	if e.Existing == e.Incoming {
		return fmt.Sprintf("contradiction: %s %s is unsatisfiable", origin, e.Incoming)
	}
	return fmt.Sprintf("contradiction: %s %s contradicts %s", origin, e.Incoming, e.Existing)
}

// IsContradiction returns true if the error reports a contradiction.
// Matches both RuntimeError with ErrCodeContradiction and ContradictionError.
// Uses errors.As to handle wrapped errors.
func IsContradiction(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeContradiction
	}
	var ce *ContradictionError
	return errors.As(err, &ce)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and QuotaExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// NewContradictionError summarizes contradictions found in a pass.
func NewContradictionError(cs []*ContradictionError) *RuntimeError {
	details := map[string]string{
		"count": fmt.Sprintf("%d", len(cs)),
	}
	if len(cs) > 0 {
		details["first"] = cs[0].Error()
	}
	return &RuntimeError{
		Code:    ErrCodeContradiction,
		Message: fmt.Sprintf("predicate set is unsatisfiable (%d contradiction(s))", len(cs)),
		Details: details,
	}
}
