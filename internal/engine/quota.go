package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer tracks consumption of one resource during a closure pass
// and enforces a maximum.
//
// Each pass has its own enforcers: one for derived predicates, one for
// rounds. Together they bound the work a dense graph can cause.
//
// CRITICAL DISTINCTION:
//   - Derived quota: catches output blow-up (many relations in few rounds)
//   - Round quota: catches long chains that keep tightening
type QuotaEnforcer struct {
	resource string
	limit    int
	current  int
}

// NewQuotaEnforcer creates a quota enforcer for resource with the given limit.
// A non-positive limit disables enforcement.
func NewQuotaEnforcer(resource string, limit int) *QuotaEnforcer {
	return &QuotaEnforcer{
		resource: resource,
		limit:    limit,
	}
}

// Check increments the counter and validates against the limit.
//
// Returns QuotaExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check() error {
	q.current++
	if q.limit > 0 && q.current > q.limit {
		return &QuotaExceededError{
			Resource: q.resource,
			Count:    q.current,
			Limit:    q.limit,
		}
	}
	return nil
}

// Current returns the current count.
// Used for logging and diagnostics.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// Limit returns the configured limit.
func (q *QuotaEnforcer) Limit() int {
	return q.limit
}

// QuotaExceededError is returned when a pass exceeds a resource quota.
//
// This error is fatal for the pass: no partial result is returned.
type QuotaExceededError struct {
	Resource string // "derived predicates" or "rounds"
	Count    int    // Amount consumed when the check failed
	Limit    int    // Maximum allowed
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("closure exceeded %s quota: %d > %d limit",
		e.Resource, e.Count, e.Limit)
}

// RuntimeError converts the quota error into the common runtime error shape.
func (e *QuotaExceededError) RuntimeError() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: e.Error(),
		Details: map[string]string{
			"resource": e.Resource,
			"count":    fmt.Sprintf("%d", e.Count),
			"limit":    fmt.Sprintf("%d", e.Limit),
		},
	}
}

// IsQuotaExceededError returns true if the error is a QuotaExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaExceededError(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
