package compiler

import (
	"fmt"
	"strings"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported value for validation

	// PredicateSet errors (E120-E129)
	ErrSetNameEmpty       = "E120" // set name is required
	ErrSetEmpty           = "E121" // at least one predicate required
	ErrDuplicatePredicate = "E122" // same predicate listed twice
	ErrSelfRelation       = "E123" // x < x style strict self relation
	ErrStrictCycle        = "E124" // strict ordering cycle
	ErrEqualityCycle      = "E125" // non-strict cycle forcing equality
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether the error is advisory: the set is still usable.
func (e ValidationError) IsWarning() bool {
	return e.Code == ErrDuplicatePredicate || e.Code == ErrEqualityCycle
}

// Validate validates a compiled predicate set against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch set := v.(type) {
	case *PredicateSet:
		return validateSet(set)
	case PredicateSet:
		return validateSet(&set)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateSet(set *PredicateSet) []ValidationError {
	var errs []ValidationError

	// E120: name is required
	if strings.TrimSpace(set.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required and must be non-empty",
			Code:    ErrSetNameEmpty,
		})
	}

	// E121: at least one predicate
	if len(set.Predicates) == 0 {
		errs = append(errs, ValidationError{
			Field:   "predicates",
			Message: "at least one predicate is required",
			Code:    ErrSetEmpty,
		})
		return errs
	}

	seen := make(map[string]int)
	for i, p := range set.Predicates {
		field := fmt.Sprintf("predicates[%d]", i)
		text := p.String()

		// E122: duplicates
		if first, ok := seen[text]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s duplicates predicates[%d]", text, first),
				Code:    ErrDuplicatePredicate,
			})
		} else {
			seen[text] = i
		}

		// E123: strict self relation
		if !p.IsBound() && p.Left.Name() == p.Right.Name() && p.Cond.IsStrict() {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s can never hold", text),
				Code:    ErrSelfRelation,
			})
		}
	}

	// E124/E125: ordering cycles
	for _, w := range AnalyzeCycles(set.Predicates) {
		code := ErrEqualityCycle
		if w.Level == "error" {
			code = ErrStrictCycle
		}
		errs = append(errs, ValidationError{
			Field:   "predicates",
			Message: w.Message,
			Code:    code,
		})
	}

	return errs
}
