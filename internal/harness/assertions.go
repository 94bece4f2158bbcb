package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/implied/internal/compiler"
	"github.com/roach88/implied/internal/engine"
	"github.com/roach88/implied/internal/ir"
	"github.com/roach88/implied/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Derived  []string // Full derived list for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nDerived:\n")
	if len(e.Derived) == 0 {
		fmt.Fprintf(&buf, "  (none)\n")
	}
	for i, d := range e.Derived {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, d)
	}

	return buf.String()
}

// assertDerivedExact checks the derived list matches, order included.
func assertDerivedExact(result *Result, assertion Assertion) error {
	equal := len(result.Derived) == len(assertion.Predicates)
	for i := 0; equal && i < len(result.Derived); i++ {
		equal = result.Derived[i] == assertion.Predicates[i]
	}
	if equal {
		return nil
	}
	return &AssertionError{
		Type:     AssertDerivedExact,
		Expected: fmt.Sprintf("derived %q", assertion.Predicates),
		Actual:   fmt.Sprintf("derived %q", result.Derived),
		Derived:  result.Derived,
	}
}

// assertDerivedContains checks every expected predicate was derived.
// Order and extra derivations are ignored.
func assertDerivedContains(result *Result, assertion Assertion) error {
	have := toSet(result.Derived)
	var missing []string
	for _, p := range assertion.Predicates {
		if !have[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertDerivedContains,
		Expected: fmt.Sprintf("derived to contain %q", assertion.Predicates),
		Actual:   fmt.Sprintf("missing %q", missing),
		Derived:  result.Derived,
	}
}

// assertDerivedExcludes checks no listed predicate was derived.
func assertDerivedExcludes(result *Result, assertion Assertion) error {
	have := toSet(result.Derived)
	var present []string
	for _, p := range assertion.Predicates {
		if have[p] {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertDerivedExcludes,
		Expected: fmt.Sprintf("derived to exclude %q", assertion.Predicates),
		Actual:   fmt.Sprintf("found %q", present),
		Derived:  result.Derived,
	}
}

// assertContradictionCount checks the exact number of contradictions.
func assertContradictionCount(result *Result, assertion Assertion) error {
	if len(result.Contradictions) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertContradictionCount,
		Expected: fmt.Sprintf("%d contradictions", assertion.Count),
		Actual:   fmt.Sprintf("%d contradictions %q", len(result.Contradictions), result.Contradictions),
		Derived:  result.Derived,
	}
}

// assertFixedPoint feeds inputs plus derived output back through the
// optimizer and checks nothing new appears.
func assertFixedPoint(result *Result, actx *AssertionContext) error {
	derived, errs := compiler.ParseAll(result.Derived)
	if len(errs) > 0 {
		return fmt.Errorf("fixed_point: derived output does not parse: %v", errs[0])
	}

	all := make([]*ir.Predicate, 0, len(actx.Inputs)+len(derived))
	all = append(all, actx.Inputs...)
	all = append(all, derived...)

	res, err := engine.Infer(all, actx.Options...)
	if err != nil && !engine.IsContradiction(err) {
		return fmt.Errorf("fixed_point: %w", err)
	}
	if res.Len() == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFixedPoint,
		Expected: "no further derivations",
		Actual:   fmt.Sprintf("second pass derived %q", res.Derived),
		Derived:  result.Derived,
	}
}

// assertReplayMatch replays the logged run and checks it is identical.
func assertReplayMatch(result *Result, actx *AssertionContext) error {
	rr, err := actx.Store.Replay(actx.Ctx, actx.RunID, actx.Options...)
	if err != nil {
		return fmt.Errorf("replay_match: %w", err)
	}
	if rr.Match {
		return nil
	}
	return &AssertionError{
		Type:     AssertReplayMatch,
		Expected: fmt.Sprintf("replay of %s to match", actx.RunID),
		Actual:   strings.Join(rr.Diffs, "; "),
		Derived:  result.Derived,
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store   *store.Store
	Ctx     context.Context
	RunID   string
	Inputs  []*ir.Predicate
	Options []engine.Option
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter is required by fixed_point and replay_match.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertDerivedExact:
			err = assertDerivedExact(result, assertion)
		case AssertDerivedContains:
			err = assertDerivedContains(result, assertion)
		case AssertDerivedExcludes:
			err = assertDerivedExcludes(result, assertion)
		case AssertContradictionCount:
			err = assertContradictionCount(result, assertion)
		case AssertFixedPoint:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: fixed_point requires input context", i)
			} else {
				err = assertFixedPoint(result, actx)
			}
		case AssertReplayMatch:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: replay_match requires database context", i)
			} else {
				err = assertReplayMatch(result, actx)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
