package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/implied/internal/ir"
)

// ExtractError reports a conjunct Extract could not turn into a predicate.
type ExtractError struct {
	Index  int    // Position in the flattened conjunct list
	Expr   string // Rendered conjunct
	Reason string // Why it was skipped
	Err    error  // Underlying model error, if any
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	return fmt.Sprintf("conjunct %d (%s): %s", e.Index, e.Expr, e.Reason)
}

// Unwrap exposes the underlying model error so ir.IsInvalidConstant and
// friends see through an ExtractError.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Extract converts the usable comparisons of a WHERE tree into predicates.
//
// The root may be a single comparison or a (possibly nested) And. Each
// conjunct that falls outside the transitive fragment is skipped; all
// skipped conjuncts are returned together as a joined error of
// *ExtractError values. The predicates are valid even when err != nil.
//
// Extract is a pure function with no side effects.
func Extract(root Expr) ([]*ir.Predicate, error) {
	var (
		preds []*ir.Predicate
		errs  []error
	)
	for i, c := range Conjuncts(root) {
		p, err := extractConjunct(i, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		preds = append(preds, p)
	}
	return preds, errors.Join(errs...)
}

// Conjuncts flattens nested And nodes into one list in source order.
// A nil root has no conjuncts; any other non-And root is a single conjunct.
func Conjuncts(root Expr) []Expr {
	var out []Expr
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case nil:
		case And:
			for _, a := range n.Args {
				walk(a)
			}
		case *And:
			if n == nil {
				return
			}
			for _, a := range n.Args {
				walk(a)
			}
		default:
			out = append(out, e)
		}
	}
	walk(root)
	return out
}

func extractConjunct(i int, e Expr) (*ir.Predicate, *ExtractError) {
	fail := func(err error, format string, args ...any) *ExtractError {
		return &ExtractError{
			Index:  i,
			Expr:   e.String(),
			Reason: fmt.Sprintf(format, args...),
			Err:    err,
		}
	}

	var op OpExpr
	switch n := e.(type) {
	case OpExpr:
		op = n
	case *OpExpr:
		op = *n
	case Or, *Or:
		return nil, fail(nil, "disjunction is outside the transitive fragment")
	default:
		return nil, fail(nil, "unsupported expression %T", e)
	}

	cond := ir.ParseCondition(op.Op)
	if cond == ir.NoRelation {
		return nil, fail(nil, "operator %q is not an ordering comparison", op.Op)
	}

	left, err := extractValue(op.Left)
	if err != nil {
		return nil, fail(err, "left operand: %v", err)
	}
	right, err := extractValue(op.Right)
	if err != nil {
		return nil, fail(err, "right operand: %v", err)
	}

	p, err := ir.MakePredicate(left, cond, right)
	if err != nil {
		return nil, fail(err, "%v", err)
	}
	return p, nil
}

func extractValue(e Expr) (ir.Value, error) {
	switch n := e.(type) {
	case VarRef:
		return ir.ValueFromString(n.Name)
	case *VarRef:
		return ir.ValueFromString(n.Name)
	case IntConst:
		return ir.ValueFromConstant(n.Value), nil
	case *IntConst:
		return ir.ValueFromConstant(n.Value), nil
	case TextConst:
		return ir.ValueFromStringConstant(n.Text)
	case *TextConst:
		return ir.ValueFromStringConstant(n.Text)
	case nil:
		return ir.Value{}, fmt.Errorf("missing operand")
	default:
		return ir.Value{}, fmt.Errorf("%s is not a variable or integer constant", operand(e))
	}
}

// FromPredicate renders a predicate back as a comparison node, the inverse
// of Extract for a single conjunct.
func FromPredicate(p *ir.Predicate) Expr {
	return &OpExpr{
		Op:    p.Cond.String(),
		Left:  fromValue(p.Left),
		Right: fromValue(p.Right),
	}
}

// Augment returns the conjunction of root's conjuncts followed by preds.
// Nested And nodes in root are flattened; other nodes are kept as is.
func Augment(root Expr, preds []*ir.Predicate) *And {
	args := Conjuncts(root)
	for _, p := range preds {
		args = append(args, FromPredicate(p))
	}
	return &And{Args: args}
}

func fromValue(v ir.Value) Expr {
	if v.IsConstant() {
		return &IntConst{Value: v.Int()}
	}
	return &VarRef{Name: v.Name().String()}
}
