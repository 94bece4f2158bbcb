package ir

import "fmt"

// Predicate is a comparison "Left Cond Right".
//
// INVARIANTS (enforced by the constructors):
//   - Left is always a variable
//   - Right is a variable or a constant
//   - Cond is never NoRelation
type Predicate struct {
	Left  Value
	Cond  Condition
	Right Value
}

// MakePredicate builds "left cond right", normalizing operand order so a
// constant always ends up on the right (5 < x becomes x > 5).
//
// Fails with INVALID_PREDICATE when both operands are constants or cond is
// NoRelation.
func MakePredicate(left Value, cond Condition, right Value) (*Predicate, error) {
	if cond < Greater || cond >= NoRelation {
		return nil, newModelError(ErrCodeInvalidPredicate, "", "predicate has no relation")
	}
	if left.IsConstant() && right.IsConstant() {
		return nil, newModelError(ErrCodeInvalidPredicate,
			fmt.Sprintf("%s %s %s", left, cond, right),
			"predicate compares two constants")
	}
	if left.IsConstant() {
		left, right = right, left
		cond = Reverse(cond)
	}
	return &Predicate{Left: left, Cond: cond, Right: right}, nil
}

// NewPredicate builds "var1 cond var2" between two variables.
func NewPredicate(var1 string, cond Condition, var2 string) (*Predicate, error) {
	l, err := ValueFromString(var1)
	if err != nil {
		return nil, err
	}
	r, err := ValueFromString(var2)
	if err != nil {
		return nil, err
	}
	return MakePredicate(l, cond, r)
}

// NewPredicateWithInt builds "constant cond variable".
// The result is normalized so the variable is on the left.
func NewPredicateWithInt(constant int64, cond Condition, variable string) (*Predicate, error) {
	v, err := ValueFromString(variable)
	if err != nil {
		return nil, err
	}
	return MakePredicate(ValueFromConstant(constant), cond, v)
}

// NewPredicateWithStrInt builds "constant cond variable" from constant text.
// Non-numeric text fails with INVALID_CONSTANT.
func NewPredicateWithStrInt(constant string, cond Condition, variable string) (*Predicate, error) {
	c, err := ValueFromStringConstant(constant)
	if err != nil {
		return nil, err
	}
	v, err := ValueFromString(variable)
	if err != nil {
		return nil, err
	}
	return MakePredicate(c, cond, v)
}

// IsBound reports whether the predicate bounds a variable by a constant.
func (p *Predicate) IsBound() bool {
	return p.Right.IsConstant()
}

// Mirror returns the same relation seen from the right operand.
// Only variable-variable predicates have a mirror; bounds return nil.
func (p *Predicate) Mirror() *Predicate {
	if p.IsBound() {
		return nil
	}
	return &Predicate{Left: p.Right, Cond: Reverse(p.Cond), Right: p.Left}
}

// Format renders the canonical text "<operand> <op> <operand>".
// Fails with SERIALIZATION if the condition has no textual form.
func (p *Predicate) Format() (string, error) {
	tok, err := p.Cond.Token()
	if err != nil {
		return "", err
	}
	return p.Left.String() + " " + tok + " " + p.Right.String(), nil
}

// String renders the predicate for logs and diagnostics.
func (p *Predicate) String() string {
	return p.Left.String() + " " + p.Cond.String() + " " + p.Right.String()
}

// FormatAll renders predicates in order, stopping at the first
// serialization error.
func FormatAll(preds []*Predicate) ([]string, error) {
	out := make([]string, 0, len(preds))
	for i, p := range preds {
		s, err := p.Format()
		if err != nil {
			return nil, fmt.Errorf("predicate %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
