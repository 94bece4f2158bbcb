package ir

// Condition is an ordering relation between two operands.
type Condition int

const (
	// Greater is ">".
	Greater Condition = iota
	// Less is "<".
	Less
	// GreaterEqual is ">=".
	GreaterEqual
	// LessEqual is "<=".
	LessEqual
	// NoRelation means no relation is derivable. It has no textual form.
	NoRelation
)

var conditionTokens = map[Condition]string{
	Greater:      ">",
	Less:         "<",
	GreaterEqual: ">=",
	LessEqual:    "<=",
}

// ParseCondition maps an operator token to a Condition.
// Unrecognized tokens map to NoRelation.
func ParseCondition(tok string) Condition {
	switch tok {
	case ">":
		return Greater
	case "<":
		return Less
	case ">=":
		return GreaterEqual
	case "<=":
		return LessEqual
	default:
		return NoRelation
	}
}

// Token returns the canonical operator token.
// NoRelation (and any out-of-range value) fails with SERIALIZATION.
func (c Condition) Token() (string, error) {
	tok, ok := conditionTokens[c]
	if !ok {
		return "", newModelError(ErrCodeSerialization, "", "condition %d has no textual form", int(c))
	}
	return tok, nil
}

// String returns the token, or "none" for NoRelation. Use Token when the
// result is going to be emitted as predicate text.
func (c Condition) String() string {
	if tok, ok := conditionTokens[c]; ok {
		return tok
	}
	return "none"
}

// IsStrict reports whether c is < or >.
func (c Condition) IsStrict() bool {
	return c == Less || c == Greater
}

// IsUpper reports whether c bounds its left operand from above (< or <=).
func (c Condition) IsUpper() bool {
	return c == Less || c == LessEqual
}

// IsLower reports whether c bounds its left operand from below (> or >=).
func (c Condition) IsLower() bool {
	return c == Greater || c == GreaterEqual
}

// Reverse returns the relation seen from the other operand:
// > <-> <, >= <-> <=, NoRelation -> NoRelation. It is an involution.
func Reverse(c Condition) Condition {
	switch c {
	case Greater:
		return Less
	case Less:
		return Greater
	case GreaterEqual:
		return LessEqual
	case LessEqual:
		return GreaterEqual
	default:
		return NoRelation
	}
}

// Near returns the operators that point the same direction as c.
// For NoRelation it returns nil.
func Near(c Condition) []Condition {
	switch {
	case c.IsUpper():
		return []Condition{Less, LessEqual}
	case c.IsLower():
		return []Condition{Greater, GreaterEqual}
	default:
		return nil
	}
}

// Resolve composes "A op1 B" and "B op2 C" into "A op3 C".
//
// Both operators must point the same direction; otherwise NoRelation.
// The result is strict if either input is strict.
func Resolve(op1, op2 Condition) Condition {
	if !isNear(op1, op2) {
		return NoRelation
	}
	strict := op1.IsStrict() || op2.IsStrict()
	switch {
	case op1.IsUpper() && strict:
		return Less
	case op1.IsUpper():
		return LessEqual
	case strict:
		return Greater
	default:
		return GreaterEqual
	}
}

func isNear(op1, op2 Condition) bool {
	for _, c := range Near(op1) {
		if c == op2 {
			return true
		}
	}
	return false
}
