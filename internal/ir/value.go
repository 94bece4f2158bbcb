package ir

import "strconv"

// Kind tags a Value as a numeric constant or a variable reference.
type Kind int

const (
	// Numeric values hold a signed integer constant.
	Numeric Kind = iota

	// Variable values hold a validated name.
	Variable
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "NUMERIC"
	case Variable:
		return "VARIABLE"
	default:
		return "UNKNOWN"
	}
}

// Value is a tagged scalar operand. Values are immutable.
type Value struct {
	kind     Kind
	name     Name
	constant int64
}

// ValueFromConstant builds a NUMERIC value.
func ValueFromConstant(n int64) Value {
	return Value{kind: Numeric, constant: n}
}

// ValueFromString builds a VARIABLE value from a name.
func ValueFromString(name string) (Value, error) {
	n, err := NewName(name)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: Variable, name: n}, nil
}

// ValueFromName builds a VARIABLE value from an already validated name.
func ValueFromName(n Name) Value {
	return Value{kind: Variable, name: n}
}

// ValueFromStringConstant parses text as a base-10 integer and builds a
// NUMERIC value. Non-numeric text fails with INVALID_CONSTANT.
func ValueFromStringConstant(text string) (Value, error) {
	n, ok := ParseInt(text)
	if !ok {
		return Value{}, newModelError(ErrCodeInvalidConstant, text, "not a base-10 integer")
	}
	return ValueFromConstant(n), nil
}

// Kind returns the value's tag.
func (v Value) Kind() Kind {
	return v.kind
}

// IsConstant reports whether v is NUMERIC.
func (v Value) IsConstant() bool {
	return v.kind == Numeric
}

// IsVariable reports whether v is a VARIABLE.
func (v Value) IsVariable() bool {
	return v.kind == Variable
}

// Name returns the variable name, or "" for constants.
func (v Value) Name() Name {
	return v.name
}

// Int returns the constant, or 0 for variables.
func (v Value) Int() int64 {
	return v.constant
}

// String renders the operand as it appears in predicate text.
func (v Value) String() string {
	if v.kind == Numeric {
		return strconv.FormatInt(v.constant, 10)
	}
	return string(v.name)
}
