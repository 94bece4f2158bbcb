package queryir

import (
	"strconv"
	"strings"
)

// Expr represents a node in a host WHERE expression tree.
//
// This is a sealed interface - only types in this package implement it.
// Both value and pointer forms of each node are accepted by Extract,
// Validate and the SQL compiler.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
	String() string
}

// VarRef references a variable (typically a column, possibly qualified as
// "t.col").
type VarRef struct {
	Name string
}

func (VarRef) exprNode() {}

func (v VarRef) String() string { return v.Name }

// IntConst is an integer literal.
type IntConst struct {
	Value int64
}

func (IntConst) exprNode() {}

func (c IntConst) String() string { return strconv.FormatInt(c.Value, 10) }

// TextConst is a literal the host kept as text. Extract accepts it only when
// the text is a signed decimal integer.
type TextConst struct {
	Text string
}

func (TextConst) exprNode() {}

func (c TextConst) String() string { return strconv.Quote(c.Text) }

// OpExpr is a binary operator application "Left Op Right".
//
// Op is the host's operator token (e.g. "<", ">=", "=", "+"). Only the four
// ordering operators take part in inference.
type OpExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (OpExpr) exprNode() {}

func (o OpExpr) String() string {
	return operand(o.Left) + " " + o.Op + " " + operand(o.Right)
}

// And is a conjunction: every argument must hold.
// An empty And is always true.
type And struct {
	Args []Expr
}

func (And) exprNode() {}

func (a And) String() string { return join(a.Args, " AND ") }

// Or is a disjunction. It is representable so hosts can hand over the whole
// tree, but it never yields predicates.
type Or struct {
	Args []Expr
}

func (Or) exprNode() {}

func (o Or) String() string { return join(o.Args, " OR ") }

// Select is a single-table query whose filter may be augmented with
// derived predicates before it is rendered back to the host.
type Select struct {
	From    string   // Table name
	Columns []string // Explicit column list (empty renders "*")
	Filter  Expr     // WHERE tree (nil = no filter)
}

// Conj builds a conjunction.
func Conj(args ...Expr) *And {
	return &And{Args: args}
}

// Cmp builds a comparison between two operands.
func Cmp(left Expr, op string, right Expr) *OpExpr {
	return &OpExpr{Op: op, Left: left, Right: right}
}

// Var builds a variable reference.
func Var(name string) *VarRef {
	return &VarRef{Name: name}
}

// Int builds an integer literal.
func Int(v int64) *IntConst {
	return &IntConst{Value: v}
}

func operand(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch e.(type) {
	case And, *And, Or, *Or, OpExpr, *OpExpr:
		return "(" + e.String() + ")"
	}
	return e.String()
}

func join(args []Expr, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = operand(a)
	}
	return strings.Join(parts, sep)
}
