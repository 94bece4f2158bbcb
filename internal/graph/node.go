package graph

import (
	"slices"

	"github.com/roach88/implied/internal/assoc"
	"github.com/roach88/implied/internal/ir"
)

// Reserved adjacency keys for constant bounds. ir.NewName rejects '$', so
// no variable can collide with them.
const (
	LowerBoundKey = "$lower"
	UpperBoundKey = "$upper"
)

// Node is the per-variable record of known relations.
//
// edges holds one relation per neighbor plus the bound keys. converse
// holds the opposite non-strict reading for neighbors known to be equal
// (x <= y and x >= y).
type Node struct {
	name     ir.Name
	edges    *assoc.Map[*ir.Predicate]
	converse *assoc.Map[*ir.Predicate]
}

func newNode(name ir.Name) *Node {
	return &Node{
		name:     name,
		edges:    assoc.New[*ir.Predicate](),
		converse: assoc.New[*ir.Predicate](),
	}
}

// Name returns the node's variable name.
func (n *Node) Name() ir.Name {
	return n.name
}

// Edge returns the edge to another variable.
func (n *Node) Edge(other ir.Name) (*ir.Predicate, bool) {
	return n.edges.Get(string(other))
}

// Converse returns the second reading of an equal pair: the non-strict
// edge pointing opposite to Edge(other).
func (n *Node) Converse(other ir.Name) (*ir.Predicate, bool) {
	return n.converse.Get(string(other))
}

// Readings returns every stored relation to other: the edge, then the
// converse when the pair is equal. Nil when the variables are unlinked.
func (n *Node) Readings(other ir.Name) []*ir.Predicate {
	e, ok := n.Edge(other)
	if !ok {
		return nil
	}
	if c, ok := n.Converse(other); ok {
		return []*ir.Predicate{e, c}
	}
	return []*ir.Predicate{e}
}

// Neighbors returns the names of linked variables in sorted order.
// Bound keys are excluded.
func (n *Node) Neighbors() []ir.Name {
	var out []ir.Name
	for _, k := range n.edges.Keys() {
		if isBoundKey(k) {
			continue
		}
		out = append(out, ir.Name(k))
	}
	slices.Sort(out)
	return out
}

// Lower returns the constant lower bound (x > c or x >= c), if any.
func (n *Node) Lower() (*ir.Predicate, bool) {
	return n.edges.Get(LowerBoundKey)
}

// Upper returns the constant upper bound (x < c or x <= c), if any.
func (n *Node) Upper() (*ir.Predicate, bool) {
	return n.edges.Get(UpperBoundKey)
}

// IsConstantBound reports whether the variable has any constant bound.
func (n *Node) IsConstantBound() bool {
	return n.edges.Has(LowerBoundKey) || n.edges.Has(UpperBoundKey)
}

// Bounds returns the constant bounds, lower first.
func (n *Node) Bounds() []*ir.Predicate {
	var out []*ir.Predicate
	if p, ok := n.Lower(); ok {
		out = append(out, p)
	}
	if p, ok := n.Upper(); ok {
		out = append(out, p)
	}
	return out
}

// Degree returns the number of entries held by the node, bounds and
// converse readings included.
func (n *Node) Degree() int {
	return n.edges.Size() + n.converse.Size()
}

// Release implements assoc.Releaser. It tears down the adjacency map,
// releasing graph-owned edges and leaving caller predicates untouched.
func (n *Node) Release() {
	n.edges.Close()
	n.converse.Close()
}

func isBoundKey(k string) bool {
	return k == LowerBoundKey || k == UpperBoundKey
}

// edgeKey returns the adjacency key for an edge oriented from its left operand.
func edgeKey(p *ir.Predicate) string {
	if p.IsBound() {
		if p.Cond.IsUpper() {
			return UpperBoundKey
		}
		return LowerBoundKey
	}
	return string(p.Right.Name())
}
