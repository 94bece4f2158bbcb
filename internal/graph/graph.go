package graph

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/roach88/implied/internal/assoc"
	"github.com/roach88/implied/internal/ir"
)

// Outcome reports what an edge insertion did to the graph.
type Outcome int

const (
	// Unchanged means an equal-or-tighter edge already existed.
	Unchanged Outcome = iota
	// Inserted means a new edge was recorded.
	Inserted
	// Tightened means an existing edge was replaced by a tighter one.
	Tightened
	// Conflicted means the edge contradicts an existing one and was not stored.
	Conflicted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Inserted:
		return "inserted"
	case Tightened:
		return "tightened"
	case Conflicted:
		return "conflicted"
	default:
		return "unknown"
	}
}

// Changed reports whether the graph gained information.
func (o Outcome) Changed() bool {
	return o == Inserted || o == Tightened
}

// Conflict records an incoming edge that contradicts the graph.
// Both predicates are oriented from the same variable. Existing equals
// Incoming when the predicate contradicts itself (x < x).
type Conflict struct {
	Existing *ir.Predicate
	Incoming *ir.Predicate
	Derived  bool // Incoming came from Derive rather than Inject
}

// String renders the conflict for diagnostics.
func (c Conflict) String() string {
	if c.Existing == c.Incoming {
		return fmt.Sprintf("%s is unsatisfiable", c.Incoming)
	}
	return fmt.Sprintf("%s contradicts %s", c.Incoming, c.Existing)
}

// Graph maps variable names to nodes.
type Graph struct {
	nodes     *assoc.Map[*Node]
	conflicts []Conflict
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: assoc.New[*Node]()}
}

// Node returns the node for name.
func (g *Graph) Node(name ir.Name) (*Node, bool) {
	return g.nodes.Get(string(name))
}

// Names returns all variable names in sorted order.
func (g *Graph) Names() []ir.Name {
	keys := g.nodes.Keys()
	out := make([]ir.Name, len(keys))
	for i, k := range keys {
		out[i] = ir.Name(k)
	}
	slices.Sort(out)
	return out
}

// Size returns the number of variable nodes.
func (g *Graph) Size() int {
	return g.nodes.Size()
}

// Conflicts returns every contradiction recorded so far, in detection order.
func (g *Graph) Conflicts() []Conflict {
	return slices.Clone(g.conflicts)
}

// Close tears down every node. Caller-supplied predicates stay valid.
func (g *Graph) Close() {
	g.nodes.Close()
	g.conflicts = nil
}

// ensureNode returns the node for name, creating an empty one if absent.
func (g *Graph) ensureNode(name ir.Name) *Node {
	if n, ok := g.nodes.Get(string(name)); ok {
		return n
	}
	n := newNode(name)
	g.nodes.Put(string(name), assoc.Owned(n))
	return n
}

// AddEdge records the edge in s on from's node, creating the node if needed.
// The edge must be oriented with from as its left operand. Conflicts are
// attributed to derivation when s is graph-owned.
//
// Duplicate policy for a variable pair:
//   - same direction: the strict edge wins; ties keep the existing edge
//   - opposite directions, both non-strict: both readings are kept (the
//     pair is equal) and later non-strict edges are Unchanged
//   - a strict edge on an equal pair, or opposite directions otherwise:
//     Conflicted, nothing stored
//
// Constant bounds keep the tighter integer limit (x < 6 and x <= 5 are
// equal; the existing one is kept) and conflict when the lower limit
// exceeds the upper. AddEdge touches one node only; use Inject to keep
// mirror edges in step.
func (g *Graph) AddEdge(from ir.Name, s assoc.Slot[*ir.Predicate]) (Outcome, error) {
	return g.addEdge(from, s, s.Ownership() == assoc.ByValue)
}

func (g *Graph) addEdge(from ir.Name, s assoc.Slot[*ir.Predicate], derived bool) (Outcome, error) {
	p := s.Value()
	if err := checkEdge(p); err != nil {
		return Unchanged, err
	}
	if p.Left.Name() != from {
		return Unchanged, fmt.Errorf("edge %s is not oriented from %s", p, from)
	}

	n := g.ensureNode(from)
	if p.IsBound() {
		return g.addBound(n, s, derived), nil
	}

	existing, ok := n.Edge(p.Right.Name())
	if !ok {
		n.edges.Put(edgeKey(p), s)
		return Inserted, nil
	}

	if converse, equal := n.Converse(p.Right.Name()); equal {
		if !p.Cond.IsStrict() {
			return Unchanged, nil
		}
		opposite := existing
		if existing.Cond.IsUpper() == p.Cond.IsUpper() {
			opposite = converse
		}
		g.conflict(opposite, p, derived)
		return Conflicted, nil
	}

	if existing.Cond.IsUpper() == p.Cond.IsUpper() {
		if p.Cond.IsStrict() && !existing.Cond.IsStrict() {
			n.edges.Put(edgeKey(p), s)
			return Tightened, nil
		}
		return Unchanged, nil
	}

	if !p.Cond.IsStrict() && !existing.Cond.IsStrict() {
		n.converse.Put(edgeKey(p), s)
		return Inserted, nil
	}
	g.conflict(existing, p, derived)
	return Conflicted, nil
}

func (g *Graph) conflict(existing, incoming *ir.Predicate, derived bool) {
	g.conflicts = append(g.conflicts, Conflict{Existing: existing, Incoming: incoming, Derived: derived})
}

func (g *Graph) addBound(n *Node, s assoc.Slot[*ir.Predicate], derived bool) Outcome {
	p := s.Value()
	limit, ok := inclusiveLimit(p)
	if !ok {
		g.conflict(p, p, derived)
		return Conflicted
	}

	key := edgeKey(p)
	if existing, found := n.edges.Get(key); found {
		cur, _ := inclusiveLimit(existing)
		if !tighter(p.Cond, limit, cur) {
			return Unchanged
		}
	}

	oppositeKey := LowerBoundKey
	if key == LowerBoundKey {
		oppositeKey = UpperBoundKey
	}
	if opposite, found := n.edges.Get(oppositeKey); found {
		other, _ := inclusiveLimit(opposite)
		if disjoint(p.Cond, limit, other) {
			g.conflict(opposite, p, derived)
			return Conflicted
		}
	}

	outcome := Inserted
	if n.edges.Has(key) {
		outcome = Tightened
	}
	n.edges.Put(key, s)
	return outcome
}

// Inject records a caller-supplied predicate. The predicate is held by
// reference and must stay valid for the graph's lifetime.
//
// Variable-variable predicates are recorded from both endpoints; the mirror
// edge is constructed and owned by the graph. Variable-constant predicates
// attach a bound to the variable's node.
func (g *Graph) Inject(p *ir.Predicate) (Outcome, error) {
	return g.inject(p, assoc.Borrowed(p), false)
}

// Derive records a predicate the graph constructed itself (closure output).
// Both the edge and its mirror are owned by the graph.
func (g *Graph) Derive(p *ir.Predicate) (Outcome, error) {
	return g.inject(p, assoc.Owned(p), true)
}

func (g *Graph) inject(p *ir.Predicate, s assoc.Slot[*ir.Predicate], derived bool) (Outcome, error) {
	if err := checkEdge(p); err != nil {
		return Unchanged, err
	}

	if !p.IsBound() && p.Left.Name() == p.Right.Name() {
		if p.Cond.IsStrict() {
			g.conflict(p, p, derived)
			return Conflicted, nil
		}
		g.ensureNode(p.Left.Name())
		return Unchanged, nil
	}

	outcome, err := g.addEdge(p.Left.Name(), s, derived)
	if err != nil || !outcome.Changed() || p.IsBound() {
		return outcome, err
	}

	mirror := p.Mirror()
	if _, err := g.addEdge(mirror.Left.Name(), assoc.Owned(mirror), derived); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// Build injects every predicate in order. Invalid predicates are skipped
// and reported together; the rest of the set is still built.
func (g *Graph) Build(preds []*ir.Predicate) error {
	var errs []error
	for i, p := range preds {
		if _, err := g.Inject(p); err != nil {
			errs = append(errs, fmt.Errorf("predicate %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Edges returns every stored relation once: variable pairs oriented from
// the lexically smaller name (both readings of an equal pair), then
// bounds. Order is deterministic.
func (g *Graph) Edges() []*ir.Predicate {
	var out []*ir.Predicate
	for _, name := range g.Names() {
		n, _ := g.Node(name)
		for _, other := range n.Neighbors() {
			if other < name {
				continue
			}
			out = append(out, n.Readings(other)...)
		}
		out = append(out, n.Bounds()...)
	}
	return out
}

func checkEdge(p *ir.Predicate) error {
	if p == nil {
		return errors.New("nil predicate")
	}
	if !p.Left.IsVariable() {
		return fmt.Errorf("predicate %s has no variable on the left", p)
	}
	if _, err := p.Cond.Token(); err != nil {
		return fmt.Errorf("predicate %s: %w", p, err)
	}
	return nil
}

// inclusiveLimit converts a bound to an inclusive integer limit:
// x < c is x <= c-1 and x > c is x >= c+1. ok is false when the bound
// admits no integer at all.
func inclusiveLimit(p *ir.Predicate) (int64, bool) {
	c := p.Right.Int()
	switch p.Cond {
	case ir.Less:
		if c == math.MinInt64 {
			return 0, false
		}
		return c - 1, true
	case ir.Greater:
		if c == math.MaxInt64 {
			return 0, false
		}
		return c + 1, true
	default:
		return c, true
	}
}

// tighter reports whether limit narrows cur in cond's direction.
func tighter(cond ir.Condition, limit, cur int64) bool {
	if cond.IsUpper() {
		return limit < cur
	}
	return limit > cur
}

// disjoint reports whether a bound with limit in cond's direction leaves
// no value alongside the opposite bound's limit.
func disjoint(cond ir.Condition, limit, opposite int64) bool {
	if cond.IsUpper() {
		return opposite > limit
	}
	return limit > opposite
}
