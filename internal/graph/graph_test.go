package graph

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/implied/internal/assoc"
	"github.com/roach88/implied/internal/ir"
)

func pv(t *testing.T, l string, c ir.Condition, r string) *ir.Predicate {
	t.Helper()
	p, err := ir.NewPredicate(l, c, r)
	require.NoError(t, err)
	return p
}

// pc builds "variable cond constant".
func pc(t *testing.T, v string, c ir.Condition, n int64) *ir.Predicate {
	t.Helper()
	left, err := ir.ValueFromString(v)
	require.NoError(t, err)
	p, err := ir.MakePredicate(left, c, ir.ValueFromConstant(n))
	require.NoError(t, err)
	return p
}

func edgeText(t *testing.T, g *Graph, from, to string) string {
	t.Helper()
	n, ok := g.Node(ir.Name(from))
	require.True(t, ok, "node %s missing", from)
	e, ok := n.Edge(ir.Name(to))
	require.True(t, ok, "edge %s->%s missing", from, to)
	return e.String()
}

func edgeOf(t *testing.T, g *Graph, from, to string) *ir.Predicate {
	t.Helper()
	n, ok := g.Node(ir.Name(from))
	require.True(t, ok)
	e, ok := n.Edge(ir.Name(to))
	require.True(t, ok)
	return e
}

func TestInject_MirrorEdges(t *testing.T) {
	g := New()
	defer g.Close()

	out, err := g.Inject(pv(t, "x", ir.Less, "y"))
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)

	assert.Equal(t, 2, g.Size())
	assert.Equal(t, "x < y", edgeText(t, g, "x", "y"))
	assert.Equal(t, "y > x", edgeText(t, g, "y", "x"))
}

func TestInject_Ownership(t *testing.T) {
	g := New()
	defer g.Close()

	p := pv(t, "x", ir.Less, "y")
	_, err := g.Inject(p)
	require.NoError(t, err)

	x, _ := g.Node("x")
	s, ok := x.edges.Lookup("y")
	require.True(t, ok)
	assert.Equal(t, assoc.ByReference, s.Ownership())
	assert.Same(t, p, s.Value(), "caller predicate must be held by reference")

	y, _ := g.Node("y")
	s, ok = y.edges.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, assoc.ByValue, s.Ownership(), "mirror is graph-owned")

	d := pv(t, "a", ir.Less, "b")
	_, err = g.Derive(d)
	require.NoError(t, err)
	a, _ := g.Node("a")
	s, _ = a.edges.Lookup("b")
	assert.Equal(t, assoc.ByValue, s.Ownership())
}

func TestInject_ConstantBoundHasNoNode(t *testing.T) {
	g := New()
	defer g.Close()

	_, err := g.Inject(pc(t, "y", ir.Less, 10))
	require.NoError(t, err)

	assert.Equal(t, 1, g.Size())
	n, ok := g.Node("y")
	require.True(t, ok)
	assert.True(t, n.IsConstantBound())
	assert.Empty(t, n.Neighbors())

	up, ok := n.Upper()
	require.True(t, ok)
	assert.Equal(t, "y < 10", up.String())

	_, ok = n.Lower()
	assert.False(t, ok)
}

func TestAddEdge_DuplicatePolicy(t *testing.T) {
	tests := []struct {
		name     string
		first    ir.Condition
		second   ir.Condition
		outcome  Outcome
		keptEdge string
	}{
		{"strict tightens non-strict", ir.LessEqual, ir.Less, Tightened, "x < y"},
		{"non-strict does not loosen strict", ir.Less, ir.LessEqual, Unchanged, "x < y"},
		{"identical is unchanged", ir.Less, ir.Less, Unchanged, "x < y"},
		{"opposite non-strict makes the pair equal", ir.LessEqual, ir.GreaterEqual, Inserted, "x <= y"},
		{"opposite strict conflicts", ir.Less, ir.Greater, Conflicted, "x < y"},
		{"opposite mixed conflicts", ir.LessEqual, ir.Greater, Conflicted, "x <= y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			defer g.Close()

			_, err := g.Inject(pv(t, "x", tt.first, "y"))
			require.NoError(t, err)
			out, err := g.Inject(pv(t, "x", tt.second, "y"))
			require.NoError(t, err)

			assert.Equal(t, tt.outcome, out)
			assert.Equal(t, tt.keptEdge, edgeText(t, g, "x", "y"))

			kept := edgeOf(t, g, "x", "y")
			assert.Equal(t, kept.Mirror().String(), edgeText(t, g, "y", "x"),
				"mirror must stay in step")

			if tt.outcome == Conflicted {
				assert.Len(t, g.Conflicts(), 1)
			} else {
				assert.Empty(t, g.Conflicts())
			}
		})
	}
}

func TestAddEdge_EqualPair(t *testing.T) {
	g := New()
	defer g.Close()

	_, err := g.Inject(pv(t, "x", ir.LessEqual, "y"))
	require.NoError(t, err)
	out, err := g.Inject(pv(t, "y", ir.LessEqual, "x"))
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)

	x, _ := g.Node("x")
	conv, ok := x.Converse("y")
	require.True(t, ok)
	assert.Equal(t, "x >= y", conv.String())
	assert.Len(t, x.Readings("y"), 2)

	y, _ := g.Node("y")
	conv, ok = y.Converse("x")
	require.True(t, ok)
	assert.Equal(t, "y <= x", conv.String(), "mirror must stay in step")

	out, err = g.Inject(pv(t, "x", ir.GreaterEqual, "y"))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)

	out, err = g.Inject(pv(t, "x", ir.Less, "y"))
	require.NoError(t, err)
	assert.Equal(t, Conflicted, out)
	out, err = g.Inject(pv(t, "x", ir.Greater, "y"))
	require.NoError(t, err)
	assert.Equal(t, Conflicted, out)

	conflicts := g.Conflicts()
	require.Len(t, conflicts, 2)
	assert.Equal(t, "x < y contradicts x >= y", conflicts[0].String())
	assert.Equal(t, "x > y contradicts x <= y", conflicts[1].String())
	assert.Equal(t, "x <= y", edgeText(t, g, "x", "y"), "equal pair must not be tightened")

	var got []string
	for _, e := range g.Edges() {
		got = append(got, e.String())
	}
	assert.Equal(t, []string{"x <= y", "x >= y"}, got)
}

func TestConflict_Origin(t *testing.T) {
	g := New()
	defer g.Close()

	_, err := g.Inject(pv(t, "x", ir.Less, "y"))
	require.NoError(t, err)
	_, err = g.Inject(pv(t, "x", ir.Greater, "y"))
	require.NoError(t, err)
	_, err = g.Derive(pv(t, "y", ir.Less, "x"))
	require.NoError(t, err)
	_, err = g.Derive(pc(t, "x", ir.Less, math.MinInt64))
	require.NoError(t, err)

	conflicts := g.Conflicts()
	require.Len(t, conflicts, 3)
	assert.False(t, conflicts[0].Derived)
	assert.True(t, conflicts[1].Derived)
	assert.True(t, conflicts[2].Derived)
}

func TestAddEdge_BoundPolicy(t *testing.T) {
	tests := []struct {
		name    string
		first   *ir.Predicate
		second  *ir.Predicate
		outcome Outcome
		upper   string
		lower   string
	}{
		{"smaller upper tightens", pc(t, "x", ir.Less, 10), pc(t, "x", ir.Less, 5), Tightened, "x < 5", ""},
		{"larger upper unchanged", pc(t, "x", ir.Less, 5), pc(t, "x", ir.LessEqual, 9), Unchanged, "x < 5", ""},
		{"integer-equal upper keeps existing", pc(t, "x", ir.Less, 6), pc(t, "x", ir.LessEqual, 5), Unchanged, "x < 6", ""},
		{"strict tightens at same constant", pc(t, "x", ir.LessEqual, 6), pc(t, "x", ir.Less, 6), Tightened, "x < 6", ""},
		{"larger lower tightens", pc(t, "x", ir.Greater, 1), pc(t, "x", ir.GreaterEqual, 3), Tightened, "", "x >= 3"},
		{"both sides coexist", pc(t, "x", ir.Greater, 1), pc(t, "x", ir.Less, 10), Inserted, "x < 10", "x > 1"},
		{"single point is consistent", pc(t, "x", ir.GreaterEqual, 4), pc(t, "x", ir.LessEqual, 4), Inserted, "x <= 4", "x >= 4"},
		{"empty range conflicts", pc(t, "x", ir.Greater, 10), pc(t, "x", ir.Less, 5), Conflicted, "", "x > 10"},
		{"adjacent strict conflicts", pc(t, "x", ir.Greater, 4), pc(t, "x", ir.Less, 5), Conflicted, "", "x > 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			defer g.Close()

			_, err := g.Inject(tt.first)
			require.NoError(t, err)
			out, err := g.Inject(tt.second)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, out)

			n, _ := g.Node("x")
			if up, ok := n.Upper(); tt.upper != "" {
				require.True(t, ok)
				assert.Equal(t, tt.upper, up.String())
			} else {
				assert.False(t, ok)
			}
			if lo, ok := n.Lower(); tt.lower != "" {
				require.True(t, ok)
				assert.Equal(t, tt.lower, lo.String())
			} else {
				assert.False(t, ok)
			}
		})
	}
}

func TestAddEdge_UnsatisfiableBound(t *testing.T) {
	g := New()
	defer g.Close()

	out, err := g.Inject(pc(t, "x", ir.Less, math.MinInt64))
	require.NoError(t, err)
	assert.Equal(t, Conflicted, out)
	require.Len(t, g.Conflicts(), 1)
	assert.Contains(t, g.Conflicts()[0].String(), "unsatisfiable")
}

func TestAddEdge_WrongOrientation(t *testing.T) {
	g := New()
	defer g.Close()

	_, err := g.AddEdge("y", assoc.Borrowed(pv(t, "x", ir.Less, "y")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not oriented from y")
}

func TestInject_SelfRelation(t *testing.T) {
	g := New()
	defer g.Close()

	out, err := g.Inject(pv(t, "x", ir.LessEqual, "x"))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	assert.Empty(t, g.Conflicts())

	out, err = g.Inject(pv(t, "x", ir.Less, "x"))
	require.NoError(t, err)
	assert.Equal(t, Conflicted, out)
	require.Len(t, g.Conflicts(), 1)
	assert.Equal(t, "x < x is unsatisfiable", g.Conflicts()[0].String())

	n, ok := g.Node("x")
	require.True(t, ok)
	assert.Equal(t, 0, n.Degree())
}

func TestInject_RejectsMalformed(t *testing.T) {
	g := New()
	defer g.Close()

	_, err := g.Inject(nil)
	require.Error(t, err)

	bad := &ir.Predicate{Left: ir.ValueFromConstant(1), Cond: ir.Less, Right: ir.ValueFromName("x")}
	_, err = g.Inject(bad)
	require.Error(t, err)

	none := &ir.Predicate{Left: ir.ValueFromName("x"), Cond: ir.NoRelation, Right: ir.ValueFromName("y")}
	_, err = g.Inject(none)
	require.Error(t, err)
	assert.True(t, ir.IsSerializationError(err))
}

func TestBuild_SkipsInvalid(t *testing.T) {
	g := New()
	defer g.Close()

	err := g.Build([]*ir.Predicate{
		pv(t, "x", ir.Less, "y"),
		nil,
		pv(t, "y", ir.Less, "z"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predicate 1")

	assert.Equal(t, []ir.Name{"x", "y", "z"}, g.Names())
}

func TestBuild_ConflictRecorded(t *testing.T) {
	g := New()
	defer g.Close()

	require.NoError(t, g.Build([]*ir.Predicate{
		pv(t, "x", ir.Less, "y"),
		pv(t, "x", ir.Greater, "y"),
	}))

	conflicts := g.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "x > y contradicts x < y", conflicts[0].String())
	assert.Equal(t, "x < y", edgeText(t, g, "x", "y"), "original edge must not be overwritten")
}

func TestEdges_EachRelationOnce(t *testing.T) {
	g := New()
	defer g.Close()

	require.NoError(t, g.Build([]*ir.Predicate{
		pv(t, "y", ir.Less, "z"),
		pv(t, "x", ir.Less, "y"),
		pc(t, "z", ir.LessEqual, 100),
	}))

	var got []string
	for _, e := range g.Edges() {
		got = append(got, e.String())
	}
	assert.Equal(t, []string{"x < y", "y < z", "z <= 100"}, got)
}

func TestDump(t *testing.T) {
	g := New()
	defer g.Close()

	require.NoError(t, g.Build([]*ir.Predicate{
		pv(t, "x", ir.Less, "y"),
		pc(t, "x", ir.Greater, 0),
	}))

	var buf bytes.Buffer
	require.NoError(t, g.Dump(&buf))
	assert.Equal(t, "x\n  x < y\n  x > 0\ny\n  y > x\n", buf.String())
}

func TestClose_KeepsCallerPredicates(t *testing.T) {
	g := New()
	p := pv(t, "x", ir.Less, "y")
	require.NoError(t, g.Build([]*ir.Predicate{p}))

	g.Close()

	assert.Equal(t, 0, g.Size())
	assert.Equal(t, "x < y", p.String(), "caller predicate must be untouched")
	_, ok := g.Node("x")
	assert.False(t, ok)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.String())
	assert.Equal(t, "tightened", Tightened.String())
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "conflicted", Conflicted.String())
	assert.Equal(t, "unknown", Outcome(99).String())
	assert.True(t, Inserted.Changed())
	assert.False(t, Conflicted.Changed())
}
