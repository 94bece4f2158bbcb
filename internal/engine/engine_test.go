package engine

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/implied/internal/graph"
	"github.com/roach88/implied/internal/ir"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func vv(t *testing.T, a string, cond ir.Condition, b string) *ir.Predicate {
	t.Helper()
	p, err := ir.NewPredicate(a, cond, b)
	require.NoError(t, err)
	return p
}

func vc(t *testing.T, v string, cond ir.Condition, k int64) *ir.Predicate {
	t.Helper()
	p, err := ir.MakePredicate(ir.ValueFromName(ir.MustName(v)), cond, ir.ValueFromConstant(k))
	require.NoError(t, err)
	return p
}

func TestInfer_Chain(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "z"),
	}, quiet())
	require.NoError(t, err)

	assert.Equal(t, []string{"x < z"}, res.Derived)
	assert.True(t, res.Satisfiable())
	assert.Equal(t, 2, res.Rounds, "one productive round plus one quiet round")
}

func TestInfer_LongChain(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "a", ir.Less, "b"),
		vv(t, "b", ir.Less, "c"),
		vv(t, "c", ir.Less, "d"),
		vv(t, "d", ir.Less, "e"),
	}, quiet())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"a < c", "a < d", "a < e",
		"b < d", "b < e",
		"c < e",
	}, res.Derived)
}

func TestInfer_Strictness(t *testing.T) {
	tests := []struct {
		name string
		in   []*ir.Predicate
		want []string
	}{
		{
			name: "strict then non-strict",
			in:   []*ir.Predicate{vv(t, "x", ir.Less, "y"), vv(t, "y", ir.LessEqual, "z")},
			want: []string{"x < z"},
		},
		{
			name: "both non-strict",
			in:   []*ir.Predicate{vv(t, "x", ir.LessEqual, "y"), vv(t, "y", ir.LessEqual, "z")},
			want: []string{"x <= z"},
		},
		{
			name: "greater chain",
			in:   []*ir.Predicate{vv(t, "x", ir.Greater, "y"), vv(t, "y", ir.GreaterEqual, "z")},
			want: []string{"x > z"},
		},
		{
			name: "opposite directions derive nothing",
			in:   []*ir.Predicate{vv(t, "x", ir.Less, "y"), vv(t, "y", ir.Greater, "z")},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Infer(tt.in, quiet())
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, res.Derived)
				return
			}
			assert.Equal(t, tt.want, res.Derived)
		})
	}
}

func TestInfer_EqualPairComposes(t *testing.T) {
	tests := []struct {
		name string
		in   []*ir.Predicate
		want []string
	}{
		{
			name: "strict continuation",
			in: []*ir.Predicate{
				vv(t, "x", ir.LessEqual, "y"),
				vv(t, "x", ir.GreaterEqual, "y"),
				vv(t, "y", ir.Greater, "z"),
			},
			want: []string{"x > z"},
		},
		{
			name: "non-strict continuation",
			in: []*ir.Predicate{
				vv(t, "x", ir.LessEqual, "y"),
				vv(t, "x", ir.GreaterEqual, "y"),
				vv(t, "y", ir.GreaterEqual, "z"),
			},
			want: []string{"x >= z"},
		},
		{
			name: "same as without the converse",
			in: []*ir.Predicate{
				vv(t, "x", ir.GreaterEqual, "y"),
				vv(t, "y", ir.Greater, "z"),
			},
			want: []string{"x > z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Infer(tt.in, quiet())
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Derived)
		})
	}
}

func TestInfer_EqualPairBound(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.LessEqual, "y"),
		vv(t, "y", ir.LessEqual, "x"),
		vc(t, "x", ir.Greater, 3),
	}, quiet())
	require.NoError(t, err)
	assert.Equal(t, []string{"y > 3"}, res.Derived)
}

func TestInfer_EqualPairStrictPathContradicts(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.LessEqual, "y"),
		vv(t, "x", ir.GreaterEqual, "y"),
		vv(t, "x", ir.Less, "z"),
		vv(t, "z", ir.Less, "y"),
	}, quiet())
	require.Error(t, err)
	assert.True(t, IsContradiction(err))
	require.NotEmpty(t, res.Contradictions)
	assert.True(t, res.Contradictions[0].Derived)
}

func TestInfer_ConstantPropagation(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vc(t, "y", ir.Less, 10),
	}, quiet())
	require.NoError(t, err)
	assert.Equal(t, []string{"x < 10"}, res.Derived)

	res, err = Infer([]*ir.Predicate{
		vv(t, "x", ir.GreaterEqual, "y"),
		vc(t, "y", ir.Greater, 3),
	}, quiet())
	require.NoError(t, err)
	assert.Equal(t, []string{"x > 3"}, res.Derived)
}

func TestInfer_ConstantOppositeDirectionIgnored(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vc(t, "y", ir.Greater, 5),
	}, quiet())
	require.NoError(t, err)
	assert.Empty(t, res.Derived)
}

func TestInfer_TighteningIsEmitted(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "z"),
		vv(t, "x", ir.LessEqual, "z"),
	}, quiet())
	require.NoError(t, err)
	assert.Equal(t, []string{"x < z"}, res.Derived)
}

func TestInfer_AlreadyKnownNotEmitted(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "z"),
		vv(t, "x", ir.Less, "z"),
	}, quiet())
	require.NoError(t, err)
	assert.Empty(t, res.Derived)
}

func TestInfer_InputContradiction(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "x", ir.Greater, "y"),
	}, quiet())
	require.Error(t, err)
	assert.True(t, IsContradiction(err))
	require.NotNil(t, res)

	require.Len(t, res.Contradictions, 1)
	c := res.Contradictions[0]
	assert.Equal(t, "x < y", c.Existing)
	assert.Equal(t, "x > y", c.Incoming)
	assert.False(t, c.Derived)
	assert.Empty(t, res.Derived)
}

func TestInfer_CycleContradiction(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "z"),
		vv(t, "z", ir.Less, "x"),
	}, quiet())
	require.Error(t, err)
	assert.True(t, IsContradiction(err))
	require.NotNil(t, res)
	require.NotEmpty(t, res.Contradictions)
	for _, c := range res.Contradictions {
		assert.True(t, c.Derived, "cycle conflicts come from the closure")
	}

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeContradiction, re.Code)
}

func TestOptimize_ContradictionOriginStable(t *testing.T) {
	g := graph.New()
	defer g.Close()
	require.NoError(t, g.Build([]*ir.Predicate{
		vv(t, "a", ir.Less, "b"),
		vv(t, "a", ir.Greater, "b"),
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "z"),
		vv(t, "z", ir.Less, "x"),
	}))

	opt := New(quiet())
	for pass := 1; pass <= 2; pass++ {
		res, err := opt.Optimize(g)
		require.Error(t, err)
		require.NotNil(t, res)

		var input, derived int
		for _, c := range res.Contradictions {
			if c.Derived {
				derived++
			} else {
				input++
			}
		}
		assert.Equal(t, 1, input, "pass %d", pass)
		assert.NotZero(t, derived, "pass %d", pass)
	}
}

func TestInfer_ContradictionsNotRepeated(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "z"),
		vv(t, "z", ir.Less, "x"),
		vv(t, "a", ir.Less, "b"),
		vv(t, "b", ir.Less, "c"),
	}, quiet())
	require.Error(t, err)

	seen := make(map[string]bool)
	for _, c := range res.Contradictions {
		key := c.Existing + "|" + c.Incoming
		assert.False(t, seen[key], "duplicate contradiction %s", key)
		seen[key] = true
	}
	assert.Contains(t, res.Derived, "a < c")
}

func TestInfer_SkipsInvalidInput(t *testing.T) {
	bad := &ir.Predicate{
		Left:  ir.ValueFromConstant(1),
		Cond:  ir.Less,
		Right: ir.ValueFromName(ir.MustName("x")),
	}
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		bad,
		vv(t, "y", ir.Less, "z"),
	}, quiet())
	require.NoError(t, err)
	assert.Equal(t, []string{"x < z"}, res.Derived)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Error(), "predicate 1")
}

func TestOptimize_FixedPoint(t *testing.T) {
	in := []*ir.Predicate{
		vv(t, "a", ir.Less, "b"),
		vv(t, "b", ir.LessEqual, "c"),
		vv(t, "c", ir.Less, "d"),
		vc(t, "d", ir.LessEqual, 100),
	}

	g := graph.New()
	defer g.Close()
	require.NoError(t, g.Build(in))

	opt := New(quiet())
	first, err := opt.Optimize(g)
	require.NoError(t, err)
	require.NotEmpty(t, first.Derived)

	second, err := opt.Optimize(g)
	require.NoError(t, err)
	assert.Empty(t, second.Derived, "closure must be idempotent on the same graph")

	// Rebuilding from the closed edge set derives nothing either.
	rebuilt := graph.New()
	defer rebuilt.Close()
	require.NoError(t, rebuilt.Build(g.Edges()))
	third, err := opt.Optimize(rebuilt)
	require.NoError(t, err)
	assert.Empty(t, third.Derived)
}

func TestOptimize_Deterministic(t *testing.T) {
	in := []*ir.Predicate{
		vv(t, "p", ir.Less, "q"),
		vv(t, "q", ir.Less, "r"),
		vv(t, "m", ir.LessEqual, "p"),
		vc(t, "r", ir.Less, 7),
	}

	first, err := Infer(in, quiet())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Infer(in, quiet())
		require.NoError(t, err)
		assert.Equal(t, first.Derived, again.Derived)
	}
}

func TestOptimize_Steps(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "z"),
		vc(t, "z", ir.Less, 0),
	}, quiet())
	require.NoError(t, err)

	require.Len(t, res.Steps, res.Len())
	for i, s := range res.Steps {
		assert.Equal(t, int64(i+1), s.Seq)
		assert.Equal(t, res.Derived[i], s.Text)
		assert.GreaterOrEqual(t, s.Round, 1)
		assert.NotEmpty(t, s.Via)
	}
}

func TestOptimize_DerivedQuota(t *testing.T) {
	_, err := Infer([]*ir.Predicate{
		vv(t, "a", ir.Less, "b"),
		vv(t, "b", ir.Less, "c"),
		vv(t, "c", ir.Less, "d"),
		vv(t, "d", ir.Less, "e"),
	}, quiet(), WithMaxDerived(2))
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))

	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "derived predicates", qe.Resource)
	assert.Equal(t, 2, qe.Limit)
}

func TestOptimize_RoundQuota(t *testing.T) {
	res, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "z"),
	}, quiet(), WithMaxRounds(1))
	require.Error(t, err)
	assert.Nil(t, res)

	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "rounds", qe.Resource)
}

func TestOptimize_LogsContradictions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "x"),
	}, WithLogger(logger))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=WARN msg=contradiction")
	assert.Contains(t, buf.String(), "closure complete")
}

func TestInfer_GraphHook(t *testing.T) {
	var edges []string
	calls := 0
	_, err := Infer([]*ir.Predicate{
		vv(t, "x", ir.Less, "y"),
		vv(t, "y", ir.Less, "z"),
	}, quiet(), WithGraphHook(func(g *graph.Graph) {
		calls++
		assert.Equal(t, 3, g.Size())
		for _, e := range g.Edges() {
			edges = append(edges, e.String())
		}
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"x < y", "x < z", "y < z"}, edges)
}

func TestOptimize_EmptyGraph(t *testing.T) {
	res, err := Infer(nil, quiet())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.Equal(t, 1, res.Rounds)
}
