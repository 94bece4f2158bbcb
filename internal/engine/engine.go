package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/implied/internal/dynarray"
	"github.com/roach88/implied/internal/graph"
	"github.com/roach88/implied/internal/ir"
)

// DefaultMaxDerived is the default maximum number of predicates one pass
// may derive. This prevents dense graphs from consuming unbounded memory.
const DefaultMaxDerived = 10000

// DefaultMaxRounds is the default maximum number of closure rounds.
const DefaultMaxRounds = 256

// Optimizer runs the transitive closure over a dependency graph.
//
// An Optimizer holds configuration only; it is safe to reuse across
// graphs and across goroutines as long as each graph is used by one.
type Optimizer struct {
	maxDerived int // Maximum derived predicates per pass (default: 10000)
	maxRounds  int // Maximum closure rounds per pass (default: 256)
	logger     *slog.Logger
	graphHook  func(*graph.Graph)
}

// Option allows configuration of optimizer parameters.
type Option func(*Optimizer)

// WithMaxDerived sets the derived predicate quota per pass.
//
// Default: 10000 predicates (DefaultMaxDerived)
// Use WithMaxDerived(0) to disable the limit.
// Use WithMaxDerived(2) for testing quota enforcement.
func WithMaxDerived(n int) Option {
	return func(o *Optimizer) {
		o.maxDerived = n
	}
}

// WithMaxRounds sets the round quota per pass.
//
// Default: 256 rounds (DefaultMaxRounds)
func WithMaxRounds(n int) Option {
	return func(o *Optimizer) {
		o.maxRounds = n
	}
}

// WithLogger sets the logger used for derivation and contradiction events.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithGraphHook registers fn to see the graph Infer built, after the
// closure ran and before the graph is released. fn must not retain it.
func WithGraphHook(fn func(*graph.Graph)) Option {
	return func(o *Optimizer) {
		o.graphHook = fn
	}
}

// New creates an Optimizer with the given options applied.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		maxDerived: DefaultMaxDerived,
		maxRounds:  DefaultMaxRounds,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Step records how one derived predicate was discovered.
type Step struct {
	Seq   int64   // Discovery order, starting at 1
	Round int     // Closure round that produced it
	Via   ir.Name // Intermediate variable B in "A op1 B, B op2 C"
	Text  string  // Canonical serialized form

	Predicate *ir.Predicate // Derived relation as stored in the graph
}

// Result is the outcome of one closure pass.
type Result struct {
	// Derived holds the canonical text of every newly stored relation, in
	// discovery order. Relations already present in the input are omitted.
	Derived []string

	// Steps carries provenance for each entry of Derived, index for index.
	Steps []Step

	// Contradictions lists relations rejected because they contradict the
	// graph. Empty when the set is satisfiable.
	Contradictions []*ContradictionError

	// Skipped lists input predicates Infer could not inject.
	Skipped []error

	// Rounds is the number of rounds run, including the final quiet one.
	Rounds int
}

// Len returns the number of derived predicates.
func (r *Result) Len() int {
	return len(r.Derived)
}

// Predicates returns the derived relations in discovery order.
func (r *Result) Predicates() []*ir.Predicate {
	out := make([]*ir.Predicate, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Predicate
	}
	return out
}

// Satisfiable reports whether the pass found no contradictions.
func (r *Result) Satisfiable() bool {
	return len(r.Contradictions) == 0
}

// run is the per-pass state.
type run struct {
	o       *Optimizer
	g       *graph.Graph
	out     *dynarray.Array
	steps   []Step
	clock   *Clock
	derived *QuotaEnforcer
	round   int
	changed bool
}

// Optimize derives every predicate implied by g and stores each one back
// into g. It runs rounds until one adds nothing.
//
// Returns QuotaExceededError (no result) if a quota is exceeded.
// Returns a non-nil Result together with a CONTRADICTION RuntimeError
// when the graph holds contradictory relations; Result.Derived is still
// populated with everything that could be stored.
func (o *Optimizer) Optimize(g *graph.Graph) (*Result, error) {
	r := &run{
		o:       o,
		g:       g,
		out:     dynarray.New(dynarray.DefaultCapacity),
		clock:   NewClock(),
		derived: NewQuotaEnforcer("derived predicates", o.maxDerived),
	}
	defer r.out.Free()

	rounds := NewQuotaEnforcer("rounds", o.maxRounds)
	for {
		if err := rounds.Check(); err != nil {
			o.logger.Error("closure quota exceeded", "error", err)
			return nil, err
		}
		r.round = rounds.Current()
		r.changed = false
		if err := r.pass(); err != nil {
			return nil, err
		}
		if !r.changed {
			break
		}
	}

	res := &Result{
		Derived:        r.out.Strings(),
		Steps:          r.steps,
		Contradictions: collectContradictions(g.Conflicts()),
		Rounds:         r.round,
	}

	o.logger.Debug("closure complete",
		"variables", g.Size(),
		"derived", res.Len(),
		"rounds", res.Rounds,
		"contradictions", len(res.Contradictions))

	if len(res.Contradictions) > 0 {
		for _, c := range res.Contradictions {
			o.logger.Warn("contradiction",
				"existing", c.Existing,
				"incoming", c.Incoming,
				"derived", c.Derived)
		}
		return res, NewContradictionError(res.Contradictions)
	}
	return res, nil
}

// pass runs one round over every intermediate variable in sorted order.
func (r *run) pass() error {
	for _, via := range r.g.Names() {
		b, _ := r.g.Node(via)
		neighbors := b.Neighbors()
		for _, a := range neighbors {
			// An equal pair contributes both its <= and >= readings.
			for _, ba := range b.Readings(a) {
				op1 := ir.Reverse(ba.Cond) // a op1 b

				for _, c := range neighbors {
					if c == a {
						continue
					}
					for _, bc := range b.Readings(c) {
						if err := r.compose(via, ir.ValueFromName(a), op1, bc); err != nil {
							return err
						}
					}
				}

				for _, bound := range b.Bounds() {
					if err := r.compose(via, ir.ValueFromName(a), op1, bound); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// compose derives "a op3 rhs" from "a op1 b" and "b op2 rhs".
func (r *run) compose(via ir.Name, a ir.Value, op1 ir.Condition, bc *ir.Predicate) error {
	op3 := ir.Resolve(op1, bc.Cond)
	if op3 == ir.NoRelation {
		return nil
	}

	p := &ir.Predicate{Left: a, Cond: op3, Right: bc.Right}
	outcome, err := r.g.Derive(p)
	if err != nil {
		return fmt.Errorf("derive %s via %s: %w", p, via, err)
	}
	if !outcome.Changed() {
		return nil
	}
	r.changed = true

	text, err := p.Format()
	if err != nil {
		return err
	}
	if err := r.derived.Check(); err != nil {
		r.o.logger.Error("closure quota exceeded", "error", err)
		return err
	}
	r.out.Push(text)
	step := Step{
		Seq:   r.clock.Next(),
		Round: r.round,
		Via:   via,
		Text:  text,

		Predicate: p,
	}
	r.steps = append(r.steps, step)

	r.o.logger.Debug("predicate derived",
		"predicate", text,
		"outcome", outcome.String(),
		"via", string(via),
		"round", r.round,
		"seq", step.Seq)
	return nil
}

// collectContradictions converts graph conflicts into errors, dropping
// repeats. A closure round re-attempts rejected compositions, so the
// same conflict can be recorded once per round.
func collectContradictions(cs []graph.Conflict) []*ContradictionError {
	var out []*ContradictionError
	seen := make(map[string]bool)
	for _, c := range cs {
		existing, incoming := canonical(c.Existing), canonical(c.Incoming)
		key := existing + "|" + incoming
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, &ContradictionError{
			Existing: existing,
			Incoming: incoming,
			Derived:  c.Derived,
		})
	}
	return out
}

// canonical renders p oriented from the lexically smaller variable, so a
// conflict seen from either endpoint produces the same text.
func canonical(p *ir.Predicate) string {
	if m := p.Mirror(); m != nil && m.Left.Name() < p.Left.Name() {
		p = m
	}
	return p.String()
}

// Infer builds a graph from preds, optimizes it, and releases it.
//
// Predicates that cannot be injected are skipped and listed in
// Result.Skipped; the rest of the set is still optimized.
func Infer(preds []*ir.Predicate, opts ...Option) (*Result, error) {
	g := graph.New()
	defer g.Close()

	var skipped []error
	for i, p := range preds {
		if _, err := g.Inject(p); err != nil {
			skipped = append(skipped, fmt.Errorf("predicate %d: %w", i, err))
		}
	}

	o := New(opts...)
	res, err := o.Optimize(g)
	if o.graphHook != nil {
		o.graphHook(g)
	}
	if res != nil {
		res.Skipped = skipped
	}
	return res, err
}
