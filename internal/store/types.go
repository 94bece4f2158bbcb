package store

import (
	"fmt"

	"github.com/roach88/implied/internal/engine"
	"github.com/roach88/implied/internal/ir"
)

// Run is one recorded optimizer pass.
type Run struct {
	ID             string
	Seq            int64 // Logical order; assigned by WriteRun when zero
	SetName        string
	InputHash      string
	DerivationHash string
	Rounds         int
	Satisfiable    bool
	Options        RunOptions
	EngineVersion  string
	IRVersion      string

	Inputs         []string // Canonical input text, submission order
	Derivations    []Derivation
	Contradictions []Contradiction
}

// RunOptions are the optimizer quotas a run used; replay applies them again.
type RunOptions struct {
	MaxDerived int `json:"max_derived"`
	MaxRounds  int `json:"max_rounds"`
}

// EngineOptions converts the stored quotas to optimizer options.
func (o RunOptions) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithMaxDerived(o.MaxDerived),
		engine.WithMaxRounds(o.MaxRounds),
	}
}

// Derivation is one derived predicate of a run.
type Derivation struct {
	Seq       int64
	Round     int
	Via       string
	Predicate string
}

// Contradiction is one rejected relation of a run.
type Contradiction struct {
	Seq      int64
	Existing string
	Incoming string
	Derived  bool
}

// DerivedTexts returns the derived predicate text in order.
func (r Run) DerivedTexts() []string {
	out := make([]string, len(r.Derivations))
	for i, d := range r.Derivations {
		out[i] = d.Predicate
	}
	return out
}

// NewRun assembles a Run from a finished pass. res may carry
// contradictions; a nil res is an error.
func NewRun(id, setName string, inputs []*ir.Predicate, res *engine.Result, opts RunOptions) (Run, error) {
	if res == nil {
		return Run{}, fmt.Errorf("new run: nil result")
	}

	texts, err := ir.FormatAll(inputs)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	inputHash, err := ir.PredicateSetHash(inputs)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}

	run := Run{
		ID:             id,
		SetName:        setName,
		InputHash:      inputHash,
		DerivationHash: ir.DerivationHash(res.Derived),
		Rounds:         res.Rounds,
		Satisfiable:    res.Satisfiable(),
		Options:        opts,
		EngineVersion:  ir.EngineVersion,
		IRVersion:      ir.IRVersion,
		Inputs:         texts,
	}
	for _, s := range res.Steps {
		run.Derivations = append(run.Derivations, Derivation{
			Seq:       s.Seq,
			Round:     s.Round,
			Via:       string(s.Via),
			Predicate: s.Text,
		})
	}
	for i, c := range res.Contradictions {
		run.Contradictions = append(run.Contradictions, Contradiction{
			Seq:      int64(i + 1),
			Existing: c.Existing,
			Incoming: c.Incoming,
			Derived:  c.Derived,
		})
	}
	return run, nil
}
