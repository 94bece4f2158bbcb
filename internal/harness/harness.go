package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/implied/internal/compiler"
	"github.com/roach88/implied/internal/engine"
	"github.com/roach88/implied/internal/ir"
	"github.com/roach88/implied/internal/store"
	"github.com/roach88/implied/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fixed run ID against a private run log.
type Harness struct {
	store  *store.Store
	runIDs store.RunIDGenerator
	logger *slog.Logger
	opts   store.RunOptions
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Parse the scenario predicates
// 3. Run the optimizer and log the run
// 4. Evaluate assertions
//
// Contradictions are part of the result, not an error. Unparseable
// predicates and exceeded quotas are returned as errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: testutil.NewFixedRunID(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		opts:   scenarioOptions(scenario),
	}

	ctx := context.Background()

	preds, errs := compiler.ParseAll(scenario.Predicates)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to parse predicates: %w", errors.Join(errs...))
	}

	result, err := h.execute(ctx, scenario.Name, preds)
	if err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Store:   st,
		Ctx:     ctx,
		RunID:   result.RunID,
		Inputs:  preds,
		Options: h.engineOptions(),
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// scenarioOptions resolves the scenario quotas, filling in defaults so the
// logged run replays under identical limits.
func scenarioOptions(s *Scenario) store.RunOptions {
	opts := store.RunOptions{
		MaxDerived: engine.DefaultMaxDerived,
		MaxRounds:  engine.DefaultMaxRounds,
	}
	if s.MaxDerived > 0 {
		opts.MaxDerived = s.MaxDerived
	}
	if s.MaxRounds > 0 {
		opts.MaxRounds = s.MaxRounds
	}
	return opts
}

func (h *Harness) engineOptions() []engine.Option {
	return append(h.opts.EngineOptions(), engine.WithLogger(h.logger))
}

// execute runs one closure pass and records it in the run log.
func (h *Harness) execute(ctx context.Context, name string, preds []*ir.Predicate) (*Result, error) {
	res, err := engine.Infer(preds, h.engineOptions()...)
	if err != nil && !engine.IsContradiction(err) {
		return nil, fmt.Errorf("failed to run closure: %w", err)
	}

	result := NewResult()
	result.RunID = h.runIDs.Generate()
	result.Rounds = res.Rounds
	for _, s := range res.Steps {
		result.AddStep(TraceStep{
			Seq:       s.Seq,
			Round:     s.Round,
			Via:       string(s.Via),
			Predicate: s.Text,
		})
	}
	for _, c := range res.Contradictions {
		result.Contradictions = append(result.Contradictions, c.Error())
	}
	for _, skipped := range res.Skipped {
		result.AddError(fmt.Sprintf("skipped input: %v", skipped))
	}

	run, err := store.NewRun(result.RunID, name, preds, res, h.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build run record: %w", err)
	}
	if _, err := h.store.WriteRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to log run: %w", err)
	}

	h.logger.Debug("scenario executed",
		"scenario", name,
		"run_id", result.RunID,
		"derived", len(result.Derived),
		"contradictions", len(result.Contradictions))

	return result, nil
}
