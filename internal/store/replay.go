package store

import (
	"context"
	"fmt"

	"github.com/roach88/implied/internal/compiler"
	"github.com/roach88/implied/internal/engine"
	"github.com/roach88/implied/internal/ir"
)

// ReplayResult compares a recorded run with a fresh pass over its inputs.
type ReplayResult struct {
	RunID    string
	Match    bool     // True when derivations and contradictions are identical
	Recorded []string // Derived text from the log
	Replayed []string // Derived text from the fresh pass
	Diffs    []string // Human-readable differences, empty on match

	RecordedHash string
	ReplayedHash string
}

// Replay re-runs inference on a stored run's inputs with its stored quotas
// and reports whether the output is identical.
//
// Extra options are applied after the stored ones (e.g. a logger).
// Contradictions are compared, not treated as failures. Quota errors and
// unparseable inputs are returned as errors.
func (s *Store) Replay(ctx context.Context, id string, opts ...engine.Option) (ReplayResult, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	preds := make([]*ir.Predicate, 0, len(run.Inputs))
	for i, text := range run.Inputs {
		p, err := compiler.ParsePredicate(text)
		if err != nil {
			return ReplayResult{}, fmt.Errorf("replay %s: input %d: %w", id, i+1, err)
		}
		preds = append(preds, p)
	}

	res, err := engine.Infer(preds, append(run.Options.EngineOptions(), opts...)...)
	if err != nil && !engine.IsContradiction(err) {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", id, err)
	}

	result := ReplayResult{
		RunID:        id,
		Recorded:     run.DerivedTexts(),
		Replayed:     res.Derived,
		RecordedHash: run.DerivationHash,
		ReplayedHash: ir.DerivationHash(res.Derived),
	}

	result.Diffs = diffTexts("derived", result.Recorded, result.Replayed)

	replayedContradictions := make([]string, len(res.Contradictions))
	for i, c := range res.Contradictions {
		replayedContradictions[i] = c.Error()
	}
	recordedContradictions := make([]string, len(run.Contradictions))
	for i, c := range run.Contradictions {
		recordedContradictions[i] = (&engine.ContradictionError{
			Existing: c.Existing,
			Incoming: c.Incoming,
			Derived:  c.Derived,
		}).Error()
	}
	result.Diffs = append(result.Diffs,
		diffTexts("contradiction", recordedContradictions, replayedContradictions)...)

	if result.RecordedHash != result.ReplayedHash && len(result.Diffs) == 0 {
		result.Diffs = append(result.Diffs,
			fmt.Sprintf("derivation hash: recorded %s, replayed %s", result.RecordedHash, result.ReplayedHash))
	}

	result.Match = len(result.Diffs) == 0
	return result, nil
}

// diffTexts compares two ordered lists position by position.
func diffTexts(label string, recorded, replayed []string) []string {
	var diffs []string
	n := max(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		switch {
		case i >= len(recorded):
			diffs = append(diffs, fmt.Sprintf("%s[%d]: extra %q", label, i, replayed[i]))
		case i >= len(replayed):
			diffs = append(diffs, fmt.Sprintf("%s[%d]: missing %q", label, i, recorded[i]))
		case recorded[i] != replayed[i]:
			diffs = append(diffs, fmt.Sprintf("%s[%d]: recorded %q, replayed %q", label, i, recorded[i], replayed[i]))
		}
	}
	return diffs
}
