package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WriteRun inserts a run and its inputs, derivations and contradictions in
// one transaction.
//
// If run.Seq is zero the next logical seq is assigned. Uses
// ON CONFLICT(id) DO NOTHING for idempotency: writing a run whose ID is
// already present changes nothing and returns the stored seq.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	optsJSON, err := marshalOptions(run.Options)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("write run: %w", err)
	}

	seq := run.Seq
	if seq == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
			return 0, fmt.Errorf("write run: next seq: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, set_name, input_hash, derivation_hash, rounds, satisfiable, options, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		seq,
		run.SetName,
		run.InputHash,
		run.DerivationHash,
		run.Rounds,
		boolToInt(run.Satisfiable),
		optsJSON,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	for i, text := range run.Inputs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_inputs (run_id, seq, predicate) VALUES (?, ?, ?)
		`, run.ID, i+1, text); err != nil {
			return 0, fmt.Errorf("write run input %d: %w", i+1, err)
		}
	}

	for _, d := range run.Derivations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_derivations (run_id, seq, round, via, predicate) VALUES (?, ?, ?, ?, ?)
		`, run.ID, d.Seq, d.Round, d.Via, d.Predicate); err != nil {
			return 0, fmt.Errorf("write run derivation %d: %w", d.Seq, err)
		}
	}

	for _, c := range run.Contradictions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_contradictions (run_id, seq, existing, incoming, derived) VALUES (?, ?, ?, ?, ?)
		`, run.ID, c.Seq, c.Existing, c.Incoming, boolToInt(c.Derived)); err != nil {
			return 0, fmt.Errorf("write run contradiction %d: %w", c.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}
