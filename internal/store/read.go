package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, set_name, input_hash, derivation_hash, rounds, satisfiable, options, engine_version, ir_version`

// ReadRun returns a run with its inputs, derivations and contradictions.
// Child rows are ordered by seq ASC.
//
// Returns an error wrapping ErrRunNotFound if the ID is unknown.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	if run.Inputs, err = s.readInputs(ctx, id); err != nil {
		return Run{}, err
	}
	if run.Derivations, err = s.readDerivations(ctx, id); err != nil {
		return Run{}, err
	}
	if run.Contradictions, err = s.readContradictions(ctx, id); err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns run headers (no child rows) in logical order.
// A positive limit keeps only the most recent limit runs, still oldest
// first. Returns an empty slice (not nil) if the log is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	// Deterministic ordering - ORDER BY seq ASC, id COLLATE BINARY ASC
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY seq ASC, id COLLATE BINARY ASC`
	var args []any
	if limit > 0 {
		query = `SELECT * FROM (SELECT ` + runColumns + ` FROM runs ORDER BY seq DESC, id COLLATE BINARY DESC LIMIT ?)
			ORDER BY seq ASC, id COLLATE BINARY ASC`
		args = append(args, limit)
	}
	return s.queryRuns(ctx, query, args...)
}

// FindRunsByInputHash returns every run over the same predicate set, in
// logical order.
func (s *Store) FindRunsByInputHash(ctx context.Context, hash string) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE input_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, hash)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run         Run
		satisfiable int
		optsJSON    string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.SetName,
		&run.InputHash,
		&run.DerivationHash,
		&run.Rounds,
		&satisfiable,
		&optsJSON,
		&run.EngineVersion,
		&run.IRVersion,
	)
	if err != nil {
		return Run{}, err
	}
	run.Satisfiable = satisfiable == 1
	if run.Options, err = unmarshalOptions(optsJSON); err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", run.ID, err)
	}
	return run, nil
}

func (s *Store) readInputs(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT predicate FROM run_inputs
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query run inputs: %w", err)
	}
	defer rows.Close()

	inputs := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan run input: %w", err)
		}
		inputs = append(inputs, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run inputs: %w", err)
	}
	return inputs, nil
}

func (s *Store) readDerivations(ctx context.Context, id string) ([]Derivation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, round, via, predicate FROM run_derivations
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query run derivations: %w", err)
	}
	defer rows.Close()

	var out []Derivation
	for rows.Next() {
		var d Derivation
		if err := rows.Scan(&d.Seq, &d.Round, &d.Via, &d.Predicate); err != nil {
			return nil, fmt.Errorf("scan run derivation: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run derivations: %w", err)
	}
	return out, nil
}

func (s *Store) readContradictions(ctx context.Context, id string) ([]Contradiction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, existing, incoming, derived FROM run_contradictions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query run contradictions: %w", err)
	}
	defer rows.Close()

	var out []Contradiction
	for rows.Next() {
		var (
			c       Contradiction
			derived int
		)
		if err := rows.Scan(&c.Seq, &c.Existing, &c.Incoming, &derived); err != nil {
			return nil, fmt.Errorf("scan run contradiction: %w", err)
		}
		c.Derived = derived == 1
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run contradictions: %w", err)
	}
	return out, nil
}
