package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/implied/internal/compiler"
	"github.com/roach88/implied/internal/engine"
	"github.com/roach88/implied/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func quiet() engine.Option {
	return engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func parseAll(t *testing.T, lines ...string) []*ir.Predicate {
	t.Helper()
	preds, errs := compiler.ParseAll(lines)
	require.Empty(t, errs)
	return preds
}

// createTestRun runs inference over lines and assembles a Run.
func createTestRun(t *testing.T, id string, lines ...string) Run {
	t.Helper()
	preds := parseAll(t, lines...)
	opts := RunOptions{MaxDerived: engine.DefaultMaxDerived, MaxRounds: engine.DefaultMaxRounds}

	res, err := engine.Infer(preds, append(opts.EngineOptions(), quiet())...)
	if err != nil && !engine.IsContradiction(err) {
		t.Fatalf("Infer() failed: %v", err)
	}
	run, err := NewRun(id, "test-set", preds, res, opts)
	require.NoError(t, err)
	return run
}
