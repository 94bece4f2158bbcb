package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/implied/internal/compiler"
	"github.com/roach88/implied/internal/engine"
	"github.com/roach88/implied/internal/store"
)

// writeFile writes content under dir and returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// seedRun infers texts and logs the run under id.
func seedRun(t *testing.T, dbPath, id, setName string, texts ...string) store.Run {
	t.Helper()

	preds, errs := compiler.ParseAll(texts)
	require.Empty(t, errs)

	opts := store.RunOptions{MaxDerived: engine.DefaultMaxDerived, MaxRounds: engine.DefaultMaxRounds}
	res, err := engine.Infer(preds, opts.EngineOptions()...)
	if err != nil {
		require.True(t, engine.IsContradiction(err), "unexpected error: %v", err)
	}

	run, err := store.NewRun(id, setName, preds, res, opts)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.WriteRun(context.Background(), run)
	require.NoError(t, err)
	return run
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writerCommand points cmd's output at a buffer and returns it.
func writerCommand(cmd *cobra.Command) *bytes.Buffer {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	return out
}
