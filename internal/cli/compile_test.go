package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/implied/internal/ir"
)

func TestCompileValidSets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.cue", `
set: orders: {
	description: "order pipeline"
	predicates: ["created<shipped", "5 < created"]
}
`)

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 1 set(s)")
	assert.Contains(t, out, "orders: 2 predicate(s)\n  created < shipped\n  created > 5\n  hash: ")
}

func TestCompileValidSetsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", `set: a: predicates: ["x < y", "y <= 3"]`)
	writeFile(t, dir, "b.yaml", "name: b\npredicates:\n  - y <= 3\n  - x < y\n")

	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, dir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ir.IRVersion, resp.Data.IRVersion)
	require.Len(t, resp.Data.Sets, 2)
	assert.Equal(t, "a", resp.Data.Sets[0].Name)
	assert.Equal(t, "b", resp.Data.Sets[1].Name)
	// Input hashes ignore predicate order
	assert.Equal(t, resp.Data.Sets[0].InputHash, resp.Data.Sets[1].InputHash)
}

func TestCompileOutputToFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.cue", `set: a: predicates: ["x < y"]`)
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, path, "-o", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical sets to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Sets, 1)
	assert.Equal(t, []string{"x < y"}, result.Sets[0].Predicates)
}

func TestCompileNonExistentDirectory(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "text"})

	out, _, err := execute(cmd, "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestCompileEmptyDirectory(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "text"})

	_, _, err := execute(cmd, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}

func TestCompileUnsupportedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sets.txt", "x < y")

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	_, _, err := execute(cmd, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeUnsupported)
}

func TestCompileInvalidSet(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `set: bad: predicates: ["x <> y"]`)

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, ErrCodeInvalidPredicate)
}

func TestCompileInvalidSetJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `set: bad: {description: 3, predicates: ["x < y"]}`)

	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, path)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
}

func TestCompileCUESyntaxError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.cue", `set: a: predicates: [`)

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, path)
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeBuildFailed)
}

func TestCompileVerboseOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.cue", `set: a: predicates: ["x < y"]`)

	cmd := NewCompileCommand(&RootOptions{Format: "json", Verbose: true})
	out, errOut, err := execute(cmd, path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Compiling set: a")

	// stdout stays valid JSON
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
}

func TestFindSetFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "")
	writeFile(t, dir, "a.cue", "")
	writeFile(t, dir, "nested/c.yml", "")
	writeFile(t, dir, "notes.md", "")

	files, err := FindSetFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.cue"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.yml"),
	}, files)
}
