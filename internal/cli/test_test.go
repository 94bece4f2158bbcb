package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: chain
description: x < y and y < z imply x < z
run_id: run-chain
predicates:
  - x < y
  - y < z
assertions:
  - type: derived_exact
    predicates: ["x < z"]
`

const failingScenario = `name: wrong
description: nothing is derived from one edge
predicates:
  - x < y
assertions:
  - type: derived_contains
    predicates: ["x < z"]
`

func TestTestCommandMissingArgs(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})

	_, _, err := execute(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})

	_, _, err := execute(cmd, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})

	out, _, err := execute(cmd, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "json"})

	out, _, err := execute(cmd, t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandPassing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chain.yaml", passingScenario)

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ chain")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chain.yaml", passingScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "Assertion failed: derived_contains")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong.yaml", failingScenario)

	cmd := NewTestCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\nunknown_field: 1\n")

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chain.yaml", passingScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, dir, "--filter", "ch*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chain.yaml", passingScenario)

	// --update writes the golden
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ chain (golden updated)")

	goldenPath := filepath.Join(dir, "golden", "chain.golden")
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Equal(t, "scenario: chain\n"+
		"run: run-chain\n"+
		"rounds: 2\n"+
		"derived:\n"+
		"  [1] round 1 via y: x < z\n"+
		"contradictions: none\n", string(data))

	// A matching golden passes
	cmd = NewTestCommand(&RootOptions{Format: "text"})
	_, _, err = execute(cmd, dir)
	require.NoError(t, err)

	// A stale golden fails
	require.NoError(t, os.WriteFile(goldenPath, []byte("scenario: chain\n"), 0644))
	cmd = NewTestCommand(&RootOptions{Format: "text"})
	out, _, err = execute(cmd, dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	dir := filepath.Join("..", "harness", "testdata", "scenarios")

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "chain.golden"), goldenFilePath(filepath.Join("s", "chain.yaml")))
}
