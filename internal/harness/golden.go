package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot captures everything deterministic about a scenario execution.
type Snapshot struct {
	ScenarioName   string
	RunID          string
	Rounds         int
	Trace          []TraceStep
	Contradictions []string
}

// NewSnapshot builds a snapshot of result under the given scenario name.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName:   name,
		RunID:          result.RunID,
		Rounds:         result.Rounds,
		Trace:          result.Trace,
		Contradictions: result.Contradictions,
	}
}

// Bytes renders the snapshot as line-oriented text:
//
//	scenario: chain
//	run: test-run-default
//	rounds: 2
//	derived:
//	  [1] round 1 via y: x < z
//	contradictions: none
func (s Snapshot) Bytes() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", s.ScenarioName)
	fmt.Fprintf(&buf, "run: %s\n", s.RunID)
	fmt.Fprintf(&buf, "rounds: %d\n", s.Rounds)

	if len(s.Trace) == 0 {
		buf.WriteString("derived: none\n")
	} else {
		buf.WriteString("derived:\n")
		for _, step := range s.Trace {
			fmt.Fprintf(&buf, "  [%d] round %d via %s: %s\n", step.Seq, step.Round, step.Via, step.Predicate)
		}
	}

	if len(s.Contradictions) == 0 {
		buf.WriteString("contradictions: none\n")
	} else {
		buf.WriteString("contradictions:\n")
		for _, c := range s.Contradictions {
			fmt.Fprintf(&buf, "  - %s\n", c)
		}
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an already computed result against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, NewSnapshot(scenarioName, result).Bytes())
}
