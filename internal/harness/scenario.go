package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario feeds a predicate set to the optimizer and asserts on the
// derived output.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Predicates are the input relations in text form ("x < 10").
	Predicates []string `yaml:"predicates"`

	// MaxDerived and MaxRounds override the optimizer quotas when non-zero.
	MaxDerived int `yaml:"max_derived,omitempty"`
	MaxRounds  int `yaml:"max_rounds,omitempty"`

	// RunID is an optional fixed run ID for the logged run.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Assertions validate the derived output.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "derived_exact": derived list equals Predicates in order
	// - "derived_contains": every entry of Predicates was derived
	// - "derived_excludes": no entry of Predicates was derived
	// - "contradiction_count": exactly Count contradictions
	// - "fixed_point": a second pass derives nothing
	// - "replay_match": the logged run replays identically
	Type string `yaml:"type"`

	// Predicates lists expected predicate text (derived_* assertions).
	Predicates []string `yaml:"predicates,omitempty"`

	// Count is the expected number of contradictions (contradiction_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertDerivedExact       = "derived_exact"
	AssertDerivedContains    = "derived_contains"
	AssertDerivedExcludes    = "derived_excludes"
	AssertContradictionCount = "contradiction_count"
	AssertFixedPoint         = "fixed_point"
	AssertReplayMatch        = "replay_match"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ScenarioPaths returns every *.yaml and *.yml file directly under dir,
// sorted by name.
func ScenarioPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Predicates) == 0 {
		return fmt.Errorf("predicates list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.MaxDerived < 0 {
		return fmt.Errorf("max_derived must not be negative")
	}
	if s.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must not be negative")
	}

	for i, p := range s.Predicates {
		if p == "" {
			return fmt.Errorf("predicates[%d]: empty predicate", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDerivedExact:
		// An empty list asserts that nothing is derived.
	case AssertDerivedContains, AssertDerivedExcludes:
		if len(a.Predicates) == 0 {
			return fmt.Errorf("assertions[%d]: predicates list is required for %s", index, a.Type)
		}
	case AssertContradictionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must not be negative", index)
		}
	case AssertFixedPoint, AssertReplayMatch:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
