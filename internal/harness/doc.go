// Package harness runs conformance scenarios against the optimizer.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: chain_three
//	description: "x < y < z implies x < z"
//	predicates:
//	  - x < y
//	  - y < z
//	max_derived: 100   # optional quota
//	max_rounds: 16     # optional quota
//	run_id: run-chain  # optional fixed run ID
//	assertions:
//	  - type: derived_exact
//	    predicates: ["x < z"]
//	  - type: contradiction_count
//	    count: 0
//	  - type: fixed_point
//
// # Assertion Types
//
//   - derived_exact: the derived list equals predicates, in order
//   - derived_contains: every listed predicate was derived
//   - derived_excludes: none of the listed predicates was derived
//   - contradiction_count: exactly count contradictions were found
//   - fixed_point: re-running on inputs plus derived output derives nothing
//   - replay_match: the logged run replays to identical output
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run ID (scenario.run_id or
// "test-run-default"), a fresh in-memory SQLite run log and discarded
// logs, so the snapshot taken by RunWithGolden is byte-identical across
// runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/chain.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
