// Package store provides SQLite-backed durable storage for inference runs.
//
// The store implements an append-only run log with:
//   - Runs: one row per optimizer pass (input hash, derivation hash, options)
//   - Inputs: the source predicates of the run, in submission order
//   - Derivations: derived predicates with their round and intermediate
//   - Contradictions: relations rejected by the pass
//
// # Critical Patterns
//
// Logical Ordering:
//   - Runs are ordered by seq INTEGER (logical clock), NEVER timestamps
//   - Enables deterministic listings regardless of wall time
//
// Deterministic Query Results:
//   - All queries MUST include: ORDER BY seq ASC, id COLLATE BINARY ASC
//   - Ensures identical results across replays
//
// Content Addressing:
//   - input_hash is ir.PredicateSetHash of the inputs (order-independent)
//   - derivation_hash is ir.DerivationHash of the output (order-sensitive)
//   - FindRunsByInputHash returns every run over the same predicate set
//
// Idempotency:
//   - Run IDs are primary keys; writing the same run twice is a no-op
package store
