// Package engine implements the closure pass that derives implied
// predicates from a dependency graph.
//
// The engine is the heart of the system - it walks every pair of edges
// sharing an intermediate variable, composes them with ir.Resolve, and
// records each new or tightened relation back into the graph so it takes
// part in further composition.
//
// ARCHITECTURE:
//
// Round-Based Fixed Point:
// Optimize repeats full passes over the graph until a round adds nothing.
// A single call therefore derives chains of any length, and running it
// again (or feeding its output back in) derives nothing further.
//
// Pass Order:
// 1. Variables are visited in sorted name order (the intermediate B)
// 2. For each neighbor pair (A, C) of B with A != C: A op1 B, B op2 C => A op3 C
// 3. For each neighbor A and each constant bound of B: A op1 B, B op2 k => A op3 k
// 4. Newly stored relations are serialized into the output in discovery order
//
// Contradictions:
// Relations that contradict the graph are never stored and never emitted.
// They are collected from the graph (both input and derived) and surfaced
// as ContradictionError values plus a CONTRADICTION RuntimeError.
//
// Resource Limits:
// Dense graphs can derive O(V^2) relations across O(V^3) compositions.
// QuotaEnforcer caps derived predicates and rounds; exceeding either fails
// the pass with QuotaExceededError.
//
// CRITICAL PATTERNS:
//
// Determinism:
// Sorted iteration makes output identical across runs. No randomness, no
// concurrency, no dependence on map iteration order.
//
// Ownership:
// The graph and its derived edges belong to one planning invocation.
// Result holds copies of derived text that outlive the graph.
package engine
