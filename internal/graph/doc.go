// Package graph builds the dependency graph that transitive inference
// runs over.
//
// Each distinct variable gets one Node. A node owns an assoc.Map from the
// other endpoint's name to the predicate edge connecting the two, oriented
// so the node's variable is on the left. Constant bounds are attached to
// the variable's node under the reserved keys LowerBoundKey and
// UpperBoundKey; a constant never gets a node of its own.
//
// INVARIANTS:
//   - Inject records "A op B" on A and the mirror "B reverse(op) A" on B
//   - Each variable pair has at most one edge; duplicates collapse to the
//     tighter bound (see AddEdge). The one exception is an equal pair
//     (x <= y and x >= y), whose second reading lives in the converse map
//   - Contradictory edges are never stored; they are recorded as conflicts
//   - Caller-supplied predicates are held ByReference, edges the graph
//     constructs itself (mirrors, derived edges) are held ByValue
//
// A Graph belongs to one planning invocation. It is not safe for
// concurrent use and is torn down with Close.
package graph
