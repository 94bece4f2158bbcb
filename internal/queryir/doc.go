// Package queryir provides the expression tree a host query engine hands to
// the optimizer, and the conversion from that tree to ir predicates.
//
// QueryIR is the abstraction boundary between a host's WHERE clause and the
// closure engine. A host adapter builds an Expr tree from its own parse
// nodes; Extract turns the comparisons it can use into predicates.
//
// ARCHITECTURE:
//
//	[host WHERE] → [Expr tree] → Extract → [ir.Predicate] → engine
//	                           → Validate (fragment report)
//
// TRANSITIVE FRAGMENT:
//
// Extract understands:
//   - And(args...) - conjunction lists, nested And flattened
//   - OpExpr with one of <, >, <=, >=
//   - Operands: VarRef (column/variable), IntConst, TextConst (integer text)
//
// Extract skips (and reports) everything else:
//   - Or (a disjunct does not hold on every row)
//   - Equality and inequality (=, <>)
//   - Comparisons of two constants
//   - Constants whose text is not a signed decimal integer
//   - Nested non-operand expressions (function calls, arithmetic)
//
// Skipping is per conjunct: one unusable comparison never hides the rest.
//
// SEALED INTERFACES:
//
// Expr is a sealed interface using the marker method pattern. Only types in
// this package implement it, so consumers can switch exhaustively:
//
//	switch e := expr.(type) {
//	case *And:
//	    // Walk conjuncts
//	case *OpExpr:
//	    // Convert comparison
//	default:
//	    // Outside the fragment
//	}
package queryir
