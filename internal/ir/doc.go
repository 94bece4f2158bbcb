// Package ir provides the value and predicate model for transitive
// predicate inference, together with the operator algebra that composes
// ordering relations.
//
// This package contains type definitions and pure functions only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Single scalar domain: int64 constants and named scalar variables
//   - NO floats, NO NULLs, NO equality substitution
//   - Values and predicates are immutable once constructed
//   - A predicate never holds two constants and never holds NoRelation
//   - When one operand is a constant it is always the right operand
//
// # Operator Algebra
//
// The four ordering operators form two directions:
//
//	upper-bound-producing:  <  <=
//	lower-bound-producing:  >  >=
//
// Reverse flips direction (swapping operands). Resolve composes
// "A op1 B" and "B op2 C" into "A op3 C" when both operators point the
// same direction; the result is strict if either input is strict.
package ir
