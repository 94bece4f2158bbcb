// Package assoc provides the string-keyed associative map that backs
// per-node adjacency storage in the dependency graph.
//
// # Ownership
//
// Every entry carries an explicit ownership tag via Slot:
//
//	m.Put("y", assoc.Owned(edge))     // map owns edge, releases it on Close
//	m.Put("x", assoc.Borrowed(input)) // caller owns input, Close leaves it alone
//
// Owned payloads that implement Releaser are released when the map is
// closed or when the entry is overwritten. Borrowed payloads are never
// touched by the map.
//
// # Semantics
//
//   - Keys are unique; Put on an existing key overwrites (last write wins)
//   - Get reports absence explicitly via the second return value
//   - Keys returns keys in first-insertion order for deterministic iteration
//
// A Map is not safe for concurrent use. Each planning invocation owns its
// own maps.
package assoc
