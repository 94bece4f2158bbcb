package testutil

import (
	"fmt"
	"sync"
)

// FixedRunID generates the same run ID every time.
//
// This enables deterministic golden snapshots: the same scenario with the
// same FixedRunID produces byte-identical output.
//
// Unlike store.FixedGenerator which returns IDs from a list, this generator
// always returns the same ID.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a new fixed run ID generator.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run ID.
//
// Implements store.RunIDGenerator interface.
func (g *FixedRunID) Generate() string {
	return g.id
}

// SequentialRunIDs generates "<prefix>-0001", "<prefix>-0002", ...
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a sequential generator. An empty prefix
// defaults to "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next ID in sequence.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts the sequence so the next ID ends in 0001.
func (g *SequentialRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
