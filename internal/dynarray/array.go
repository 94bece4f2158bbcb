// Package dynarray provides a growable sequence of strings used to
// accumulate serialized derived predicates during closure.
package dynarray

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 8

// Array is a growable sequence of strings.
//
// INVARIANTS:
//   - Len() <= Cap()
//   - Cap() never shrinks until Free
//   - capacity doubles when a Push finds the array full
type Array struct {
	items []string
	used  int
}

// New creates an empty array with the given initial capacity.
func New(capacity int) *Array {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Array{items: make([]string, capacity)}
}

// Push appends s, doubling capacity when full.
func (a *Array) Push(s string) {
	if a.used == len(a.items) {
		next := len(a.items) * 2
		if next == 0 {
			next = DefaultCapacity
		}
		grown := make([]string, next)
		copy(grown, a.items[:a.used])
		a.items = grown
	}
	a.items[a.used] = s
	a.used++
}

// Len returns the number of live elements.
func (a *Array) Len() int {
	return a.used
}

// Cap returns the current capacity.
func (a *Array) Cap() int {
	return len(a.items)
}

// At returns the element at index i. It panics if i is out of range.
func (a *Array) At(i int) string {
	if i < 0 || i >= a.used {
		panic("dynarray: index out of range")
	}
	return a.items[i]
}

// Strings returns a copy of the live elements.
// The copy is owned by the caller and outlives Free.
func (a *Array) Strings() []string {
	out := make([]string, a.used)
	copy(out, a.items[:a.used])
	return out
}

// Free releases the backing storage. The array is empty afterwards and
// may be reused; the next Push allocates DefaultCapacity.
func (a *Array) Free() {
	a.items = nil
	a.used = 0
}
