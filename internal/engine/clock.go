package engine

// Clock hands out the discovery sequence for derived predicates.
//
// Every relation the closure stores is stamped with the next value, so
// the order of Result.Steps, the emitted text, and the persisted run log
// all agree. Sequence numbers start at 1 and never repeat within a pass.
type Clock struct {
	seq int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
// Used when a replayed run resumes numbering after recorded steps.
func NewClockAt(start int64) *Clock {
	return &Clock{seq: start}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq
}
