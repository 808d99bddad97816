package engine

import "sync/atomic"

// Clock is the logical clock that orders engine events.
//
// Every tick and every claim is stamped with a strictly increasing seq from
// this clock, so a journal sorts into the exact call order regardless of
// wall time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// although an Engine only advances it from its single caller.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used when several engines share one journal and must not reuse seqs.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
