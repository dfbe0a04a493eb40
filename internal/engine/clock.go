package engine

import "sync/atomic"

// Clock is a monotonic logical clock for ordering recompute passes.
//
// Every pass is stamped with a strictly increasing seq number. Wall-clock
// time never orders passes: two invalidations arriving in the same
// millisecond still get distinct, ordered stamps, which is what makes
// freshest-input-wins decidable.
//
// Thread-safety: atomic operations; safe for concurrent use, though the
// single-writer Run loop is normally the only caller of Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
