package engine

import "sync/atomic"

// PassCounter numbers sync passes. Every pass that runs (not one skipped
// by the in-flight guard) takes the next number, which is stamped on its
// Report and log lines.
//
// Thread-safety: PassCounter is safe for concurrent use (atomic operations).
type PassCounter struct {
	n atomic.Int64
}

// NewPassCounterAt creates a counter whose next pass is start+1.
func NewPassCounterAt(start int64) *PassCounter {
	c := &PassCounter{}
	c.n.Store(start)
	return c
}

// Next returns the next pass number.
func (c *PassCounter) Next() int64 {
	return c.n.Add(1)
}

// Current returns the number of the last pass started.
func (c *PassCounter) Current() int64 {
	return c.n.Load()
}
