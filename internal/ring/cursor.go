// File: internal/ring/cursor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ring

// Cursor locates one consumer within the ring's logical byte stream.
// A cursor is either in the producer's generation with pos <= producer
// pos (the region ahead of it is not yet written), or exactly one lap
// behind with pos >= producer pos (its unread data runs to the end of
// the buffer and continues at the base).
type Cursor struct {
	pos int
	gen uint64
}

// Pos returns the cursor position.
func (c Cursor) Pos() int { return c.pos }

// Gen returns the cursor generation.
func (c Cursor) Gen() uint64 { return c.gen }

// OpenCursor positions a fresh cursor at the producer, one lap behind
// when the producer has already wrapped. A client opening against a
// wrapped ring therefore replays up to one full buffer of history;
// against an unwrapped ring it starts with nothing available.
func (r *Ring) OpenCursor() Cursor {
	gen := r.gen
	if gen > 0 {
		gen--
	}
	return Cursor{pos: r.pos, gen: gen}
}

// end returns the exclusive bound of the cursor's contiguous readable
// segment.
func (r *Ring) end(c Cursor) int {
	switch {
	case c.pos < r.pos:
		// Strictly trailing within the producer's lap.
		return r.pos
	case c.pos == r.pos && c.gen == r.gen:
		// Exactly caught up.
		return 0
	default:
		// One lap behind: read to the end of the buffer, then wrap.
		return len(r.buf)
	}
}

// Avail returns the number of bytes readable at the cursor without
// crossing the wrap boundary.
func (r *Ring) Avail(c Cursor) int {
	if end := r.end(c); end > c.pos {
		return end - c.pos
	}
	return 0
}

// Advance moves the cursor forward by n consumed bytes, wrapping at the
// boundary. n must not exceed Avail.
func (c *Cursor) Advance(r *Ring, n int) {
	c.pos += n
	if c.pos == len(r.buf) {
		c.pos = 0
		c.gen++
	}
}

// Repair fast-forwards an overtaken cursor past a pending producer
// write of n bytes at the current producer position. Call before
// Commit. A cursor in the producer's generation can never be overtaken
// (the write begins exactly where its readable segment ends); a cursor
// one lap behind is overtaken when the write window reaches into its
// unread region, and skips forward to the newest byte, landing exactly
// caught up with the producer. Reports whether the cursor moved.
func (r *Ring) Repair(c *Cursor, n int) bool {
	if c.gen == r.gen {
		return false
	}
	if c.pos > r.pos+n {
		return false
	}
	c.pos = r.pos + n
	c.gen = r.gen
	if c.pos == len(r.buf) {
		c.pos = 0
		c.gen++
	}
	return true
}
