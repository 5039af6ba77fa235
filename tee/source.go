// File: tee/source.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tee

import (
	"log"

	"golang.org/x/sys/unix"
)

// drainSource empties the source descriptor into the ring. Each round
// reads one contiguous segment, repairs any cursor the write window
// overtakes, publishes the bytes, and fires retained wakeup handles for
// consumers whose available data just became nonzero. Repair, publish
// and firing complete within one round, so a segment spanning the wrap
// boundary wakes readers without waiting for the second half.
func (t *Tee) drainSource() {
	for {
		w := t.ring.Writable()
		n, err := unix.Read(t.sourceFd, w)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				// Drained; the next readiness event resumes.
				return
			}
			t.readFailures++
			log.Printf("[tee] read from source failed: %v", err)
			return
		}
		if n == 0 {
			return
		}
		debugf("source read %d bytes at pos %d", n, t.ring.Pos())

		for _, c := range t.consumers {
			if c.opens == 0 {
				continue
			}
			if t.ring.Repair(&c.cur, n) {
				c.overtakes++
				debugf("%s: overtaken, cursor repaired to %d", c.name, c.cur.Pos())
			}
		}
		t.ring.Commit(n)
		t.sourceBytes += uint64(n)

		for _, c := range t.consumers {
			if c.opens == 0 || c.ph == nil {
				continue
			}
			if t.ring.Avail(c.cur) == 0 {
				continue
			}
			if err := c.ph.Notify(); err != nil {
				log.Printf("[tee] %s: poll wakeup failed: %v", c.name, err)
			}
			c.ph = nil
			c.notifyFires++
		}
	}
}
