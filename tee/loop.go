// File: tee/loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tee

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/sertee/reactor"
)

// tagSource marks the source descriptor in the multiplexer; consumer
// sessions carry their index plus one.
const tagSource = 0

// Run drives the cooperative loop until a session ends, a receive
// fails, or Stop is called. Within one wakeup batch descriptors are
// serviced in report order; a source drain runs to completion — repair,
// publish, wakeups — with no device callback interleaved.
func (t *Tee) Run() error {
	events := make([]reactor.Event, t.cfg.MaxEvents)

	for !t.stop {
		n, err := t.mux.Wait(events, t.cfg.WaitTimeoutMs)
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}

		for i := 0; i < n && !t.stop; i++ {
			tag := events[i].Tag
			if tag == tagSource {
				t.drainSource()
				continue
			}
			idx := int(tag) - 1
			if idx < 0 || idx >= len(t.consumers) {
				continue
			}
			c := t.consumers[idx]

			rn, rerr := c.sess.Receive(t.recvBuf)
			if errors.Is(rerr, unix.EINTR) {
				continue
			}
			if rerr != nil || rn == 0 {
				debugf("%s: receive ended (%d, %v)", c.name, rn, rerr)
				t.stop = true
				break
			}
			c.sess.Process(t.recvBuf[:rn])
			if c.sess.Exited() {
				t.stop = true
			}
		}
	}
	return nil
}
