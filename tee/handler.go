// File: tee/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The five per-device callbacks. Each runs on the event-loop thread. The
// read callback replies before advancing the cursor, mirroring the
// request surface contract: a reply may be partial, the cursor advances
// by exactly the replied size.

package tee

import (
	"errors"
	"log"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/momentics/sertee/api"
	"github.com/momentics/sertee/internal/ring"
)

// deviceOps builds the callback vtable bound to every registered
// device. The userdata tag delivered back by the framework is the
// *Consumer itself.
func (t *Tee) deviceOps() *api.DeviceOps {
	return &api.DeviceOps{
		Open: func(dev any, r api.OpenReply) {
			t.onOpen(dev.(*Consumer), r)
		},
		Release: func(dev any, r api.ReleaseReply) {
			t.onRelease(dev.(*Consumer), r)
		},
		Read: func(dev any, size, offset int, r api.ReadReply) {
			t.onRead(dev.(*Consumer), size, offset, r)
		},
		Write: func(dev any, data []byte, r api.WriteReply) {
			t.onWrite(dev.(*Consumer), data, r)
		},
		Poll: func(dev any, ph api.PollHandle, r api.PollReply) {
			t.onPoll(dev.(*Consumer), ph, r)
		},
	}
}

// onOpen admits a client. Clients of one device share the cursor, so
// only the first open positions it: at the producer, one lap back when
// the ring has already wrapped, replaying up to a full buffer of
// history.
func (t *Tee) onOpen(c *Consumer, r api.OpenReply) {
	debugf("OPEN %s", c.name)
	if c.opens == 0 {
		c.cur = t.ring.OpenCursor()
	}
	c.opens++
	_ = r.Ok()
}

// onRelease retires a client. When the last one goes, the cursor resets
// to its zero sentinel; the next open reinitialises it.
func (t *Tee) onRelease(c *Consumer, r api.ReleaseReply) {
	debugf("RELEASE %s", c.name)
	if c.opens <= 0 {
		log.Printf("[tee] %s: release without matching open", c.name)
		c.opens = 0
	} else {
		c.opens--
	}
	if c.opens == 0 {
		c.cur = ring.Cursor{}
	}
	_ = r.Ack()
}

// onRead serves up to size bytes from the consumer's contiguous
// segment, honouring offset as a peek past the cursor. The reply may be
// short: a segment ending at the wrap boundary is delivered in two
// client reads.
func (t *Tee) onRead(c *Consumer, size, offset int, r api.ReadReply) {
	avail := t.ring.Avail(c.cur)
	debugf("READ %s size %d off %d avail %d", c.name, size, offset, avail)

	var p []byte
	if offset <= avail {
		if n := min(size, avail-offset); n > 0 {
			p = t.ring.Slice(c.cur.Pos()+offset, n)
		}
	}
	_ = r.Data(p)

	c.cur.Advance(t.ring, len(p))
	c.bytesDelivered += uint64(len(p))
}

// onWrite forwards the payload to the source in a single write. The
// bytes do not enter the ring; if the device echoes they come back
// through the source reader.
func (t *Tee) onWrite(c *Consumer, data []byte, r api.WriteReply) {
	n, err := unix.Write(t.sourceFd, data)
	debugf("WRITE %s %d -> %d (%v)", c.name, len(data), n, err)
	if err != nil {
		var errno syscall.Errno
		if !errors.As(err, &errno) {
			errno = unix.EIO
		}
		_ = r.Err(errno)
		return
	}
	c.bytesForwarded += uint64(n)
	_ = r.Written(n)
}

// onPoll reports readiness. With data pending the reply is ready and no
// handle is kept; otherwise the new handle displaces any previously
// retained one, keeping at most one per consumer.
func (t *Tee) onPoll(c *Consumer, ph api.PollHandle, r api.PollReply) {
	avail := t.ring.Avail(c.cur)
	debugf("POLL %s avail %d", c.name, avail)

	if avail > 0 {
		if ph != nil {
			ph.Destroy()
		}
		_ = r.Ready(true)
		return
	}
	if ph != nil {
		if c.ph != nil {
			c.ph.Destroy()
		}
		c.ph = ph
	}
	_ = r.Ready(false)
}
