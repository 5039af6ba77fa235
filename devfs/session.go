// File: devfs/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One kernel-backed device session: receives requests from the control
// descriptor, dispatches them through the bound vtable, and writes the
// replies and poll wakeups back.

package devfs

import (
	"io"
	"log"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/momentics/sertee/api"
)

// Session is one registered synthetic device backed by the kernel.
type Session struct {
	fd       int
	name     string
	ops      *api.DeviceOps
	userdata any
	exited   bool
	closed   bool

	// Reply scratch, reused across requests; sized for the largest
	// reply (a full read) plus the header.
	scratch []byte
}

var _ api.Session = (*Session)(nil)

// Fd implements api.Session.
func (s *Session) Fd() int { return s.fd }

// Name returns the DEVNAME the session was registered under.
func (s *Session) Name() string { return s.name }

// Receive implements api.Session: reads exactly one kernel request.
func (s *Session) Receive(buf []byte) (int, error) {
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		switch err {
		case unix.EINTR, unix.EAGAIN, unix.ENOENT:
			// ENOENT: the request was aborted before we picked it up.
			return 0, unix.EINTR
		case unix.ENODEV:
			// Device unregistered; the session is over.
			s.exited = true
			return 0, io.EOF
		}
		return 0, err
	}
	if n == 0 {
		s.exited = true
		return 0, io.EOF
	}
	return n, nil
}

// Process implements api.Session: parses one request and invokes the
// matching callback.
func (s *Session) Process(buf []byte) {
	var h inHeader
	if !decode(&h, buf) {
		log.Printf("[devfs] %s: short request (%d bytes)", s.name, len(buf))
		return
	}
	if n := int(h.Len); n >= szInHeader && n < len(buf) {
		buf = buf[:n]
	}
	payload := buf[szInHeader:]

	switch h.Opcode {
	case opOpen:
		var in openIn
		if !decode(&in, payload) {
			s.replyErr(h.Unique, unix.EIO)
			return
		}
		s.ops.Open(s.userdata, &openReply{s: s, unique: h.Unique})

	case opRelease:
		var in releaseIn
		if !decode(&in, payload) {
			s.replyErr(h.Unique, unix.EIO)
			return
		}
		s.ops.Release(s.userdata, &releaseReply{s: s, unique: h.Unique})

	case opRead:
		var in readIn
		if !decode(&in, payload) {
			s.replyErr(h.Unique, unix.EIO)
			return
		}
		s.ops.Read(s.userdata, int(in.Size), int(in.Offset), &readReply{s: s, unique: h.Unique})

	case opWrite:
		var in writeIn
		if !decode(&in, payload) {
			s.replyErr(h.Unique, unix.EIO)
			return
		}
		data := payload[szWriteIn:]
		if int(in.Size) < len(data) {
			data = data[:in.Size]
		}
		s.ops.Write(s.userdata, data, &writeReply{s: s, unique: h.Unique})

	case opPoll:
		var in pollInBody
		if !decode(&in, payload) {
			s.replyErr(h.Unique, unix.EIO)
			return
		}
		var ph api.PollHandle
		if in.Flags&pollScheduleNotify != 0 {
			ph = &PollHandle{s: s, kh: in.Kh}
		}
		s.ops.Poll(s.userdata, ph, &pollReply{s: s, unique: h.Unique})

	case opInterrupt:
		// The engine never blocks a request, so there is nothing to
		// abort; the original relies on the same default.

	case opDestroy:
		s.exited = true
		s.replyOk(h.Unique)

	default:
		s.replyErr(h.Unique, unix.ENOSYS)
	}
}

// Exited implements api.Session.
func (s *Session) Exited() bool { return s.exited }

// Reset implements api.Session.
func (s *Session) Reset() { s.exited = false }

// Close implements api.Session.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

// reply writes one framed reply: header plus optional body segments.
func (s *Session) reply(unique uint64, errno int32, segs ...[]byte) error {
	total := szOutHeader
	for _, seg := range segs {
		total += len(seg)
	}
	h := outHeader{Len: uint32(total), Error: -errno, Unique: unique}
	out := append(s.scratch[:0], structBytes(&h)...)
	for _, seg := range segs {
		out = append(out, seg...)
	}
	if _, err := unix.Write(s.fd, out); err != nil {
		log.Printf("[devfs] %s: reply failed: %v", s.name, err)
		return err
	}
	return nil
}

func (s *Session) replyOk(unique uint64) { _ = s.reply(unique, 0) }

func (s *Session) replyErr(unique uint64, errno syscall.Errno) {
	_ = s.reply(unique, int32(errno))
}

// Reply surfaces handed to the vtable.

type openReply struct {
	s      *Session
	unique uint64
}

func (r *openReply) Ok() error {
	out := openOut{}
	return r.s.reply(r.unique, 0, structBytes(&out))
}

func (r *openReply) Err(errno syscall.Errno) error {
	return r.s.reply(r.unique, int32(errno))
}

type releaseReply struct {
	s      *Session
	unique uint64
}

// Ack answers release with an empty buffer; without it the closing
// client hangs waiting for the acknowledgement.
func (r *releaseReply) Ack() error {
	return r.s.reply(r.unique, 0)
}

type readReply struct {
	s      *Session
	unique uint64
}

func (r *readReply) Data(p []byte) error {
	return r.s.reply(r.unique, 0, p)
}

func (r *readReply) Err(errno syscall.Errno) error {
	return r.s.reply(r.unique, int32(errno))
}

type writeReply struct {
	s      *Session
	unique uint64
}

func (r *writeReply) Written(n int) error {
	out := writeOut{Size: uint32(n)}
	return r.s.reply(r.unique, 0, structBytes(&out))
}

func (r *writeReply) Err(errno syscall.Errno) error {
	return r.s.reply(r.unique, int32(errno))
}

type pollReply struct {
	s      *Session
	unique uint64
}

func (r *pollReply) Ready(readable bool) error {
	out := pollOut{}
	if readable {
		out.Revents = pollIn
	}
	return r.s.reply(r.unique, 0, structBytes(&out))
}

// PollHandle wakes one reader blocked in poll. Fired or destroyed
// exactly once.
type PollHandle struct {
	s        *Session
	kh       uint64
	consumed bool
}

var _ api.PollHandle = (*PollHandle)(nil)

// Notify implements api.PollHandle: a wakeup notification carries
// unique 0 and the kernel handle in the body.
func (h *PollHandle) Notify() error {
	if h.consumed {
		return api.ErrHandleConsumed
	}
	h.consumed = true
	body := pollWakeupOut{Kh: h.kh}
	out := outHeader{
		Len:    uint32(szOutHeader + szPollWake),
		Error:  notifyPollWakeup,
		Unique: 0,
	}
	msg := make([]byte, 0, szOutHeader+szPollWake)
	msg = append(msg, structBytes(&out)...)
	msg = append(msg, structBytes(&body)...)
	if _, err := unix.Write(h.s.fd, msg); err != nil {
		return err
	}
	return nil
}

// Destroy implements api.PollHandle: the kernel handle needs no
// release, only the exactly-once bookkeeping.
func (h *PollHandle) Destroy() {
	h.consumed = true
}
