// File: fake/session.go
// Author: momentics <momentics@gmail.com>
//
// Scripted session: requests are queued FIFO and dispatched through the
// same vtable the kernel transport would use; every reply and notifier
// firing is recorded for assertions.

package fake

import (
	"io"
	"syscall"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/momentics/sertee/api"
)

// Session is a fake implementation of api.Session.
type Session struct {
	Name     string
	ops      *api.DeviceOps
	userdata any

	rfd, wfd int
	pending  *queue.Queue
	exited   bool
	closed   bool

	// Recorded replies, in dispatch order.
	OpenOks     int
	OpenErrs    []syscall.Errno
	ReleaseAcks int
	Reads       [][]byte
	ReadErrs    []syscall.Errno
	Writes      []int
	WriteErrs   []syscall.Errno
	Polls       []bool

	ResetCalls int
}

var _ api.Session = (*Session)(nil)

type (
	openReq    struct{}
	releaseReq struct{}
	readReq    struct{ size, offset int }
	writeReq   struct{ data []byte }
	pollReq    struct{ ph *PollHandle }
)

func newSession(name string, ops *api.DeviceOps, userdata any) (*Session, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	return &Session{
		Name:     name,
		ops:      ops,
		userdata: userdata,
		rfd:      fds[0],
		wfd:      fds[1],
		pending:  queue.New(),
	}, nil
}

// PushOpen queues an open request and marks the descriptor readable.
func (s *Session) PushOpen() { s.push(openReq{}) }

// PushRelease queues a release request.
func (s *Session) PushRelease() { s.push(releaseReq{}) }

// PushRead queues a read request.
func (s *Session) PushRead(size, offset int) { s.push(readReq{size: size, offset: offset}) }

// PushWrite queues a write request.
func (s *Session) PushWrite(data []byte) {
	d := make([]byte, len(data))
	copy(d, data)
	s.push(writeReq{data: d})
}

// PushPoll queues a poll request carrying ph (nil is allowed, matching
// a kernel poll that does not schedule a notification).
func (s *Session) PushPoll(ph *PollHandle) { s.push(pollReq{ph: ph}) }

func (s *Session) push(req any) {
	s.pending.Add(req)
	_, _ = unix.Write(s.wfd, []byte{0})
}

// Fd implements api.Session.
func (s *Session) Fd() int { return s.rfd }

// Receive implements api.Session: one queued request is one byte on the
// pipe.
func (s *Session) Receive(buf []byte) (int, error) {
	n, err := unix.Read(s.rfd, buf[:1])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Process implements api.Session: pops the front request and invokes
// the matching callback.
func (s *Session) Process(buf []byte) {
	if s.pending.Length() == 0 {
		return
	}
	switch req := s.pending.Remove().(type) {
	case openReq:
		s.ops.Open(s.userdata, &openReply{s: s})
	case releaseReq:
		s.ops.Release(s.userdata, &releaseReply{s: s})
	case readReq:
		s.ops.Read(s.userdata, req.size, req.offset, &readReply{s: s})
	case writeReq:
		s.ops.Write(s.userdata, req.data, &writeReply{s: s})
	case pollReq:
		if req.ph != nil {
			s.ops.Poll(s.userdata, req.ph, &pollReply{s: s})
		} else {
			s.ops.Poll(s.userdata, nil, &pollReply{s: s})
		}
	}
}

// Exited implements api.Session.
func (s *Session) Exited() bool { return s.exited }

// MarkExited scripts a kernel-side shutdown.
func (s *Session) MarkExited() { s.exited = true }

// Reset implements api.Session.
func (s *Session) Reset() {
	s.exited = false
	s.ResetCalls++
}

// CloseWrite closes the feeding side only: once the queued requests
// are drained, Receive reports end-of-stream.
func (s *Session) CloseWrite() {
	_ = unix.Close(s.wfd)
	s.wfd = -1
}

// Close implements api.Session.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.wfd >= 0 {
		_ = unix.Close(s.wfd)
		s.wfd = -1
	}
	return unix.Close(s.rfd)
}

// Reply recorders.

type openReply struct{ s *Session }

func (r *openReply) Ok() error { r.s.OpenOks++; return nil }
func (r *openReply) Err(errno syscall.Errno) error {
	r.s.OpenErrs = append(r.s.OpenErrs, errno)
	return nil
}

type releaseReply struct{ s *Session }

func (r *releaseReply) Ack() error { r.s.ReleaseAcks++; return nil }

type readReply struct{ s *Session }

func (r *readReply) Data(p []byte) error {
	d := make([]byte, len(p))
	copy(d, p)
	r.s.Reads = append(r.s.Reads, d)
	return nil
}
func (r *readReply) Err(errno syscall.Errno) error {
	r.s.ReadErrs = append(r.s.ReadErrs, errno)
	return nil
}

type writeReply struct{ s *Session }

func (r *writeReply) Written(n int) error { r.s.Writes = append(r.s.Writes, n); return nil }
func (r *writeReply) Err(errno syscall.Errno) error {
	r.s.WriteErrs = append(r.s.WriteErrs, errno)
	return nil
}

type pollReply struct{ s *Session }

func (r *pollReply) Ready(readable bool) error {
	r.s.Polls = append(r.s.Polls, readable)
	return nil
}

// PollHandle is a recording api.PollHandle.
type PollHandle struct {
	Notifies int
	Destroys int
	consumed bool
}

var _ api.PollHandle = (*PollHandle)(nil)

// Notify implements api.PollHandle.
func (h *PollHandle) Notify() error {
	if h.consumed {
		return api.ErrHandleConsumed
	}
	h.consumed = true
	h.Notifies++
	return nil
}

// Destroy implements api.PollHandle.
func (h *PollHandle) Destroy() {
	if h.consumed {
		return
	}
	h.consumed = true
	h.Destroys++
}

// Consumed reports whether the handle was fired or destroyed.
func (h *PollHandle) Consumed() bool { return h.consumed }
