// File: api/device.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contracts consumed by the fan-out engine from the character-device-in-
// userspace framework. The engine never depends on a concrete framework;
// devfs provides the kernel-backed implementation and fake provides an
// in-memory one for tests.

package api

import "syscall"

// Framework registers synthetic character devices and hands back one
// Session per device.
type Framework interface {
	// Register publishes a device under DEVNAME=devname and binds the
	// callback vtable to it. userdata is delivered back verbatim as the
	// first argument of every callback.
	Register(devname string, ops *DeviceOps, userdata any) (Session, error)

	// BufSize returns the size a Receive buffer must have to hold any
	// single framework message.
	BufSize() int
}

// Session is one registered synthetic device. All methods must be called
// from the event-loop thread.
type Session interface {
	// Fd returns the descriptor to watch for request readiness.
	Fd() int

	// Receive reads exactly one framework message into buf. It returns
	// syscall.EINTR when interrupted, and (0, io.EOF) when the kernel
	// side is gone. buf must be at least Framework.BufSize() bytes.
	Receive(buf []byte) (int, error)

	// Process parses one received message and synchronously invokes the
	// matching DeviceOps callback.
	Process(buf []byte)

	// Exited reports whether the session has been shut down from the
	// kernel side.
	Exited() bool

	// Reset clears the exited flag and any half-received state.
	Reset()

	// Close tears the session down and releases the descriptor.
	Close() error
}

// DeviceOps is the fixed vtable of per-device callbacks. Every callback
// runs on the event-loop thread, must not block, and must use its reply
// handle exactly once.
type DeviceOps struct {
	Open    func(dev any, r OpenReply)
	Release func(dev any, r ReleaseReply)
	Read    func(dev any, size, offset int, r ReadReply)
	Write   func(dev any, data []byte, r WriteReply)
	Poll    func(dev any, ph PollHandle, r PollReply)
}

// OpenReply answers an open request.
type OpenReply interface {
	Ok() error
	Err(errno syscall.Errno) error
}

// ReleaseReply acknowledges a release request. The framework requires an
// explicit acknowledgement or the closing client hangs.
type ReleaseReply interface {
	Ack() error
}

// ReadReply answers a read request with the payload slice. A zero-length
// slice is a valid answer.
type ReadReply interface {
	Data(p []byte) error
	Err(errno syscall.Errno) error
}

// WriteReply answers a write request with the byte count accepted.
type WriteReply interface {
	Written(n int) error
	Err(errno syscall.Errno) error
}

// PollReply answers a poll request with the current readiness.
type PollReply interface {
	Ready(readable bool) error
}

// PollHandle wakes one reader blocked in poll on a synthetic device. A
// handle is fired with Notify or released with Destroy, exactly once;
// firing implies the release. Poll callbacks may receive a nil handle
// when the kernel did not ask to be notified.
type PollHandle interface {
	// Notify wakes the blocked reader and consumes the handle.
	Notify() error

	// Destroy releases the handle without waking anyone.
	Destroy()
}
