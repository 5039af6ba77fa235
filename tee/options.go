// File: tee/options.go
// Package tee defines functional options for the Tee engine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tee

// Option customizes engine initialization.
type Option func(*Tee)

// WithSourceFd hands the engine an already-open source descriptor
// instead of opening Config.Source. The descriptor must be nonblocking;
// the engine does not close it on teardown.
func WithSourceFd(fd int) Option {
	return func(t *Tee) {
		t.sourceFd = fd
		t.ownsSource = false
	}
}

// WithWaitTimeout overrides the multiplexer heartbeat in milliseconds.
func WithWaitTimeout(ms int) Option {
	return func(t *Tee) {
		t.cfg.WaitTimeoutMs = ms
	}
}
