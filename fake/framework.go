// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-memory stand-in for the character-device framework. Sessions carry
// a real pipe descriptor so the reactor path is exercised end to end:
// pushing a request queues it and makes the descriptor readable, and
// Receive/Process behave like the kernel transport without a kernel.

package fake

import (
	"github.com/momentics/sertee/api"
)

// Framework is a fake implementation of api.Framework for testing.
type Framework struct {
	bufSize  int
	Sessions []*Session
}

// Ensure compile-time interface compliance.
var _ api.Framework = (*Framework)(nil)

// NewFramework creates a fake framework.
func NewFramework() *Framework {
	return &Framework{bufSize: 64}
}

// Register creates a scripted session for devname.
func (f *Framework) Register(devname string, ops *api.DeviceOps, userdata any) (api.Session, error) {
	s, err := newSession(devname, ops, userdata)
	if err != nil {
		return nil, err
	}
	f.Sessions = append(f.Sessions, s)
	return s, nil
}

// BufSize implements api.Framework.
func (f *Framework) BufSize() int { return f.bufSize }

// Session returns the session registered under devname, or nil.
func (f *Framework) Session(devname string) *Session {
	for _, s := range f.Sessions {
		if s.Name == devname {
			return s
		}
	}
	return nil
}
