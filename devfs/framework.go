// File: devfs/framework.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Device registration: opens the control device, runs the INIT
// handshake, and publishes the synthetic device under DEVNAME.

package devfs

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/momentics/sertee/api"
)

// ControlPath is the kernel control device that backs every session.
const ControlPath = "/dev/cuse"

// Framework is the kernel-backed implementation of api.Framework.
type Framework struct {
	// Path of the control device; overridable for scripted setups.
	Path string

	// MaxRead and MaxWrite bound a single transfer in each direction.
	MaxRead  uint32
	MaxWrite uint32
}

var _ api.Framework = (*Framework)(nil)

// NewFramework returns a framework with the default control path and
// transfer limits.
func NewFramework() *Framework {
	return &Framework{
		Path:     ControlPath,
		MaxRead:  1 << 16,
		MaxWrite: 1 << 16,
	}
}

// BufSize implements api.Framework: a request can carry a full write
// payload plus framing.
func (f *Framework) BufSize() int {
	n := int(f.MaxWrite) + 4096
	if n < minRecvBuf {
		n = minRecvBuf
	}
	return n
}

// Register implements api.Framework.
func (f *Framework) Register(devname string, ops *api.DeviceOps, userdata any) (api.Session, error) {
	if devname == "" || strings.ContainsAny(devname, ",\x00") {
		return nil, fmt.Errorf("devfs: bad device name %q: %w", devname, api.ErrInvalidArgument)
	}

	fd, err := unix.Open(f.Path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("devfs: open %s: %w", f.Path, err)
	}

	s := &Session{
		fd:       fd,
		name:     devname,
		ops:      ops,
		userdata: userdata,
		scratch:  make([]byte, 0, int(f.MaxRead)+szOutHeader),
	}
	if err := f.handshake(s, devname); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return s, nil
}

// handshake consumes the kernel's INIT request and answers it with our
// protocol revision, the transfer limits, and the device name.
func (f *Framework) handshake(s *Session, devname string) error {
	buf := make([]byte, minRecvBuf)
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		return fmt.Errorf("devfs: read INIT: %w", err)
	}

	var h inHeader
	if !decode(&h, buf[:n]) {
		return fmt.Errorf("devfs: short INIT request (%d bytes)", n)
	}
	if h.Opcode != opInit {
		return fmt.Errorf("devfs: expected INIT, got opcode %d", h.Opcode)
	}
	var in initIn
	if !decode(&in, buf[szInHeader:n]) {
		return fmt.Errorf("devfs: short INIT body")
	}
	if in.Major != protoMajor || in.Minor < protoMinMinor {
		return fmt.Errorf("devfs: unsupported peer protocol %d.%d", in.Major, in.Minor)
	}

	out := initOut{
		Major:    protoMajor,
		Minor:    protoMinor,
		MaxRead:  f.MaxRead,
		MaxWrite: f.MaxWrite,
	}
	devinfo := []byte("DEVNAME=" + devname + "\x00")
	return s.reply(h.Unique, 0, structBytes(&out), devinfo)
}
