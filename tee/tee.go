// File: tee/tee.go
// Unified facade for the fan-out engine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Tee owns the shared ring, the ordered consumer set, the source
// descriptor and the readiness multiplexer, and runs the cooperative
// event loop over all of them. Everything happens on the thread that
// calls Run; consumers reach the ring only through engine methods, so
// no back-pointer from consumer to ring exists.

package tee

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/sertee/api"
	"github.com/momentics/sertee/internal/ring"
	"github.com/momentics/sertee/pool"
	"github.com/momentics/sertee/reactor"
)

// ErrSourceOpen marks a failure to open the source device; the wrapped
// chain carries the platform errno.
var ErrSourceOpen = errors.New("source open failed")

// Tee is the fan-out engine.
type Tee struct {
	cfg *Config

	ring      *ring.Ring
	consumers []*Consumer

	sourceFd   int
	ownsSource bool

	mux     reactor.EventReactor
	recvBuf []byte
	bufPool *pool.BytePool

	stop bool

	sourceBytes  uint64
	readFailures uint64
}

// New builds the engine: opens the source, creates the multiplexer, and
// registers one synthetic device per configured name with fw.
func New(cfg *Config, fw api.Framework, opts ...Option) (*Tee, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	t := &Tee{cfg: cfg, sourceFd: -1, ownsSource: true}
	for _, o := range opts {
		o(t)
	}

	r, err := ring.New(cfg.BufSize)
	if err != nil {
		return nil, err
	}
	t.ring = r

	if t.ownsSource {
		fd, err := openSource(cfg.Source)
		if err != nil {
			t.teardown()
			return nil, fmt.Errorf("%w: %q: %w", ErrSourceOpen, cfg.Source, err)
		}
		t.sourceFd = fd
	}

	mux, err := reactor.NewReactor()
	if err != nil {
		t.teardown()
		return nil, err
	}
	t.mux = mux

	if err := mux.Register(t.sourceFd, tagSource); err != nil {
		t.teardown()
		return nil, fmt.Errorf("register source: %w", err)
	}

	ops := t.deviceOps()
	for i, name := range cfg.Names {
		c := newConsumer(name)
		sess, err := fw.Register(name, ops, c)
		if err != nil {
			t.teardown()
			return nil, fmt.Errorf("register device %q: %w", name, err)
		}
		c.sess = sess
		t.consumers = append(t.consumers, c)
		if err := mux.Register(sess.Fd(), int32(i)+1); err != nil {
			t.teardown()
			return nil, fmt.Errorf("register device %q session: %w", name, err)
		}
	}

	t.bufPool = pool.NewBytePool(fw.BufSize())
	t.recvBuf = t.bufPool.GetBuffer()
	return t, nil
}

// openSource opens the source read-write, nonblocking, without becoming
// its controlling terminal, with synchronous writes.
func openSource(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_SYNC|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
}

// Consumers returns the ordered consumer set.
func (t *Tee) Consumers() []*Consumer { return t.consumers }

// Stop asks the loop to exit. Takes effect when the current wait
// returns; the heartbeat timeout bounds the latency.
func (t *Tee) Stop() { t.stop = true }

// Close tears the engine down: sessions are reset and closed in their
// creation order, then the multiplexer and the source are released.
func (t *Tee) Close() error {
	t.teardown()
	return nil
}

func (t *Tee) teardown() {
	for _, c := range t.consumers {
		if c.sess != nil {
			c.sess.Reset()
			_ = c.sess.Close()
			c.sess = nil
		}
	}
	t.consumers = nil
	if t.mux != nil {
		_ = t.mux.Close()
		t.mux = nil
	}
	if t.ownsSource && t.sourceFd >= 0 {
		_ = unix.Close(t.sourceFd)
		t.sourceFd = -1
	}
	if t.recvBuf != nil {
		t.bufPool.PutBuffer(t.recvBuf)
		t.recvBuf = nil
	}
}
