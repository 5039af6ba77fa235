// File: tee/tee_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Engine tests drive the real callback and drain paths through the
// fake framework; the source is one side of a socketpair so the write
// path has somewhere to go.

package tee

import (
	"bytes"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/momentics/sertee/fake"
)

// newTestTee builds an engine over a socketpair source. Returns the
// engine, the framework double, and the peer descriptor playing the
// remote end of the source device.
func newTestTee(t *testing.T, names []string, bufSize int) (*Tee, *fake.Framework, int) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatalf("setnonblock: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Source = "test:socketpair"
	cfg.Names = names
	cfg.BufSize = bufSize

	fw := fake.NewFramework()
	tt, err := New(cfg, fw, WithSourceFd(fds[0]))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		_ = tt.Close()
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return tt, fw, fds[1]
}

// feed pushes data into the source and drains it into the ring.
func feed(t *testing.T, tt *Tee, peer int, data []byte) {
	t.Helper()
	if _, err := unix.Write(peer, data); err != nil {
		t.Fatalf("write source peer: %v", err)
	}
	tt.drainSource()
}

// pump services exactly one queued request on the session.
func pump(t *testing.T, tt *Tee, s *fake.Session) {
	t.Helper()
	buf := make([]byte, 64)
	n, err := s.Receive(buf)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	s.Process(buf[:n])
}

func lastRead(t *testing.T, s *fake.Session) []byte {
	t.Helper()
	if len(s.Reads) == 0 {
		t.Fatal("no read reply recorded")
	}
	return s.Reads[len(s.Reads)-1]
}

// A consumer that opens after the ring has wrapped replays up to one
// buffer of history.
func TestHistoricalReplayOnLateOpen(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	feed(t, tt, peer, []byte("0123456789abcdef"))

	s.PushOpen()
	pump(t, tt, s)
	s.PushRead(16, 0)
	pump(t, tt, s)

	if got := lastRead(t, s); !bytes.Equal(got, []byte("0123456789abcdef")) {
		t.Fatalf("replayed %q", got)
	}
	s.PushRead(16, 0)
	pump(t, tt, s)
	if got := lastRead(t, s); len(got) != 0 {
		t.Fatalf("second read %q, want empty", got)
	}
}

// Two consumers read the same bytes independently.
func TestFanOutFidelity(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0", "tty1"}, 16)
	s0, s1 := fw.Session("tty0"), fw.Session("tty1")

	for _, s := range []*fake.Session{s0, s1} {
		s.PushOpen()
		pump(t, tt, s)
	}
	feed(t, tt, peer, []byte("ABCD"))

	for _, s := range []*fake.Session{s0, s1} {
		s.PushRead(64, 0)
		pump(t, tt, s)
		if got := lastRead(t, s); !bytes.Equal(got, []byte("ABCD")) {
			t.Fatalf("%s read %q", s.Name, got)
		}
		s.PushRead(64, 0)
		pump(t, tt, s)
		if got := lastRead(t, s); len(got) != 0 {
			t.Fatalf("%s follow-up read %q, want empty", s.Name, got)
		}
	}
}

// A segment ending at the wrap boundary is delivered in two reads.
func TestReadSplitsAtWrapBoundary(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.PushOpen()
	pump(t, tt, s)

	feed(t, tt, peer, []byte("ABCDEFGHIJKL"))
	s.PushRead(64, 0)
	pump(t, tt, s)
	if got := lastRead(t, s); !bytes.Equal(got, []byte("ABCDEFGHIJKL")) {
		t.Fatalf("first read %q", got)
	}

	feed(t, tt, peer, []byte("MNOPQR"))
	s.PushRead(64, 0)
	pump(t, tt, s)
	if got := lastRead(t, s); !bytes.Equal(got, []byte("MNOP")) {
		t.Fatalf("boundary read %q, want MNOP", got)
	}
	s.PushRead(64, 0)
	pump(t, tt, s)
	if got := lastRead(t, s); !bytes.Equal(got, []byte("QR")) {
		t.Fatalf("wrapped read %q, want QR", got)
	}
}

// A consumer lapped by the producer skips to the newest byte and its
// next read comes back empty.
func TestOvertakenConsumerSkipsForward(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.PushOpen()
	pump(t, tt, s)

	feed(t, tt, peer, bytes.Repeat([]byte("x"), 16))
	feed(t, tt, peer, bytes.Repeat([]byte("y"), 16))

	c := tt.Consumers()[0]
	if c.overtakes != 1 {
		t.Fatalf("overtakes = %d, want 1", c.overtakes)
	}
	s.PushRead(64, 0)
	pump(t, tt, s)
	if got := lastRead(t, s); len(got) != 0 {
		t.Fatalf("read after overtake %q, want empty", got)
	}
}

// Writes pass through to the source unchanged.
func TestWriteTransparency(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.PushOpen()
	pump(t, tt, s)
	s.PushWrite([]byte("XY"))
	pump(t, tt, s)

	if len(s.Writes) != 1 || s.Writes[0] != 2 {
		t.Fatalf("write replies %v", s.Writes)
	}
	buf := make([]byte, 8)
	n, err := unix.Read(peer, buf)
	if err != nil || !bytes.Equal(buf[:n], []byte("XY")) {
		t.Fatalf("source saw %q (%v)", buf[:n], err)
	}
	if c := tt.Consumers()[0]; c.bytesForwarded != 2 {
		t.Fatalf("bytesForwarded = %d", c.bytesForwarded)
	}
}

// A retained notifier fires exactly once when data arrives; a further
// delivery before the next poll fires nothing.
func TestNotifierFiresExactlyOnce(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.PushOpen()
	pump(t, tt, s)

	ph := &fake.PollHandle{}
	s.PushPoll(ph)
	pump(t, tt, s)
	if len(s.Polls) != 1 || s.Polls[0] {
		t.Fatalf("poll replies %v, want one not-ready", s.Polls)
	}

	feed(t, tt, peer, []byte("A"))
	if ph.Notifies != 1 || ph.Destroys != 0 {
		t.Fatalf("after first delivery: notifies=%d destroys=%d", ph.Notifies, ph.Destroys)
	}
	feed(t, tt, peer, []byte("B"))
	if ph.Notifies != 1 {
		t.Fatalf("second delivery re-fired the notifier: %d", ph.Notifies)
	}

	// Re-poll with data pending: ready reply, handle not retained.
	ph2 := &fake.PollHandle{}
	s.PushPoll(ph2)
	pump(t, tt, s)
	if !s.Polls[1] {
		t.Fatal("expected ready reply")
	}
	if ph2.Destroys != 1 || ph2.Notifies != 0 {
		t.Fatalf("ready poll handle: notifies=%d destroys=%d", ph2.Notifies, ph2.Destroys)
	}
}

// A new poll handle displaces the retained one, which is released
// without firing.
func TestPollReplacesRetainedHandle(t *testing.T) {
	tt, fw, _ := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.PushOpen()
	pump(t, tt, s)

	ph1 := &fake.PollHandle{}
	s.PushPoll(ph1)
	pump(t, tt, s)
	ph2 := &fake.PollHandle{}
	s.PushPoll(ph2)
	pump(t, tt, s)

	if ph1.Destroys != 1 || ph1.Notifies != 0 {
		t.Fatalf("displaced handle: notifies=%d destroys=%d", ph1.Notifies, ph1.Destroys)
	}
	if ph2.Consumed() {
		t.Fatal("new handle must stay retained")
	}
}

// Reads honour the offset as a peek and advance by the replied size.
func TestReadOffsetPeekAndAdvance(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.PushOpen()
	pump(t, tt, s)
	feed(t, tt, peer, []byte("ABCDEFGH"))

	s.PushRead(4, 2)
	pump(t, tt, s)
	if got := lastRead(t, s); !bytes.Equal(got, []byte("CDEF")) {
		t.Fatalf("offset read %q, want CDEF", got)
	}
	// Cursor advanced by the replied 4 bytes, not by offset+size.
	s.PushRead(64, 0)
	pump(t, tt, s)
	if got := lastRead(t, s); !bytes.Equal(got, []byte("EFGH")) {
		t.Fatalf("follow-up read %q, want EFGH", got)
	}

	// Offset beyond the available data yields an empty reply.
	s.PushRead(4, 64)
	pump(t, tt, s)
	if got := lastRead(t, s); len(got) != 0 {
		t.Fatalf("far-offset read %q, want empty", got)
	}
}

// Clients of one device share the cursor: a second open joins the
// stream where the first left it.
func TestConcurrentOpensShareCursor(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.PushOpen()
	pump(t, tt, s)
	feed(t, tt, peer, []byte("ABCDEFGH"))

	s.PushRead(4, 0)
	pump(t, tt, s)
	s.PushOpen()
	pump(t, tt, s)
	s.PushRead(64, 0)
	pump(t, tt, s)
	if got := lastRead(t, s); !bytes.Equal(got, []byte("EFGH")) {
		t.Fatalf("read after second open %q, want EFGH", got)
	}

	// One release keeps the cursor; the last release resets it.
	s.PushRelease()
	pump(t, tt, s)
	c := tt.Consumers()[0]
	if c.opens != 1 {
		t.Fatalf("opens = %d, want 1", c.opens)
	}
	s.PushRelease()
	pump(t, tt, s)
	if c.opens != 0 || c.cur.Pos() != 0 || c.cur.Gen() != 0 {
		t.Fatalf("cursor not reset: opens=%d pos=%d gen=%d", c.opens, c.cur.Pos(), c.cur.Gen())
	}
	if s.ReleaseAcks != 2 {
		t.Fatalf("release acks = %d, want 2", s.ReleaseAcks)
	}
}

// A release without a matching open is acknowledged and leaves the
// count at zero.
func TestSpuriousReleaseIsTolerated(t *testing.T) {
	tt, fw, _ := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.PushRelease()
	pump(t, tt, s)
	if c := tt.Consumers()[0]; c.opens != 0 {
		t.Fatalf("opens = %d, want 0", c.opens)
	}
	if s.ReleaseAcks != 1 {
		t.Fatal("release not acknowledged")
	}
}

// A fresh open against a ring that never wrapped sees no history.
func TestOpenBeforeWrapSeesNothing(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	feed(t, tt, peer, []byte("ABCD"))
	s.PushOpen()
	pump(t, tt, s)
	s.PushRead(64, 0)
	pump(t, tt, s)
	if got := lastRead(t, s); len(got) != 0 {
		t.Fatalf("read %q, want empty", got)
	}

	// Bytes produced from now on do arrive.
	feed(t, tt, peer, []byte("EF"))
	s.PushRead(64, 0)
	pump(t, tt, s)
	if got := lastRead(t, s); !bytes.Equal(got, []byte("EF")) {
		t.Fatalf("read %q, want EF", got)
	}
}

func TestStatsSnapshot(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.PushOpen()
	pump(t, tt, s)
	feed(t, tt, peer, []byte("ABCD"))
	s.PushRead(64, 0)
	pump(t, tt, s)

	stats := tt.Stats()
	if stats["source_bytes"].(uint64) != 4 {
		t.Fatalf("source_bytes = %v", stats["source_bytes"])
	}
	consumers := stats["consumers"].([]ConsumerStats)
	if len(consumers) != 1 || consumers[0].BytesDelivered != 4 || consumers[0].Name != "tty0" {
		t.Fatalf("consumer stats %+v", consumers)
	}
	if consumers[0].ID == "" {
		t.Fatal("consumer ID empty")
	}
}
