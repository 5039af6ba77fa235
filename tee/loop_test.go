// File: tee/loop_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tee

import (
	"bytes"
	"testing"

	"golang.org/x/sys/unix"
)

// The loop multiplexes the source and the session descriptors: scripted
// requests and source data are all serviced, and the loop ends cleanly
// when the session stream does. The source fills a full lap before the
// open so the outcome is independent of the order epoll reports the two
// descriptors in.
func TestRunServicesSourceAndSessions(t *testing.T) {
	tt, fw, peer := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	payload := []byte("0123456789abcdef")
	if _, err := unix.Write(peer, payload); err != nil {
		t.Fatalf("write source peer: %v", err)
	}
	s.PushOpen()
	s.PushRead(16, 0)
	s.PushRead(16, 0)
	s.CloseWrite()

	if err := tt.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if s.OpenOks != 1 {
		t.Fatalf("open replies = %d", s.OpenOks)
	}
	if len(s.Reads) != 2 {
		t.Fatalf("read replies = %d, want 2", len(s.Reads))
	}
	if !bytes.Equal(s.Reads[0], payload) {
		t.Fatalf("first read %q", s.Reads[0])
	}
	if len(s.Reads[1]) != 0 {
		t.Fatalf("second read %q, want empty", s.Reads[1])
	}
}

// The loop ends when a session signals kernel-side exit.
func TestRunStopsOnSessionExit(t *testing.T) {
	tt, fw, _ := newTestTee(t, []string{"tty0"}, 16)
	s := fw.Session("tty0")

	s.MarkExited()
	s.PushOpen()

	if err := tt.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.OpenOks != 1 {
		t.Fatal("queued request was not serviced before exit")
	}
}

// A pre-arranged stop wins before the first wait.
func TestRunHonoursStop(t *testing.T) {
	tt, _, _ := newTestTee(t, []string{"tty0"}, 16)
	tt.Stop()
	if err := tt.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
