// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness multiplexer interface. One reactor instance
// watches the source descriptor and every device-session descriptor; the
// event loop drains it from a single thread.

package reactor

// EventReactor defines basic readiness-multiplexing operations.
type EventReactor interface {
	// Register adds fd to the watch set for read readiness. tag is an
	// opaque value reported back with every event for this fd.
	Register(fd int, tag int32) error

	// Wait blocks until at least one registered descriptor is readable
	// or timeoutMs elapses (-1 blocks indefinitely). It fills events and
	// returns the number written; zero means the wait timed out or was
	// interrupted.
	Wait(events []Event, timeoutMs int) (n int, err error)

	// Close releases the multiplexer.
	Close() error
}

// Event is one readiness notification returned by Wait.
type Event struct {
	Tag int32 // Tag supplied at Register time.
}
