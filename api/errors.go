// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values shared across the sertee packages.

package api

import "errors"

var (
	// ErrSessionExited reports an operation on a session the kernel has
	// already shut down.
	ErrSessionExited = errors.New("session has exited")

	// ErrHandleConsumed reports a second use of a fired or destroyed
	// poll handle.
	ErrHandleConsumed = errors.New("poll handle already consumed")

	// ErrInvalidArgument reports a malformed configuration value.
	ErrInvalidArgument = errors.New("invalid argument")
)
