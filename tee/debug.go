//go:build debug

// File: tee/debug.go
// Author: momentics <momentics@gmail.com>
//
// Enable debug tracing.

package tee

const debugEnabled = true
