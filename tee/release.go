//go:build !debug

// File: tee/release.go
// Author: momentics <momentics@gmail.com>

package tee

const debugEnabled = false
