// Package reactor provides the single-threaded readiness multiplexer
// used by the fan-out event loop. Only Linux carries a real
// implementation; the synthetic devices themselves require a Linux
// kernel facility anyway.
package reactor
