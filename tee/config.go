// File: tee/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tee

import (
	"fmt"
	"strings"

	"github.com/momentics/sertee/api"
	"github.com/momentics/sertee/internal/ring"
)

// DefaultBufSize is the ring capacity used when none is configured.
const DefaultBufSize = 1024

// Config holds parameters immutable per run.
type Config struct {
	Source        string   // Path of the source character device.
	Names         []string // One synthetic device is published per name.
	BufSize       int      // Ring capacity in bytes.
	WaitTimeoutMs int      // Multiplexer heartbeat; bounds shutdown latency only.
	MaxEvents     int      // Readiness events serviced per wakeup batch.
}

// DefaultConfig returns sensible defaults. Source and Names have no
// default and must be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		BufSize:       DefaultBufSize,
		WaitTimeoutMs: 30000,
		MaxEvents:     5,
	}
}

func (cfg *Config) validate() error {
	if cfg.Source == "" {
		return fmt.Errorf("source device required: %w", api.ErrInvalidArgument)
	}
	if len(cfg.Names) == 0 {
		return fmt.Errorf("device names required: %w", api.ErrInvalidArgument)
	}
	for _, name := range cfg.Names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("empty device name: %w", api.ErrInvalidArgument)
		}
	}
	if cfg.BufSize < ring.MinCapacity {
		return fmt.Errorf("bufsize %d below minimum %d: %w", cfg.BufSize, ring.MinCapacity, api.ErrInvalidArgument)
	}
	return nil
}

// SplitNames tokenises a comma-separated device name list.
func SplitNames(list string) []string {
	var names []string
	for _, tok := range strings.Split(list, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			names = append(names, tok)
		}
	}
	return names
}
