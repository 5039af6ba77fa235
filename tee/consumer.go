// File: tee/consumer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tee

import (
	"github.com/google/uuid"

	"github.com/momentics/sertee/api"
	"github.com/momentics/sertee/internal/ring"
)

// Consumer is one synthetic device together with its reader state. The
// cursor is shared by every client of the device: the first open
// positions it, later opens join it where it stands.
type Consumer struct {
	name string
	id   uuid.UUID

	sess api.Session
	cur  ring.Cursor

	opens int
	// At most one retained wakeup handle at any time. Set by a
	// not-ready poll, consumed by the source reader or replaced by the
	// next poll.
	ph api.PollHandle

	bytesDelivered uint64
	bytesForwarded uint64
	overtakes      uint64
	notifyFires    uint64
}

func newConsumer(name string) *Consumer {
	return &Consumer{name: name, id: uuid.New()}
}

// Name returns the device name the consumer is published under.
func (c *Consumer) Name() string { return c.name }

// ID returns the stable consumer identity.
func (c *Consumer) ID() uuid.UUID { return c.id }
