// File: tee/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tee

// ConsumerStats is a read-only snapshot of one consumer's counters.
type ConsumerStats struct {
	Name           string
	ID             string
	Opens          int
	BytesDelivered uint64
	BytesForwarded uint64
	Overtakes      uint64
	NotifyFires    uint64
}

// Stats exposes runtime counters for observability. Process-local; call
// from the loop thread.
func (t *Tee) Stats() map[string]any {
	consumers := make([]ConsumerStats, 0, len(t.consumers))
	for _, c := range t.consumers {
		consumers = append(consumers, ConsumerStats{
			Name:           c.name,
			ID:             c.id.String(),
			Opens:          c.opens,
			BytesDelivered: c.bytesDelivered,
			BytesForwarded: c.bytesForwarded,
			Overtakes:      c.overtakes,
			NotifyFires:    c.notifyFires,
		})
	}
	return map[string]any{
		"source_bytes":  t.sourceBytes,
		"read_failures": t.readFailures,
		"ring_capacity": t.ring.Cap(),
		"consumers":     consumers,
	}
}
