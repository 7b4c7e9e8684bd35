package sinks

import (
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// Null discards every written buffer while counting throughput. Useful for
// benchmarking a pipeline without encoding or storage overhead.
type Null struct {
	name string

	mu     sync.Mutex
	closed bool
	stats  audio.SinkStats
}

// NewNull creates a discarding sink.
func NewNull(name string) *Null {
	return &Null{name: name}
}

// Write counts and discards the buffer.
func (n *Null) Write(buf *audio.Buffer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		n.stats.Errors++
		return audio.NodeErrf(audio.KindInvalidState, n.name, "write after close")
	}

	n.stats.BuffersWritten++
	n.stats.SamplesWritten += uint64(len(buf.Samples))
	n.stats.BytesWritten += uint64(len(buf.Samples) * 4)
	return nil
}

// Flush is a no-op.
func (n *Null) Flush() error { return nil }

// Close stops accepting writes. Idempotent.
func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

// Name returns the sink's identifier.
func (n *Null) Name() string { return n.name }

// Stats returns a snapshot of the sink's counters.
func (n *Null) Stats() audio.SinkStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}
