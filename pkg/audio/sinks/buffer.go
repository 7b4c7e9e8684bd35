// Package sinks provides the built-in audio.Sink implementations: an
// in-memory accumulator, a discarding counter, and a WAV file encoder.
package sinks

import (
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Sink = (*Buffer)(nil)
	_ audio.Sink = (*Null)(nil)
	_ audio.Sink = (*WAV)(nil)
)

// defaultMaxBuffers bounds an accumulator that was created without an
// explicit limit, preventing a forgotten sink from growing without bound.
const defaultMaxBuffers = 4096

// Buffer accumulates written buffers in memory up to a configured limit.
// Useful for tests, previews, and short captures held for later encoding.
type Buffer struct {
	name string
	max  int

	mu     sync.Mutex
	closed bool
	bufs   []*audio.Buffer
	stats  audio.SinkStats
}

// BufferOption configures a [Buffer] sink during construction.
type BufferOption func(*Buffer)

// WithMaxBuffers sets the accumulation limit. Writes beyond the limit fail
// with a buffer error.
func WithMaxBuffers(n int) BufferOption {
	return func(b *Buffer) {
		if n > 0 {
			b.max = n
		}
	}
}

// NewBuffer creates an in-memory accumulator sink.
func NewBuffer(name string, opts ...BufferOption) *Buffer {
	b := &Buffer{name: name, max: defaultMaxBuffers}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Write appends the buffer to the accumulator.
func (b *Buffer) Write(buf *audio.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.stats.Errors++
		return audio.NodeErrf(audio.KindInvalidState, b.name, "write after close")
	}
	if len(b.bufs) >= b.max {
		b.stats.Errors++
		return audio.NodeErrf(audio.KindBuffer, b.name, "accumulator full (%d buffers)", b.max)
	}

	b.bufs = append(b.bufs, buf)
	b.stats.BuffersWritten++
	b.stats.SamplesWritten += uint64(len(buf.Samples))
	b.stats.BytesWritten += uint64(len(buf.Samples) * 4)
	return nil
}

// Flush is a no-op; the accumulator has no backing store.
func (b *Buffer) Flush() error { return nil }

// Close stops accepting writes. Idempotent; accumulated buffers remain
// readable via [Buffer.Buffers].
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Buffers returns a snapshot of the accumulated buffers in write order.
func (b *Buffer) Buffers() []*audio.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*audio.Buffer, len(b.bufs))
	copy(out, b.bufs)
	return out
}

// Name returns the sink's identifier.
func (b *Buffer) Name() string { return b.name }

// Stats returns a snapshot of the sink's counters.
func (b *Buffer) Stats() audio.SinkStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
