package audio

import "time"

// Source produces audio buffers. Sources are the entry points of a graph:
// capture backends, file readers, and test generators all implement this
// contract.
//
// Capture callbacks typically arrive on arbitrary OS threads, so every
// implementation must be safe for concurrent use. An implementation backed
// by foreign or unsafe resources must guarantee exclusive mutable access
// internally (e.g., via a mutex) before claiming that safety.
type Source interface {
	// Format returns the output format of this source. The format is fixed
	// for the node's lifetime; callers must not assume it changes after
	// Start.
	Format() Format

	// Start acquires the underlying device or resource and begins producing.
	// Calling Start while already active fails with an invalid-state error.
	Start() error

	// Stop releases the resource. Stop is safe to call multiple times;
	// subsequent calls must never leak resources.
	Stop() error

	// Read returns the next available buffer, or (nil, nil) when no data is
	// currently ready. Read must never block the calling scheduler thread.
	Read() (*Buffer, error)

	// IsActive reports whether the source is currently producing.
	IsActive() bool

	// Name returns a human-readable identifier for logs and stats.
	Name() string

	// Stats returns a snapshot of the source's counters.
	Stats() SourceStats
}

// Processor transforms audio buffers. Given one buffer per incoming edge
// (in edge registration order), Process produces exactly one output buffer
// or fails. Implementations must be safe for concurrent use.
type Processor interface {
	// Process transforms the inputs into a single output buffer. It must not
	// retain references to the input buffers past the call.
	Process(inputs []*Buffer) (*Buffer, error)

	// OutputFormat declares how the processor transforms its input format —
	// identity for most processors, a rate change for a resampler.
	OutputFormat(input Format) Format

	// Reset clears internal state (e.g., filter history) without requiring
	// node removal.
	Reset()

	// Name returns a human-readable identifier for logs and stats.
	Name() string

	// Stats returns a snapshot of the processor's counters.
	Stats() ProcessorStats
}

// Sink consumes audio buffers: encoders, network writers, in-memory
// accumulators. Implementations must be safe for concurrent use.
type Sink interface {
	// Write accepts ownership of the buffer. After Close, all further Write
	// calls fail with an invalid-state error.
	Write(buffer *Buffer) error

	// Flush forces any buffered-but-unwritten data to its durable
	// destination. Flush is idempotent.
	Flush() error

	// Close finalizes and releases resources. Close is idempotent; a second
	// call is a no-op returning nil.
	Close() error

	// Name returns a human-readable identifier for logs and stats.
	Name() string

	// Stats returns a snapshot of the sink's counters.
	Stats() SinkStats
}

// SourceStats is a snapshot of a source's counters.
type SourceStats struct {
	// BuffersProduced counts buffers handed out by Read.
	BuffersProduced uint64

	// SamplesProduced counts individual samples across all buffers.
	SamplesProduced uint64

	// Overruns counts buffers discarded internally because the capture side
	// outpaced Read.
	Overruns uint64

	// LastActive is the time of the last successful Read.
	LastActive time.Time
}

// ProcessorStats is a snapshot of a processor's counters.
type ProcessorStats struct {
	BuffersProcessed uint64
	SamplesProcessed uint64

	// Errors counts failed Process calls.
	Errors uint64
}

// SinkStats is a snapshot of a sink's counters.
type SinkStats struct {
	BuffersWritten uint64
	SamplesWritten uint64
	BytesWritten   uint64

	// Errors counts failed Write calls.
	Errors uint64
}
