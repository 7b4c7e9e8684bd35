package sources

import (
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// defaultRingDepth is the number of pending buffers a [Push] source holds
// before the oldest is discarded.
const defaultRingDepth = 32

// PushOption configures a [Push] source during construction.
type PushOption func(*Push)

// WithRingDepth sets the capacity of the internal ring. Pushes beyond this
// depth discard the oldest pending buffer and count an overrun.
func WithRingDepth(n int) PushOption {
	return func(p *Push) {
		if n > 0 {
			p.depth = n
		}
	}
}

// Push is the capture seam between an OS-level callback thread and the
// single-threaded graph scheduler. A capture backend calls [Push.Push] from
// whatever thread its device API delivers samples on; the scheduler drains
// buffers through Read without ever blocking.
//
// Internally the source keeps a mutex-guarded bounded ring of pending
// buffers. When the capture side outpaces the scheduler, the oldest pending
// buffer is dropped and the overrun counter incremented — the ring never
// grows beyond its configured depth and Push never blocks the capture
// thread.
type Push struct {
	name   string
	format audio.Format
	depth  int

	mu      sync.Mutex
	active  bool
	pending []*audio.Buffer
	seq     uint64
	stats   audio.SourceStats
}

// NewPush creates a push source for capture callbacks producing samples in
// the given format.
func NewPush(name string, format audio.Format, opts ...PushOption) *Push {
	p := &Push{
		name:   name,
		format: format,
		depth:  defaultRingDepth,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Format returns the format capture callbacks must deliver.
func (p *Push) Format() audio.Format { return p.format }

// Start marks the source active. Pushes arriving before Start are rejected.
func (p *Push) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return audio.NodeErrf(audio.KindInvalidState, p.name, "already started")
	}
	p.active = true
	return nil
}

// Stop marks the source inactive and discards pending buffers. Safe to call
// multiple times.
func (p *Push) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active = false
	p.pending = nil
	return nil
}

// Push enqueues one block of interleaved samples from the capture thread.
// The samples slice is owned by the source after the call. Pushing while the
// source is stopped fails with an invalid-state error; pushing onto a full
// ring drops the oldest pending buffer and counts an overrun, never blocking
// the caller.
func (p *Push) Push(samples []float32, timestamp time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return audio.NodeErrf(audio.KindInvalidState, p.name, "push on stopped source")
	}

	if len(p.pending) >= p.depth {
		// Oldest data is the least useful for live capture.
		p.pending = p.pending[1:]
		p.stats.Overruns++
	}

	buf := audio.NewBuffer(p.format, samples, timestamp)
	buf.Sequence = p.seq
	p.seq++
	p.pending = append(p.pending, buf)
	return nil
}

// Read pops the oldest pending buffer, or returns (nil, nil) when the ring
// is empty. Never blocks.
func (p *Push) Read() (*audio.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active || len(p.pending) == 0 {
		return nil, nil
	}

	buf := p.pending[0]
	p.pending = p.pending[1:]

	p.stats.BuffersProduced++
	p.stats.SamplesProduced += uint64(len(buf.Samples))
	p.stats.LastActive = time.Now()
	return buf, nil
}

// Depth returns the number of buffers currently pending.
func (p *Push) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// IsActive reports whether the source is started.
func (p *Push) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Name returns the source's identifier.
func (p *Push) Name() string { return p.name }

// Stats returns a snapshot of the source's counters.
func (p *Push) Stats() audio.SourceStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
