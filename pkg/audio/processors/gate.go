package processors

import (
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// defaultHold keeps the gate open briefly after the signal drops below the
// threshold, so natural pauses in speech are not chopped.
const defaultHold = 300 * time.Millisecond

// Gate passes buffers whose RMS level is at or above the threshold and
// replaces quieter buffers with silence of the same length, preserving
// pipeline timing. A hold window keeps the gate open across short pauses.
type Gate struct {
	name      string
	threshold float64
	hold      time.Duration

	mu        sync.Mutex
	openUntil time.Time
	passed    uint64
	gated     uint64
	stats     audio.ProcessorStats
}

// GateOption configures a [Gate] during construction.
type GateOption func(*Gate)

// WithHold sets how long the gate stays open after the level last crossed
// the threshold.
func WithHold(d time.Duration) GateOption {
	return func(g *Gate) {
		if d >= 0 {
			g.hold = d
		}
	}
}

// NewGate creates a silence gate with the given RMS threshold (0.0–1.0).
func NewGate(name string, threshold float64, opts ...GateOption) (*Gate, error) {
	if threshold < 0 || threshold > 1 {
		return nil, audio.NodeErrf(audio.KindConfiguration, name,
			"threshold must be in [0.0, 1.0], got %g", threshold)
	}
	g := &Gate{name: name, threshold: threshold, hold: defaultHold}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Process passes or silences a single input buffer.
func (g *Gate) Process(inputs []*audio.Buffer) (*audio.Buffer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(inputs) != 1 {
		g.stats.Errors++
		return nil, audio.NodeErrf(audio.KindProcessing, g.name, "expected 1 input, got %d", len(inputs))
	}
	in := inputs[0]

	now := time.Now()
	if in.RMS() >= g.threshold {
		g.openUntil = now.Add(g.hold)
	}

	g.stats.BuffersProcessed++
	g.stats.SamplesProcessed += uint64(len(in.Samples))

	if now.Before(g.openUntil) {
		g.passed++
		return in, nil
	}

	g.gated++
	out := audio.NewBuffer(in.Format, make([]float32, len(in.Samples)), in.Timestamp)
	out.Sequence = in.Sequence
	return out, nil
}

// Passed returns how many buffers crossed the gate unmodified.
func (g *Gate) Passed() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.passed
}

// Gated returns how many buffers were replaced with silence.
func (g *Gate) Gated() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gated
}

// OutputFormat reports the gate's format transform: identity.
func (g *Gate) OutputFormat(input audio.Format) audio.Format { return input }

// Reset closes the gate and clears the counters.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.openUntil = time.Time{}
	g.passed = 0
	g.gated = 0
	g.stats = audio.ProcessorStats{}
}

// Name returns the processor's identifier.
func (g *Gate) Name() string { return g.name }

// Stats returns a snapshot of the processor's counters.
func (g *Gate) Stats() audio.ProcessorStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}
