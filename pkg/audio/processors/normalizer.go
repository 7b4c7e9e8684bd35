package processors

import (
	"math"
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// defaultLookAhead balances peak detection against added latency. Shorter
// windows react faster, longer windows catch more of an upcoming peak.
const defaultLookAhead = 20 * time.Millisecond

// normalizeEpsilon is the gain deviation from unity below which a buffer
// does not count as normalized.
const normalizeEpsilon = 0.001

// Normalizer brings peak levels to a target using a look-ahead window for
// true peak detection: samples are delayed by the window so the gain for a
// buffer already accounts for peaks that have not played yet. Gain never
// exceeds unity, so quiet audio stays quiet and nothing new can clip.
//
// Output lags input by the look-ahead window; until the window fills the
// processor emits empty buffers to preserve pipeline timing.
type Normalizer struct {
	name      string
	target    float64 // linear peak target
	lookAhead time.Duration
	window    int // look-ahead size in samples

	mu         sync.Mutex
	pending    []float32 // delayed samples, newest at the tail
	maxPeak    float64
	normalized uint64
	stats      audio.ProcessorStats
}

// NormalizerOption configures a [Normalizer] during construction.
type NormalizerOption func(*Normalizer) error

// WithLookAhead sets the look-ahead window duration. The default is 20ms.
func WithLookAhead(d time.Duration) NormalizerOption {
	return func(n *Normalizer) error {
		if d <= 0 {
			return audio.NodeErrf(audio.KindConfiguration, n.name,
				"look-ahead must be positive, got %v", d)
		}
		n.lookAhead = d
		return nil
	}
}

// NewNormalizer creates a peak normalizer targeting the given level in
// dBFS (e.g. -3.0) at the given sample rate.
func NewNormalizer(name string, targetDB float64, sampleRate int, opts ...NormalizerOption) (*Normalizer, error) {
	if targetDB > 0 {
		return nil, audio.NodeErrf(audio.KindConfiguration, name,
			"target level must be <= 0 dBFS, got %g", targetDB)
	}
	if sampleRate <= 0 {
		return nil, audio.NodeErrf(audio.KindConfiguration, name,
			"sample rate must be positive, got %d", sampleRate)
	}
	n := &Normalizer{
		name:      name,
		target:    math.Pow(10, targetDB/20),
		lookAhead: defaultLookAhead,
	}
	for _, o := range opts {
		if err := o(n); err != nil {
			return nil, err
		}
	}
	n.window = int(float64(sampleRate) * n.lookAhead.Seconds())
	if n.window < 1 {
		n.window = 1
	}
	return n, nil
}

// Process delays a single input buffer through the look-ahead window and
// emits the oldest samples scaled toward the target peak.
func (n *Normalizer) Process(inputs []*audio.Buffer) (*audio.Buffer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(inputs) != 1 {
		n.stats.Errors++
		return nil, audio.NodeErrf(audio.KindProcessing, n.name, "expected 1 input, got %d", len(inputs))
	}
	in := inputs[0]

	n.pending = append(n.pending, in.Samples...)

	// Not enough buffered to see a full window ahead yet.
	if len(n.pending) < n.window {
		n.stats.BuffersProcessed++
		out := audio.NewBuffer(in.Format, nil, in.Timestamp)
		out.Sequence = in.Sequence
		return out, nil
	}

	peak := n.peakLocked()
	if peak > n.maxPeak {
		n.maxPeak = peak
	}

	gain := 1.0
	if peak > 0 {
		gain = math.Min(n.target/peak, 1.0)
	}
	if math.Abs(gain-1.0) > normalizeEpsilon {
		n.normalized++
	}

	// Emit up to one input buffer's worth while keeping the window full.
	count := len(n.pending) - n.window
	if count > len(in.Samples) {
		count = len(in.Samples)
	}
	samples := make([]float32, count)
	for i := 0; i < count; i++ {
		samples[i] = float32(float64(n.pending[i]) * gain)
	}
	n.pending = n.pending[count:]

	n.stats.BuffersProcessed++
	n.stats.SamplesProcessed += uint64(count)

	out := audio.NewBuffer(in.Format, samples, in.Timestamp)
	out.Sequence = in.Sequence
	return out, nil
}

// peakLocked finds the highest absolute sample in the look-ahead window.
func (n *Normalizer) peakLocked() float64 {
	peak := 0.0
	for _, s := range n.pending[:n.window] {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// MaxPeak returns the highest peak level seen so far.
func (n *Normalizer) MaxPeak() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.maxPeak
}

// Normalized returns how many buffers had a non-unity gain applied.
func (n *Normalizer) Normalized() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.normalized
}

// OutputFormat reports the normalizer's format transform: identity.
func (n *Normalizer) OutputFormat(input audio.Format) audio.Format { return input }

// Reset drops the delayed samples and clears the counters.
func (n *Normalizer) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = nil
	n.maxPeak = 0
	n.normalized = 0
	n.stats = audio.ProcessorStats{}
}

// Name returns the processor's identifier.
func (n *Normalizer) Name() string { return n.name }

// Stats returns a snapshot of the processor's counters.
func (n *Normalizer) Stats() audio.ProcessorStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}
