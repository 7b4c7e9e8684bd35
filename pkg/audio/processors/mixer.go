// Package processors provides the built-in audio.Processor implementations:
// the reference Mixer plus gain, sample-rate, and silence-gate transforms.
package processors

import (
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Processor = (*Mixer)(nil)
	_ audio.Processor = (*Volume)(nil)
	_ audio.Processor = (*Resampler)(nil)
	_ audio.Processor = (*Gate)(nil)
	_ audio.Processor = (*Normalizer)(nil)
)

// MixMode determines how a [Mixer] combines its inputs.
type MixMode int

const (
	// MixSum adds all inputs sample-by-sample. May clip without the peak
	// limiter.
	MixSum MixMode = iota

	// MixAverage averages all inputs. Never clips.
	MixAverage

	// MixWeighted applies per-input balance weights before summing.
	MixWeighted
)

// String returns the human-readable name of the mix mode.
func (m MixMode) String() string {
	switch m {
	case MixSum:
		return "sum"
	case MixAverage:
		return "average"
	case MixWeighted:
		return "weighted"
	default:
		return "unknown"
	}
}

// Mixer limits on the number of inputs.
const (
	minMixerInputs = 2
	maxMixerInputs = 8
)

// Mixer combines the buffers of multiple upstream edges into one output
// buffer. All inputs must share an identical format and sample count; the
// output preserves the input format. The peak limiter (on by default) clamps
// output samples to [-1.0, 1.0].
type Mixer struct {
	name      string
	numInputs int

	mu       sync.Mutex
	mode     MixMode
	balances []float64
	limiter  bool
	stats    audio.ProcessorStats
}

// NewMixer creates a mixer for numInputs upstream edges (2–8) in the given
// mode. Balances default to 1.0 for every input.
func NewMixer(name string, numInputs int, mode MixMode) (*Mixer, error) {
	if numInputs < minMixerInputs || numInputs > maxMixerInputs {
		return nil, audio.NodeErrf(audio.KindConfiguration, name,
			"mixer requires %d-%d inputs, got %d", minMixerInputs, maxMixerInputs, numInputs)
	}

	balances := make([]float64, numInputs)
	for i := range balances {
		balances[i] = 1.0
	}
	return &Mixer{
		name:      name,
		numInputs: numInputs,
		mode:      mode,
		balances:  balances,
		limiter:   true,
	}, nil
}

// SetBalance sets the weight of a single input for [MixWeighted] mode.
// balance must be in [0.0, 1.0].
func (m *Mixer) SetBalance(input int, balance float64) error {
	if input < 0 || input >= m.numInputs {
		return audio.NodeErrf(audio.KindConfiguration, m.name,
			"input index %d out of range (max %d)", input, m.numInputs-1)
	}
	if balance < 0 || balance > 1 {
		return audio.NodeErrf(audio.KindConfiguration, m.name,
			"balance must be in [0.0, 1.0], got %g", balance)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[input] = balance
	return nil
}

// Balance returns the weight of a single input, or false when the index is
// out of range.
func (m *Mixer) Balance(input int) (float64, bool) {
	if input < 0 || input >= m.numInputs {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[input], true
}

// SetPeakLimiter enables or disables clamping of output samples to
// [-1.0, 1.0].
func (m *Mixer) SetPeakLimiter(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiter = enabled
}

// Mode returns the current mix mode.
func (m *Mixer) Mode() MixMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetMode changes the mix mode. Takes effect on the next Process call.
func (m *Mixer) SetMode(mode MixMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// Process mixes one buffer per input into a single output buffer.
func (m *Mixer) Process(inputs []*audio.Buffer) (*audio.Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(inputs) != m.numInputs {
		m.stats.Errors++
		return nil, audio.NodeErrf(audio.KindProcessing, m.name,
			"expected %d inputs, got %d", m.numInputs, len(inputs))
	}

	format := inputs[0].Format
	n := len(inputs[0].Samples)
	for i, in := range inputs[1:] {
		if !in.Format.Compatible(format) {
			m.stats.Errors++
			return nil, audio.NodeErrf(audio.KindFormat, m.name,
				"input %d format %s does not match %s", i+1, in.Format, format)
		}
		if len(in.Samples) != n {
			m.stats.Errors++
			return nil, audio.NodeErrf(audio.KindProcessing, m.name,
				"input %d length %d does not match %d", i+1, len(in.Samples), n)
		}
	}

	out := make([]float32, n)
	switch m.mode {
	case MixSum:
		for _, in := range inputs {
			for i, s := range in.Samples {
				out[i] += s
			}
		}
	case MixAverage:
		for _, in := range inputs {
			for i, s := range in.Samples {
				out[i] += s
			}
		}
		scale := float32(1.0 / float64(len(inputs)))
		for i := range out {
			out[i] *= scale
		}
	case MixWeighted:
		for idx, in := range inputs {
			w := float32(m.balances[idx])
			for i, s := range in.Samples {
				out[i] += s * w
			}
		}
	}

	if m.limiter {
		for i, s := range out {
			if s > 1 {
				out[i] = 1
			} else if s < -1 {
				out[i] = -1
			}
		}
	}

	m.stats.BuffersProcessed++
	m.stats.SamplesProcessed += uint64(n)

	buf := audio.NewBuffer(format, out, time.Now())
	buf.Sequence = inputs[0].Sequence
	return buf, nil
}

// OutputFormat reports the mixer's format transform: identity.
func (m *Mixer) OutputFormat(input audio.Format) audio.Format { return input }

// Reset clears the mixer's counters.
func (m *Mixer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = audio.ProcessorStats{}
}

// Name returns the mixer's identifier.
func (m *Mixer) Name() string { return m.name }

// Stats returns a snapshot of the mixer's counters.
func (m *Mixer) Stats() audio.ProcessorStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
