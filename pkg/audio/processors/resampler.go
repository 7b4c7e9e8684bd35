package processors

import (
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// Resampler converts buffers between sample rates using per-channel linear
// interpolation. Rate conversion never happens implicitly inside the graph —
// a Resampler is an ordinary node wired between two format domains, and its
// OutputFormat declares the rate change so downstream nodes see the
// converted format.
type Resampler struct {
	name     string
	fromRate int
	toRate   int
	channels int

	mu    sync.Mutex
	stats audio.ProcessorStats
}

// NewResampler creates a resampler converting channels-channel audio from
// fromRate to toRate.
func NewResampler(name string, fromRate, toRate, channels int) (*Resampler, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, audio.NodeErrf(audio.KindConfiguration, name,
			"sample rates must be positive, got %d -> %d", fromRate, toRate)
	}
	if channels <= 0 {
		return nil, audio.NodeErrf(audio.KindConfiguration, name,
			"channel count must be positive, got %d", channels)
	}
	return &Resampler{name: name, fromRate: fromRate, toRate: toRate, channels: channels}, nil
}

// Process converts a single input buffer to the target rate.
func (r *Resampler) Process(inputs []*audio.Buffer) (*audio.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(inputs) != 1 {
		r.stats.Errors++
		return nil, audio.NodeErrf(audio.KindProcessing, r.name, "expected 1 input, got %d", len(inputs))
	}
	in := inputs[0]
	if in.Format.SampleRate != r.fromRate || in.Format.Channels != r.channels {
		r.stats.Errors++
		return nil, audio.NodeErrf(audio.KindFormat, r.name,
			"input format %s does not match configured %dHz %dch", in.Format, r.fromRate, r.channels)
	}

	outFormat := r.OutputFormat(in.Format)

	srcFrames := len(in.Samples) / r.channels
	if r.fromRate == r.toRate || srcFrames == 0 {
		out := audio.NewBuffer(outFormat, in.Samples, in.Timestamp)
		out.Sequence = in.Sequence
		r.stats.BuffersProcessed++
		r.stats.SamplesProcessed += uint64(len(in.Samples))
		return out, nil
	}

	dstFrames := int(int64(srcFrames) * int64(r.toRate) / int64(r.fromRate))
	out := make([]float32, dstFrames*r.channels)
	ratio := float64(srcFrames) / float64(dstFrames)

	for i := 0; i < dstFrames; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		for ch := 0; ch < r.channels; ch++ {
			s0 := in.Samples[srcIdx*r.channels+ch]
			s1 := s0
			if srcIdx+1 < srcFrames {
				s1 = in.Samples[(srcIdx+1)*r.channels+ch]
			}
			out[i*r.channels+ch] = s0*(1-frac) + s1*frac
		}
	}

	r.stats.BuffersProcessed++
	r.stats.SamplesProcessed += uint64(len(out))

	buf := audio.NewBuffer(outFormat, out, in.Timestamp)
	buf.Sequence = in.Sequence
	return buf, nil
}

// OutputFormat declares the rate change: same channels and kind, target rate.
func (r *Resampler) OutputFormat(input audio.Format) audio.Format {
	input.SampleRate = r.toRate
	return input
}

// Reset clears the counters. The linear interpolator keeps no cross-buffer
// history.
func (r *Resampler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = audio.ProcessorStats{}
}

// Name returns the processor's identifier.
func (r *Resampler) Name() string { return r.name }

// Stats returns a snapshot of the processor's counters.
func (r *Resampler) Stats() audio.ProcessorStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
