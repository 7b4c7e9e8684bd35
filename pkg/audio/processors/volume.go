package processors

import (
	"math"
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// Volume applies a gain to every sample, ramping smoothly between gain
// changes to avoid audible clicks. Unity gain by default.
type Volume struct {
	name string

	mu         sync.Mutex
	gain       float64 // current gain, moves toward target
	target     float64
	step       float64 // per-frame gain delta while ramping
	rampFrames int     // frames remaining in the current ramp
	stats      audio.ProcessorStats
}

// NewVolume creates a volume processor at the given linear gain (1.0 =
// unity). Gain must be >= 0.
func NewVolume(name string, gain float64) (*Volume, error) {
	if gain < 0 || math.IsNaN(gain) {
		return nil, audio.NodeErrf(audio.KindConfiguration, name, "gain must be >= 0, got %g", gain)
	}
	return &Volume{name: name, gain: gain, target: gain}, nil
}

// NewVolumeDB creates a volume processor at the given gain in decibels
// (0 dB = unity).
func NewVolumeDB(name string, db float64) (*Volume, error) {
	return NewVolume(name, math.Pow(10, db/20))
}

// SetGain changes the target gain, ramping over the given duration. A zero
// ramp applies the gain immediately.
func (v *Volume) SetGain(gain float64, ramp time.Duration, sampleRate int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.target = gain
	frames := int(float64(sampleRate) * ramp.Seconds())
	if frames <= 0 {
		v.gain = gain
		v.rampFrames = 0
		return
	}
	v.rampFrames = frames
	v.step = (v.target - v.gain) / float64(frames)
}

// SetGainDB is [Volume.SetGain] with the gain expressed in decibels.
func (v *Volume) SetGainDB(db float64, ramp time.Duration, sampleRate int) {
	v.SetGain(math.Pow(10, db/20), ramp, sampleRate)
}

// Gain returns the current (possibly mid-ramp) linear gain.
func (v *Volume) Gain() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gain
}

// Process applies the gain to a single input buffer.
func (v *Volume) Process(inputs []*audio.Buffer) (*audio.Buffer, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(inputs) != 1 {
		v.stats.Errors++
		return nil, audio.NodeErrf(audio.KindProcessing, v.name, "expected 1 input, got %d", len(inputs))
	}
	in := inputs[0]
	channels := in.Format.Channels
	if channels <= 0 {
		v.stats.Errors++
		return nil, audio.NodeErrf(audio.KindFormat, v.name, "invalid channel count %d", channels)
	}

	out := make([]float32, len(in.Samples))
	for i, s := range in.Samples {
		out[i] = float32(float64(s) * v.gain)
		// Advance the ramp once per frame, on the last channel.
		if v.rampFrames > 0 && (i+1)%channels == 0 {
			v.gain += v.step
			v.rampFrames--
			if v.rampFrames == 0 {
				v.gain = v.target
			}
		}
	}

	v.stats.BuffersProcessed++
	v.stats.SamplesProcessed += uint64(len(out))

	buf := audio.NewBuffer(in.Format, out, in.Timestamp)
	buf.Sequence = in.Sequence
	return buf, nil
}

// OutputFormat reports the volume's format transform: identity.
func (v *Volume) OutputFormat(input audio.Format) audio.Format { return input }

// Reset completes any in-progress ramp and clears the counters.
func (v *Volume) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gain = v.target
	v.rampFrames = 0
	v.stats = audio.ProcessorStats{}
}

// Name returns the processor's identifier.
func (v *Volume) Name() string { return v.name }

// Stats returns a snapshot of the processor's counters.
func (v *Volume) Stats() audio.ProcessorStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}
