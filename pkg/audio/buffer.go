package audio

import (
	"math"
	"time"
)

// Buffer is the atomic unit of audio transport through the graph: a
// contiguous block of interleaved float32 samples tagged with the [Format]
// it was produced under, the capture (or production) instant, and a
// per-producer sequence counter.
//
// Ownership: a Buffer is produced by a source or processor and moved — not
// copied — along the router. Once a producer hands a buffer to a downstream
// queue it must not touch the buffer again.
type Buffer struct {
	// Format the samples were produced under.
	Format Format

	// Samples holds interleaved float32 samples in the range [-1.0, 1.0].
	Samples []float32

	// Timestamp marks when the buffer was captured or produced.
	Timestamp time.Time

	// Sequence is a per-producer monotonic counter used to detect gaps.
	Sequence uint64
}

// NewBuffer creates a buffer from pre-filled samples.
func NewBuffer(format Format, samples []float32, timestamp time.Time) *Buffer {
	return &Buffer{Format: format, Samples: samples, Timestamp: timestamp}
}

// Silent creates a buffer of silence spanning the given duration.
func Silent(format Format, d time.Duration) *Buffer {
	n := int(float64(format.SampleRate)*d.Seconds()) * format.Channels
	return &Buffer{
		Format:    format,
		Samples:   make([]float32, n),
		Timestamp: time.Now(),
	}
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// Duration returns the play time this buffer spans.
func (b *Buffer) Duration() time.Duration {
	if b.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.Format.SampleRate) * float64(time.Second))
}

// RMS returns the root-mean-square level across all channels.
func (b *Buffer) RMS() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b.Samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(b.Samples)))
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float64 {
	var peak float64
	for _, s := range b.Samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// IsSilent reports whether the buffer's RMS level is below threshold.
func (b *Buffer) IsSilent(threshold float64) bool {
	return b.RMS() < threshold
}
