// Package audio defines the value types and node contracts for the audiograph
// processing engine.
//
// The three primary abstractions are:
//
//   - [Source] — produces [Buffer] values (capture backends, file readers,
//     test generators).
//   - [Processor] — transforms buffers (mixing, gain, resampling, gating).
//   - [Sink] — consumes buffers (encoders, accumulators, discards).
//
// Implementations of these interfaces are registered with a
// [github.com/jamesmcarthur-3999/taskerino-sub015/pkg/graph.Graph], which
// owns them for the rest of their lifetime and drives them in dependency
// order. The interfaces are intentionally narrow to keep the scheduler
// decoupled from node internals.
//
// This package lives under pkg/ because external code (platform capture
// backends, custom processors) is expected to implement these contracts.
package audio

import "fmt"

// SampleKind identifies the sample representation a stream was produced in.
// Samples are always carried as float32 inside a [Buffer]; the kind records
// the representation of the originating device or the one an encoder should
// write.
type SampleKind uint8

const (
	// F32 is 32-bit floating point in the range [-1.0, 1.0].
	F32 SampleKind = iota

	// I16 is 16-bit signed integer PCM.
	I16

	// I24 is 24-bit signed integer PCM (carried in the low 3 bytes of an int32).
	I24

	// I32 is 32-bit signed integer PCM.
	I32
)

// ByteSize returns the storage size of a single sample in this representation.
func (k SampleKind) ByteSize() int {
	switch k {
	case I16:
		return 2
	case I24:
		return 3
	default:
		return 4
	}
}

// String returns the human-readable name of the sample kind.
func (k SampleKind) String() string {
	switch k {
	case F32:
		return "f32"
	case I16:
		return "i16"
	case I24:
		return "i24"
	case I32:
		return "i32"
	default:
		return "unknown"
	}
}

// Format describes the sample rate, channel count, and sample representation
// of an audio stream. Format is an immutable value; compare with ==.
type Format struct {
	// SampleRate in Hz (e.g., 16000, 44100, 48000).
	SampleRate int

	// Channels is the number of interleaved channels (1 = mono, 2 = stereo).
	Channels int

	// Kind is the sample representation.
	Kind SampleKind
}

// Common formats used throughout tests and default configurations.
var (
	// Speech is the standard speech-recognition format: 16kHz mono float.
	Speech = Format{SampleRate: 16000, Channels: 1, Kind: F32}

	// CDQuality is 44.1kHz stereo 16-bit PCM.
	CDQuality = Format{SampleRate: 44100, Channels: 2, Kind: I16}

	// Professional is 48kHz stereo float.
	Professional = Format{SampleRate: 48000, Channels: 2, Kind: F32}
)

// Compatible reports whether two formats can be connected without conversion.
// Formats are compatible only when identical — the graph never resamples or
// remixes implicitly. Rate or channel conversion is the job of an explicit
// Resampler node.
func (f Format) Compatible(other Format) bool {
	return f == other
}

// Valid reports whether the format describes a usable stream.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// BytesPerSecond returns the data rate of this format in its native sample
// representation.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.Kind.ByteSize()
}

// String returns a human-readable description, e.g. "48000Hz stereo f32".
func (f Format) String() string {
	ch := "mono"
	switch {
	case f.Channels == 2:
		ch = "stereo"
	case f.Channels > 2:
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s %s", f.SampleRate, ch, f.Kind)
}
