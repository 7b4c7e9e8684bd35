package processors_test

import (
	"math"
	"testing"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio/processors"
)

// newTestNormalizer uses a 10ms window at the Speech rate: 160 samples.
func newTestNormalizer(t *testing.T, targetDB float64) *processors.Normalizer {
	t.Helper()
	n, err := processors.NewNormalizer("norm", targetDB, audio.Speech.SampleRate,
		processors.WithLookAhead(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewNormalizer() error: %v", err)
	}
	return n
}

func constBuffer(value float32, count int) *audio.Buffer {
	samples := make([]float32, count)
	for i := range samples {
		samples[i] = value
	}
	return audio.NewBuffer(audio.Speech, samples, time.Now())
}

func TestNewNormalizer_Validation(t *testing.T) {
	t.Parallel()

	if _, err := processors.NewNormalizer("norm", 3.0, 16000); !audio.IsKind(err, audio.KindConfiguration) {
		t.Errorf("positive target error = %v, want kind configuration", err)
	}
	if _, err := processors.NewNormalizer("norm", -3.0, 0); !audio.IsKind(err, audio.KindConfiguration) {
		t.Errorf("zero sample rate error = %v, want kind configuration", err)
	}
	if _, err := processors.NewNormalizer("norm", -3.0, 16000, processors.WithLookAhead(0)); !audio.IsKind(err, audio.KindConfiguration) {
		t.Errorf("zero look-ahead error = %v, want kind configuration", err)
	}
}

func TestNormalizer_LookAheadBuffering(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t, -3.0)

	// 160-sample window over 100-sample buffers: the first buffer only
	// fills the delay line, the second releases the overflow, and from
	// the third on a full buffer comes out per buffer in.
	for i, want := range []int{0, 40, 100} {
		out, err := n.Process([]*audio.Buffer{constBuffer(0.5, 100)})
		if err != nil {
			t.Fatalf("Process() #%d error: %v", i, err)
		}
		if len(out.Samples) != want {
			t.Errorf("buffer #%d output length = %d, want %d", i, len(out.Samples), want)
		}
	}
}

func TestNormalizer_AttenuatesAboveTarget(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t, -6.0)
	target := math.Pow(10, -6.0/20)

	var out *audio.Buffer
	var err error
	for i := 0; i < 3; i++ {
		out, err = n.Process([]*audio.Buffer{constBuffer(0.9, 160)})
		if err != nil {
			t.Fatalf("Process() error: %v", err)
		}
	}
	if got := out.Peak(); math.Abs(got-target) > 0.01 {
		t.Errorf("output peak = %v, want ~%v", got, target)
	}
	if got := n.MaxPeak(); math.Abs(got-0.9) > 1e-6 {
		t.Errorf("MaxPeak() = %v, want 0.9", got)
	}
	if n.Normalized() == 0 {
		t.Error("Normalized() = 0, want attenuated buffers counted")
	}
}

func TestNormalizer_NeverAmplifies(t *testing.T) {
	t.Parallel()

	// Quiet audio well below a -3dBFS target passes through untouched:
	// gain is capped at unity.
	n := newTestNormalizer(t, -3.0)

	var out *audio.Buffer
	var err error
	for i := 0; i < 3; i++ {
		out, err = n.Process([]*audio.Buffer{constBuffer(0.1, 160)})
		if err != nil {
			t.Fatalf("Process() error: %v", err)
		}
	}
	if got := out.Peak(); math.Abs(got-0.1) > 1e-6 {
		t.Errorf("output peak = %v, want 0.1 unchanged", got)
	}
	if n.Normalized() != 0 {
		t.Errorf("Normalized() = %d, want 0 for quiet audio", n.Normalized())
	}
}

func TestNormalizer_PreventsClipping(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t, -1.0)

	for i := 0; i < 4; i++ {
		out, err := n.Process([]*audio.Buffer{constBuffer(0.99, 160)})
		if err != nil {
			t.Fatalf("Process() error: %v", err)
		}
		if peak := out.Peak(); peak > 1.0 {
			t.Fatalf("output peak = %v, exceeds full scale", peak)
		}
	}
}

func TestNormalizer_SilenceStaysSilent(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t, -3.0)

	var out *audio.Buffer
	var err error
	for i := 0; i < 3; i++ {
		out, err = n.Process([]*audio.Buffer{constBuffer(0, 160)})
		if err != nil {
			t.Fatalf("Process() error: %v", err)
		}
	}
	if got := out.Peak(); got != 0 {
		t.Errorf("output peak = %v, want 0", got)
	}
	if n.Normalized() != 0 {
		t.Errorf("Normalized() = %d, want 0", n.Normalized())
	}
}

func TestNormalizer_PreservesFormatAndSequence(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t, -3.0)

	in := constBuffer(0.5, 160)
	in.Sequence = 42
	out, err := n.Process([]*audio.Buffer{in})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if out.Format != in.Format {
		t.Errorf("output Format = %+v, want %+v", out.Format, in.Format)
	}
	if out.Sequence != 42 {
		t.Errorf("output Sequence = %d, want 42", out.Sequence)
	}
	if got := n.OutputFormat(audio.CDQuality); got != audio.CDQuality {
		t.Errorf("OutputFormat() = %+v, want identity", got)
	}
}

func TestNormalizer_Stats(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t, -3.0)

	// 3 x 160 in: the first emission is delayed by the window, so
	// 2 x 160 samples come out.
	for i := 0; i < 3; i++ {
		if _, err := n.Process([]*audio.Buffer{constBuffer(0.5, 160)}); err != nil {
			t.Fatalf("Process() error: %v", err)
		}
	}
	stats := n.Stats()
	if stats.BuffersProcessed != 3 {
		t.Errorf("BuffersProcessed = %d, want 3", stats.BuffersProcessed)
	}
	if stats.SamplesProcessed != 320 {
		t.Errorf("SamplesProcessed = %d, want 320", stats.SamplesProcessed)
	}

	if _, err := n.Process(nil); !audio.IsKind(err, audio.KindProcessing) {
		t.Errorf("Process(nil) error = %v, want kind processing", err)
	}
	if got := n.Stats().Errors; got != 1 {
		t.Errorf("Errors = %d, want 1", got)
	}
}

func TestNormalizer_Reset(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t, -3.0)
	for i := 0; i < 3; i++ {
		if _, err := n.Process([]*audio.Buffer{constBuffer(0.9, 160)}); err != nil {
			t.Fatalf("Process() error: %v", err)
		}
	}

	n.Reset()
	if n.MaxPeak() != 0 || n.Normalized() != 0 {
		t.Errorf("MaxPeak/Normalized after Reset = %v/%d, want 0/0", n.MaxPeak(), n.Normalized())
	}
	if got := n.Stats(); got != (audio.ProcessorStats{}) {
		t.Errorf("Stats after Reset = %+v, want zero", got)
	}
	// The delay line is empty again: the first buffer after Reset only
	// primes the window.
	out, err := n.Process([]*audio.Buffer{constBuffer(0.5, 100)})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(out.Samples) != 0 {
		t.Errorf("first output after Reset has %d samples, want 0", len(out.Samples))
	}
}
