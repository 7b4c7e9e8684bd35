package processors_test

import (
	"math"
	"testing"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio/processors"
)

func TestVolume_AppliesGain(t *testing.T) {
	t.Parallel()

	v, err := processors.NewVolume("vol", 0.5)
	if err != nil {
		t.Fatalf("NewVolume() error: %v", err)
	}

	out, err := v.Process([]*audio.Buffer{monoBuffer(0.4, -0.8, 1.0)})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	want := []float32{0.2, -0.4, 0.5}
	for i, w := range want {
		if math.Abs(float64(out.Samples[i]-w)) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, out.Samples[i], w)
		}
	}
}

func TestNewVolume_RejectsNegativeGain(t *testing.T) {
	t.Parallel()

	if _, err := processors.NewVolume("vol", -0.1); !audio.IsKind(err, audio.KindConfiguration) {
		t.Errorf("NewVolume(-0.1) error = %v, want kind configuration", err)
	}
	if _, err := processors.NewVolume("vol", math.NaN()); !audio.IsKind(err, audio.KindConfiguration) {
		t.Errorf("NewVolume(NaN) error = %v, want kind configuration", err)
	}
}

func TestNewVolumeDB(t *testing.T) {
	t.Parallel()

	tests := []struct {
		db   float64
		want float64
	}{
		{0, 1.0},
		{-6, 0.5012},
		{6, 1.9953},
		{-20, 0.1},
	}
	for _, tc := range tests {
		v, err := processors.NewVolumeDB("vol", tc.db)
		if err != nil {
			t.Fatalf("NewVolumeDB(%v) error: %v", tc.db, err)
		}
		if got := v.Gain(); math.Abs(got-tc.want) > 1e-3 {
			t.Errorf("NewVolumeDB(%v).Gain() = %v, want ~%v", tc.db, got, tc.want)
		}
	}
}

func TestVolume_RampIsGradual(t *testing.T) {
	t.Parallel()

	v, err := processors.NewVolume("vol", 0)
	if err != nil {
		t.Fatalf("NewVolume() error: %v", err)
	}

	// Ramp 0 -> 1 over 100 frames at 16kHz mono.
	rate := audio.Speech.SampleRate
	v.SetGain(1.0, time.Duration(float64(time.Second)*100/float64(rate)), rate)

	ones := make([]float32, 100)
	for i := range ones {
		ones[i] = 1
	}
	out, err := v.Process([]*audio.Buffer{monoBuffer(ones...)})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	// Monotonically rising output, starting near 0 and finishing near 1.
	if out.Samples[0] > 0.05 {
		t.Errorf("first ramped sample = %v, want near 0", out.Samples[0])
	}
	for i := 1; i < len(out.Samples); i++ {
		if out.Samples[i] < out.Samples[i-1] {
			t.Fatalf("ramp not monotonic at sample %d: %v < %v", i, out.Samples[i], out.Samples[i-1])
		}
	}
	if last := out.Samples[len(out.Samples)-1]; last < 0.95 {
		t.Errorf("last ramped sample = %v, want near 1", last)
	}

	// The ramp is complete: the next buffer comes out at full gain.
	out, err = v.Process([]*audio.Buffer{monoBuffer(0.5)})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if math.Abs(float64(out.Samples[0])-0.5) > 1e-6 {
		t.Errorf("post-ramp sample = %v, want 0.5", out.Samples[0])
	}
}

func TestVolume_ZeroRampIsImmediate(t *testing.T) {
	t.Parallel()

	v, err := processors.NewVolume("vol", 1)
	if err != nil {
		t.Fatalf("NewVolume() error: %v", err)
	}
	v.SetGain(2.0, 0, audio.Speech.SampleRate)
	if got := v.Gain(); got != 2.0 {
		t.Errorf("Gain() = %v, want 2.0 immediately", got)
	}
}

func TestVolume_ResetCompletesRamp(t *testing.T) {
	t.Parallel()

	v, err := processors.NewVolume("vol", 0)
	if err != nil {
		t.Fatalf("NewVolume() error: %v", err)
	}
	v.SetGain(1.0, time.Second, audio.Speech.SampleRate)
	v.Reset()
	if got := v.Gain(); got != 1.0 {
		t.Errorf("Gain() after Reset = %v, want 1.0 (target)", got)
	}
}

func TestVolume_SingleInputOnly(t *testing.T) {
	t.Parallel()

	v, err := processors.NewVolume("vol", 1)
	if err != nil {
		t.Fatalf("NewVolume() error: %v", err)
	}
	_, err = v.Process([]*audio.Buffer{monoBuffer(0.1), monoBuffer(0.2)})
	if !audio.IsKind(err, audio.KindProcessing) {
		t.Errorf("Process() with 2 inputs error = %v, want kind processing", err)
	}
}
