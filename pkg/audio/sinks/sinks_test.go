package sinks_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio/sinks"
)

func stereoBuffer(samples []float32) *audio.Buffer {
	return audio.NewBuffer(audio.CDQuality, samples, time.Now())
}

func TestBuffer_Accumulates(t *testing.T) {
	t.Parallel()

	sink := sinks.NewBuffer("acc")
	first := stereoBuffer([]float32{0.1, 0.2})
	second := stereoBuffer([]float32{0.3, 0.4, 0.5, 0.6})

	if err := sink.Write(first); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := sink.Write(second); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got := sink.Buffers()
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatalf("Buffers() = %v, want the two written buffers in order", got)
	}

	stats := sink.Stats()
	if stats.BuffersWritten != 2 {
		t.Errorf("BuffersWritten = %d, want 2", stats.BuffersWritten)
	}
	if stats.SamplesWritten != 6 {
		t.Errorf("SamplesWritten = %d, want 6", stats.SamplesWritten)
	}
}

func TestBuffer_LimitAndClose(t *testing.T) {
	t.Parallel()

	sink := sinks.NewBuffer("acc", sinks.WithMaxBuffers(2))
	for i := 0; i < 2; i++ {
		if err := sink.Write(stereoBuffer([]float32{0.1})); err != nil {
			t.Fatalf("Write() #%d error: %v", i, err)
		}
	}
	if err := sink.Write(stereoBuffer([]float32{0.1})); !audio.IsKind(err, audio.KindBuffer) {
		t.Errorf("Write() over limit error = %v, want kind buffer", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := sink.Write(stereoBuffer([]float32{0.1})); !audio.IsKind(err, audio.KindInvalidState) {
		t.Errorf("Write() after Close error = %v, want kind invalid_state", err)
	}
	// Accumulated data survives Close.
	if got := len(sink.Buffers()); got != 2 {
		t.Errorf("Buffers() after Close = %d entries, want 2", got)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestNull_CountsAndDiscards(t *testing.T) {
	t.Parallel()

	sink := sinks.NewNull("drop")
	for i := 0; i < 3; i++ {
		if err := sink.Write(stereoBuffer(make([]float32, 100))); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}

	stats := sink.Stats()
	if stats.BuffersWritten != 3 {
		t.Errorf("BuffersWritten = %d, want 3", stats.BuffersWritten)
	}
	if stats.SamplesWritten != 300 {
		t.Errorf("SamplesWritten = %d, want 300", stats.SamplesWritten)
	}
	if stats.BytesWritten != 1200 {
		t.Errorf("BytesWritten = %d, want 1200", stats.BytesWritten)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := sink.Write(stereoBuffer(nil)); !audio.IsKind(err, audio.KindInvalidState) {
		t.Errorf("Write() after Close error = %v, want kind invalid_state", err)
	}
}

func TestWAV_WriteAndClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.wav")
	sink, err := sinks.NewWAV("wav-out", path, audio.CDQuality)
	if err != nil {
		t.Fatalf("NewWAV() error: %v", err)
	}

	buf := audio.Silent(audio.CDQuality, 10*time.Millisecond)
	if err := sink.Write(buf); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	// A buffer in a different format is rejected, not converted.
	other := audio.Silent(audio.Speech, 10*time.Millisecond)
	if err := sink.Write(other); !audio.IsKind(err, audio.KindFormat) {
		t.Errorf("Write() with mismatched format error = %v, want kind format", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if err := sink.Write(buf); !audio.IsKind(err, audio.KindInvalidState) {
		t.Errorf("Write() after Close error = %v, want kind invalid_state", err)
	}

	stats := sink.Stats()
	if stats.BuffersWritten != 1 {
		t.Errorf("BuffersWritten = %d, want 1", stats.BuffersWritten)
	}
	if stats.Errors != 2 {
		t.Errorf("Errors = %d, want 2", stats.Errors)
	}
}

func TestNewWAV_RejectsInvalidFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.wav")
	_, err := sinks.NewWAV("wav-out", path, audio.Format{})
	if !audio.IsKind(err, audio.KindConfiguration) {
		t.Errorf("NewWAV() error = %v, want kind configuration", err)
	}
}
