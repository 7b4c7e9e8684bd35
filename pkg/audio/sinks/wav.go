package sinks

import (
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// wavBitDepth is the encoded depth. Buffers carry float32 samples; the
// encoder writes 16-bit PCM, the most widely readable WAV flavour.
const wavBitDepth = 16

// WAV encodes written buffers to a 16-bit PCM WAV file. The first written
// buffer pins the expected format; later buffers in a different format are
// rejected rather than silently converted.
type WAV struct {
	name   string
	path   string
	format audio.Format

	mu     sync.Mutex
	f      *os.File
	enc    *wav.Encoder
	closed bool
	stats  audio.SinkStats
}

// NewWAV creates the output file and prepares the encoder for buffers in
// the given format.
func NewWAV(name, path string, format audio.Format) (*WAV, error) {
	if !format.Valid() {
		return nil, audio.NodeErrf(audio.KindConfiguration, name, "invalid format %s", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, audio.WrapErr(audio.KindIO, name, err)
	}

	return &WAV{
		name:   name,
		path:   path,
		format: format,
		f:      f,
		enc:    wav.NewEncoder(f, format.SampleRate, wavBitDepth, format.Channels, 1),
	}, nil
}

// Write encodes one buffer to the file.
func (w *WAV) Write(buf *audio.Buffer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.stats.Errors++
		return audio.NodeErrf(audio.KindInvalidState, w.name, "write after close")
	}
	if !buf.Format.Compatible(w.format) {
		w.stats.Errors++
		return audio.NodeErrf(audio.KindFormat, w.name,
			"buffer format %s does not match sink format %s", buf.Format, w.format)
	}

	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = v
	}

	err := w.enc.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: w.format.Channels,
			SampleRate:  w.format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	})
	if err != nil {
		w.stats.Errors++
		return audio.WrapErr(audio.KindIO, w.name, err)
	}

	w.stats.BuffersWritten++
	w.stats.SamplesWritten += uint64(len(buf.Samples))
	w.stats.BytesWritten += uint64(len(buf.Samples) * wavBitDepth / 8)
	return nil
}

// Flush forces written data to disk. The WAV header itself is finalised on
// Close. Idempotent.
func (w *WAV) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.f == nil {
		return nil
	}
	if err := w.f.Sync(); err != nil {
		return audio.WrapErr(audio.KindIO, w.name, err)
	}
	return nil
}

// Close finalises the WAV header and closes the file. Idempotent; a second
// call is a no-op returning nil.
func (w *WAV) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	encErr := w.enc.Close()
	fErr := w.f.Close()
	w.f = nil
	if encErr != nil {
		return audio.WrapErr(audio.KindIO, w.name, encErr)
	}
	if fErr != nil {
		return audio.WrapErr(audio.KindIO, w.name, fErr)
	}
	return nil
}

// Path returns the output file path.
func (w *WAV) Path() string { return w.path }

// Name returns the sink's identifier.
func (w *WAV) Name() string { return w.name }

// Stats returns a snapshot of the sink's counters.
func (w *WAV) Stats() audio.SinkStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
