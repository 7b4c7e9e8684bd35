package sources

import (
	"encoding/binary"
	"io"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// FileOption configures a file-backed source during construction.
type FileOption func(*fileConfig)

type fileConfig struct {
	chunk time.Duration
}

// WithFileChunk sets the duration of each buffer produced per Read.
func WithFileChunk(d time.Duration) FileOption {
	return func(c *fileConfig) {
		if d > 0 {
			c.chunk = d
		}
	}
}

// WAVFile plays a PCM WAV file into the graph, producing fixed-size buffers
// until the file is exhausted. After the last sample, Read returns
// (nil, nil) — the graph treats the source as silent, not errored.
type WAVFile struct {
	name   string
	path   string
	format audio.Format
	chunk  time.Duration

	mu      sync.Mutex
	active  bool
	f       *os.File
	dec     *wav.Decoder
	intBuf  *goaudio.IntBuffer
	scale   float64
	done    bool
	seq     uint64
	stats   audio.SourceStats
}

// NewWAVFile probes path and returns a source producing the file's native
// format. The file is reopened on each Start, so the source can be restarted
// to replay from the beginning.
func NewWAVFile(name, path string, opts ...FileOption) (*WAVFile, error) {
	cfg := fileConfig{chunk: defaultChunk}
	for _, o := range opts {
		o(&cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, audio.WrapErr(audio.KindIO, name, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if dec.Err() != nil {
		return nil, audio.WrapErr(audio.KindFormat, name, dec.Err())
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, audio.NodeErrf(audio.KindFormat, name, "not a valid wav file: %s", path)
	}

	kind := audio.I16
	switch dec.BitDepth {
	case 16:
		kind = audio.I16
	case 24:
		kind = audio.I24
	case 32:
		kind = audio.I32
	default:
		return nil, audio.NodeErrf(audio.KindFormat, name, "unsupported wav bit depth %d", dec.BitDepth)
	}

	return &WAVFile{
		name: name,
		path: path,
		format: audio.Format{
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
			Kind:       kind,
		},
		chunk: cfg.chunk,
		scale: float64(int64(1) << (dec.BitDepth - 1)),
	}, nil
}

// Format returns the file's native format.
func (w *WAVFile) Format() audio.Format { return w.format }

// Start opens the file and positions the decoder at the first sample.
func (w *WAVFile) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active {
		return audio.NodeErrf(audio.KindInvalidState, w.name, "already started")
	}

	f, err := os.Open(w.path)
	if err != nil {
		return audio.WrapErr(audio.KindIO, w.name, err)
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if dec.Err() != nil {
		f.Close()
		return audio.WrapErr(audio.KindFormat, w.name, dec.Err())
	}

	frames := int(float64(w.format.SampleRate) * w.chunk.Seconds())
	w.f = f
	w.dec = dec
	w.intBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: w.format.Channels,
			SampleRate:  w.format.SampleRate,
		},
		Data: make([]int, frames*w.format.Channels),
	}
	w.done = false
	w.active = true
	return nil
}

// Stop closes the file. Safe to call multiple times.
func (w *WAVFile) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.active = false
	w.dec = nil
	w.intBuf = nil
	if w.f != nil {
		err := w.f.Close()
		w.f = nil
		if err != nil {
			return audio.WrapErr(audio.KindIO, w.name, err)
		}
	}
	return nil
}

// Read decodes the next chunk of frames, or returns (nil, nil) when the file
// is exhausted or the source is stopped.
func (w *WAVFile) Read() (*audio.Buffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active || w.done {
		return nil, nil
	}

	n, err := w.dec.PCMBuffer(w.intBuf)
	if err != nil {
		return nil, audio.WrapErr(audio.KindIO, w.name, err)
	}
	if n == 0 {
		w.done = true
		return nil, nil
	}

	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = float32(float64(w.intBuf.Data[i]) / w.scale)
	}

	buf := audio.NewBuffer(w.format, samples, time.Now())
	buf.Sequence = w.seq
	w.seq++

	w.stats.BuffersProduced++
	w.stats.SamplesProduced += uint64(n)
	w.stats.LastActive = buf.Timestamp
	return buf, nil
}

// IsActive reports whether the source is started.
func (w *WAVFile) IsActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Name returns the source's identifier.
func (w *WAVFile) Name() string { return w.name }

// Stats returns a snapshot of the source's counters.
func (w *WAVFile) Stats() audio.SourceStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// MP3File plays an MP3 file into the graph. go-mp3 always decodes to 16-bit
// stereo at the file's sample rate, so the source format is fixed to two
// channels.
type MP3File struct {
	name   string
	path   string
	format audio.Format
	chunk  time.Duration

	mu     sync.Mutex
	active bool
	f      *os.File
	dec    *mp3.Decoder
	pcm    []byte
	done   bool
	seq    uint64
	stats  audio.SourceStats
}

// NewMP3File probes path and returns a source producing 16-bit stereo at the
// file's native sample rate.
func NewMP3File(name, path string, opts ...FileOption) (*MP3File, error) {
	cfg := fileConfig{chunk: defaultChunk}
	for _, o := range opts {
		o(&cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, audio.WrapErr(audio.KindIO, name, err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, audio.WrapErr(audio.KindFormat, name, err)
	}

	return &MP3File{
		name: name,
		path: path,
		format: audio.Format{
			SampleRate: dec.SampleRate(),
			Channels:   2,
			Kind:       audio.I16,
		},
		chunk: cfg.chunk,
	}, nil
}

// Format returns the decoded output format (16-bit stereo).
func (m *MP3File) Format() audio.Format { return m.format }

// Start opens the file and initialises the decoder.
func (m *MP3File) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return audio.NodeErrf(audio.KindInvalidState, m.name, "already started")
	}

	f, err := os.Open(m.path)
	if err != nil {
		return audio.WrapErr(audio.KindIO, m.name, err)
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return audio.WrapErr(audio.KindFormat, m.name, err)
	}

	frames := int(float64(m.format.SampleRate) * m.chunk.Seconds())
	m.f = f
	m.dec = dec
	m.pcm = make([]byte, frames*4) // 2 channels x 2 bytes
	m.done = false
	m.active = true
	return nil
}

// Stop closes the file. Safe to call multiple times.
func (m *MP3File) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = false
	m.dec = nil
	if m.f != nil {
		err := m.f.Close()
		m.f = nil
		if err != nil {
			return audio.WrapErr(audio.KindIO, m.name, err)
		}
	}
	return nil
}

// Read decodes the next chunk of frames, or returns (nil, nil) when the file
// is exhausted or the source is stopped.
func (m *MP3File) Read() (*audio.Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active || m.done {
		return nil, nil
	}

	n, err := io.ReadFull(m.dec, m.pcm)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, audio.WrapErr(audio.KindIO, m.name, err)
	}
	n -= n % 4 // whole stereo frames only
	if n == 0 {
		m.done = true
		return nil, nil
	}

	samples := make([]float32, n/2)
	for i := 0; i < len(samples); i++ {
		v := int16(binary.LittleEndian.Uint16(m.pcm[i*2 : i*2+2]))
		samples[i] = float32(v) / 32768.0
	}

	buf := audio.NewBuffer(m.format, samples, time.Now())
	buf.Sequence = m.seq
	m.seq++

	m.stats.BuffersProduced++
	m.stats.SamplesProduced += uint64(len(samples))
	m.stats.LastActive = buf.Timestamp
	return buf, nil
}

// IsActive reports whether the source is started.
func (m *MP3File) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Name returns the source's identifier.
func (m *MP3File) Name() string { return m.name }

// Stats returns a snapshot of the source's counters.
func (m *MP3File) Stats() audio.SourceStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
