// Package sources provides audio.Source implementations that do not depend
// on platform capture backends: generators, file readers, and the push seam
// that real capture backends feed.
package sources

import (
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Source = (*Silence)(nil)
	_ audio.Source = (*Push)(nil)
	_ audio.Source = (*WAVFile)(nil)
	_ audio.Source = (*MP3File)(nil)
)

// defaultChunk is the buffer duration produced per Read when no explicit
// chunk duration is configured.
const defaultChunk = 20 * time.Millisecond

// SilenceOption configures a [Silence] source during construction.
type SilenceOption func(*Silence)

// WithSilenceChunk sets the duration of each produced buffer.
func WithSilenceChunk(d time.Duration) SilenceOption {
	return func(s *Silence) {
		if d > 0 {
			s.chunk = d
		}
	}
}

// WithSilencePacing controls whether Read paces itself against the wall
// clock. When paced (the default), Read yields a buffer only once the
// previous buffer's play time has elapsed, matching a real capture device.
// Unpaced silence produces a buffer on every Read, which is what tests want.
func WithSilencePacing(paced bool) SilenceOption {
	return func(s *Silence) {
		s.paced = paced
	}
}

// Silence generates silent buffers at the configured format and chunk size.
// It is the standard stand-in for a capture backend in tests and in graphs
// that need a timing reference input.
type Silence struct {
	name   string
	format audio.Format
	chunk  time.Duration
	paced  bool

	mu       sync.Mutex
	active   bool
	seq      uint64
	lastEmit time.Time
	stats    audio.SourceStats
}

// NewSilence creates a silence source producing buffers in the given format.
func NewSilence(name string, format audio.Format, opts ...SilenceOption) *Silence {
	s := &Silence{
		name:   name,
		format: format,
		chunk:  defaultChunk,
		paced:  true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Format returns the configured output format.
func (s *Silence) Format() audio.Format { return s.format }

// Start activates the source. Starting an already-active source fails.
func (s *Silence) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return audio.NodeErrf(audio.KindInvalidState, s.name, "already started")
	}
	s.active = true
	s.lastEmit = time.Time{}
	return nil
}

// Stop deactivates the source. Safe to call multiple times.
func (s *Silence) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	return nil
}

// Read returns one silent buffer, or (nil, nil) when inactive or when pacing
// says the next buffer is not due yet.
func (s *Silence) Read() (*audio.Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, nil
	}

	now := time.Now()
	if s.paced && !s.lastEmit.IsZero() && now.Sub(s.lastEmit) < s.chunk {
		return nil, nil
	}
	s.lastEmit = now

	buf := audio.Silent(s.format, s.chunk)
	buf.Sequence = s.seq
	s.seq++

	s.stats.BuffersProduced++
	s.stats.SamplesProduced += uint64(len(buf.Samples))
	s.stats.LastActive = now
	return buf, nil
}

// IsActive reports whether the source is started.
func (s *Silence) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Name returns the source's identifier.
func (s *Silence) Name() string { return s.name }

// Stats returns a snapshot of the source's counters.
func (s *Silence) Stats() audio.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
