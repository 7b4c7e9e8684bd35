// Package mock provides in-memory mock implementations of the [audio.Source],
// [audio.Processor], and [audio.Sink] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts and arguments, and they expose exported fields
// that the test can set to control return values.
//
// Typical usage:
//
//	src := &mock.Source{
//	    FormatResult: audio.Speech,
//	    ReadResults:  []*audio.Buffer{bufA, bufB},
//	}
//	sink := &mock.Sink{}
//	g := graph.New()
//	g.Connect(g.AddSource(src), g.AddSink(sink))
package mock

import (
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// ─── Source ───────────────────────────────────────────────────────────────────

// Source is a mock implementation of [audio.Source].
// Set the exported Result fields before use; inspect the CallCount fields after.
type Source struct {
	mu sync.Mutex

	// NameResult is returned by [Source.Name]. Defaults to "mock-source".
	NameResult string

	// FormatResult is returned by [Source.Format].
	FormatResult audio.Format

	// StartError is returned by [Source.Start].
	StartError error

	// StopError is returned by [Source.Stop].
	StopError error

	// ReadResults is consumed one element per [Source.Read] call. A nil
	// element means "no data this call". When the slice is exhausted Read
	// keeps returning (nil, nil) unless ReadError is set.
	ReadResults []*audio.Buffer

	// ReadError, when set, is returned by every Read call after
	// ReadResults is exhausted.
	ReadError error

	// StatsResult is returned by [Source.Stats].
	StatsResult audio.SourceStats

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// CallCountRead records how many times Read was called.
	CallCountRead int

	active bool
}

var _ audio.Source = (*Source)(nil)

// Name implements [audio.Source].
func (s *Source) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NameResult == "" {
		return "mock-source"
	}
	return s.NameResult
}

// Format implements [audio.Source]. Returns FormatResult.
func (s *Source) Format() audio.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FormatResult
}

// Start implements [audio.Source]. Returns StartError; on success the
// source reports active until Stop.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.StartError != nil {
		return s.StartError
	}
	s.active = true
	return nil
}

// Stop implements [audio.Source]. Returns StopError.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
	s.active = false
	return s.StopError
}

// Read implements [audio.Source]. Pops the next element of ReadResults;
// once exhausted it returns ReadError if set, otherwise (nil, nil).
func (s *Source) Read() (*audio.Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountRead++
	if len(s.ReadResults) == 0 {
		return nil, s.ReadError
	}
	buf := s.ReadResults[0]
	s.ReadResults = s.ReadResults[1:]
	return buf, nil
}

// IsActive implements [audio.Source].
func (s *Source) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stats implements [audio.Source]. Returns StatsResult.
func (s *Source) Stats() audio.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StatsResult
}

// ─── Processor ────────────────────────────────────────────────────────────────

// Processor is a mock implementation of [audio.Processor]. By default it
// passes the first input buffer through unchanged.
type Processor struct {
	mu sync.Mutex

	// NameResult is returned by [Processor.Name]. Defaults to "mock-processor".
	NameResult string

	// ProcessFunc, when set, replaces the default passthrough behavior.
	ProcessFunc func(inputs []*audio.Buffer) (*audio.Buffer, error)

	// ProcessError, when set, is returned by every Process call.
	// ProcessFunc takes precedence.
	ProcessError error

	// StatsResult is returned by [Processor.Stats].
	StatsResult audio.ProcessorStats

	// CallCountProcess records how many times Process was called.
	CallCountProcess int

	// CallCountReset records how many times Reset was called.
	CallCountReset int

	// RecordedInputs holds the input slice of every Process call, in order.
	RecordedInputs [][]*audio.Buffer
}

var _ audio.Processor = (*Processor)(nil)

// Name implements [audio.Processor].
func (p *Processor) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NameResult == "" {
		return "mock-processor"
	}
	return p.NameResult
}

// Process implements [audio.Processor]. Calls ProcessFunc when set, returns
// ProcessError when set, and otherwise passes the first input through.
func (p *Processor) Process(inputs []*audio.Buffer) (*audio.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountProcess++
	p.RecordedInputs = append(p.RecordedInputs, inputs)
	if p.ProcessFunc != nil {
		return p.ProcessFunc(inputs)
	}
	if p.ProcessError != nil {
		return nil, p.ProcessError
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	return inputs[0], nil
}

// OutputFormat implements [audio.Processor]. Identity.
func (p *Processor) OutputFormat(input audio.Format) audio.Format { return input }

// Reset implements [audio.Processor].
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountReset++
}

// Stats implements [audio.Processor]. Returns StatsResult.
func (p *Processor) Stats() audio.ProcessorStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.StatsResult
}

// ─── Sink ─────────────────────────────────────────────────────────────────────

// Sink is a mock implementation of [audio.Sink]. It records every written
// buffer.
type Sink struct {
	mu sync.Mutex

	// NameResult is returned by [Sink.Name]. Defaults to "mock-sink".
	NameResult string

	// WriteError, when set, is returned by every Write call.
	WriteError error

	// FlushError is returned by [Sink.Flush].
	FlushError error

	// CloseError is returned by [Sink.Close].
	CloseError error

	// StatsResult is returned by [Sink.Stats].
	StatsResult audio.SinkStats

	// Written holds every buffer successfully written, in order.
	Written []*audio.Buffer

	// CallCountWrite records how many times Write was called.
	CallCountWrite int

	// CallCountFlush records how many times Flush was called.
	CallCountFlush int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

var _ audio.Sink = (*Sink)(nil)

// Name implements [audio.Sink].
func (s *Sink) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NameResult == "" {
		return "mock-sink"
	}
	return s.NameResult
}

// Write implements [audio.Sink]. Returns WriteError when set; otherwise
// appends the buffer to Written.
func (s *Sink) Write(buffer *audio.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountWrite++
	if s.WriteError != nil {
		return s.WriteError
	}
	s.Written = append(s.Written, buffer)
	return nil
}

// Flush implements [audio.Sink]. Returns FlushError.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountFlush++
	return s.FlushError
}

// Close implements [audio.Sink]. Returns CloseError.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return s.CloseError
}

// Stats implements [audio.Sink]. Returns StatsResult.
func (s *Sink) Stats() audio.SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StatsResult
}

// WrittenCount returns the number of buffers successfully written so far.
func (s *Sink) WrittenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Written)
}
