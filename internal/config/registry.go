package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio/processors"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio/sinks"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio/sources"
)

// ErrNodeTypeNotRegistered is returned by Create* methods when no factory has
// been registered under the requested node type.
var ErrNodeTypeNotRegistered = errors.New("config: node type not registered")

// Registry maps node type names to their constructor functions for each node
// kind. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	sources    map[string]func(NodeConfig) (audio.Source, error)
	processors map[string]func(NodeConfig) (audio.Processor, error)
	sinks      map[string]func(NodeConfig) (audio.Sink, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		sources:    make(map[string]func(NodeConfig) (audio.Source, error)),
		processors: make(map[string]func(NodeConfig) (audio.Processor, error)),
		sinks:      make(map[string]func(NodeConfig) (audio.Sink, error)),
	}
}

// RegisterSource registers a source factory under a type name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSource(typ string, factory func(NodeConfig) (audio.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[typ] = factory
}

// RegisterProcessor registers a processor factory under a type name.
func (r *Registry) RegisterProcessor(typ string, factory func(NodeConfig) (audio.Processor, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[typ] = factory
}

// RegisterSink registers a sink factory under a type name.
func (r *Registry) RegisterSink(typ string, factory func(NodeConfig) (audio.Sink, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[typ] = factory
}

// CreateSource builds the source declared by nc.
func (r *Registry) CreateSource(nc NodeConfig) (audio.Source, error) {
	r.mu.RLock()
	factory, ok := r.sources[nc.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: source type %q", ErrNodeTypeNotRegistered, nc.Type)
	}
	return factory(nc)
}

// CreateProcessor builds the processor declared by nc.
func (r *Registry) CreateProcessor(nc NodeConfig) (audio.Processor, error) {
	r.mu.RLock()
	factory, ok := r.processors[nc.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: processor type %q", ErrNodeTypeNotRegistered, nc.Type)
	}
	return factory(nc)
}

// CreateSink builds the sink declared by nc.
func (r *Registry) CreateSink(nc NodeConfig) (audio.Sink, error) {
	r.mu.RLock()
	factory, ok := r.sinks[nc.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: sink type %q", ErrNodeTypeNotRegistered, nc.Type)
	}
	return factory(nc)
}

// SourceTypes returns the registered source type names.
func (r *Registry) SourceTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sources))
	for typ := range r.sources {
		out = append(out, typ)
	}
	return out
}

// DefaultRegistry returns a registry with all built-in node types registered:
//
//	sources:    silence, push, wav_file, mp3_file
//	processors: mixer, volume, resampler, gate, normalizer
//	sinks:      buffer, null, wav
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterSource("silence", func(nc NodeConfig) (audio.Source, error) {
		if nc.Format == nil {
			return nil, fmt.Errorf("config: node %q: silence source requires a format", nc.Name)
		}
		opts := []sources.SilenceOption{}
		if nc.Options.Chunk > 0 {
			opts = append(opts, sources.WithSilenceChunk(nc.Options.Chunk))
		}
		if nc.Options.Paced != nil {
			opts = append(opts, sources.WithSilencePacing(*nc.Options.Paced))
		}
		return sources.NewSilence(nc.Name, nc.Format.Format(), opts...), nil
	})
	r.RegisterSource("push", func(nc NodeConfig) (audio.Source, error) {
		if nc.Format == nil {
			return nil, fmt.Errorf("config: node %q: push source requires a format", nc.Name)
		}
		opts := []sources.PushOption{}
		if nc.Options.RingDepth > 0 {
			opts = append(opts, sources.WithRingDepth(nc.Options.RingDepth))
		}
		return sources.NewPush(nc.Name, nc.Format.Format(), opts...), nil
	})
	r.RegisterSource("wav_file", func(nc NodeConfig) (audio.Source, error) {
		if nc.Options.Path == "" {
			return nil, fmt.Errorf("config: node %q: wav_file source requires options.path", nc.Name)
		}
		return sources.NewWAVFile(nc.Name, nc.Options.Path, fileOpts(nc)...)
	})
	r.RegisterSource("mp3_file", func(nc NodeConfig) (audio.Source, error) {
		if nc.Options.Path == "" {
			return nil, fmt.Errorf("config: node %q: mp3_file source requires options.path", nc.Name)
		}
		return sources.NewMP3File(nc.Name, nc.Options.Path, fileOpts(nc)...)
	})

	r.RegisterProcessor("mixer", func(nc NodeConfig) (audio.Processor, error) {
		mode, err := mixMode(nc.Options.Mode)
		if err != nil {
			return nil, fmt.Errorf("config: node %q: %w", nc.Name, err)
		}
		return processors.NewMixer(nc.Name, nc.Options.Inputs, mode)
	})
	r.RegisterProcessor("volume", func(nc NodeConfig) (audio.Processor, error) {
		if nc.Options.GainDB != nil {
			return processors.NewVolumeDB(nc.Name, *nc.Options.GainDB)
		}
		gain := 1.0
		if nc.Options.Gain != nil {
			gain = *nc.Options.Gain
		}
		return processors.NewVolume(nc.Name, gain)
	})
	r.RegisterProcessor("resampler", func(nc NodeConfig) (audio.Processor, error) {
		channels := nc.Options.Channels
		if channels == 0 {
			channels = 1
		}
		return processors.NewResampler(nc.Name, nc.Options.FromRate, nc.Options.ToRate, channels)
	})
	r.RegisterProcessor("gate", func(nc NodeConfig) (audio.Processor, error) {
		if nc.Options.Threshold == nil {
			return nil, fmt.Errorf("config: node %q: gate requires options.threshold", nc.Name)
		}
		opts := []processors.GateOption{}
		if nc.Options.Hold > 0 {
			opts = append(opts, processors.WithHold(nc.Options.Hold))
		}
		return processors.NewGate(nc.Name, *nc.Options.Threshold, opts...)
	})

	r.RegisterProcessor("normalizer", func(nc NodeConfig) (audio.Processor, error) {
		if nc.Options.TargetDB == nil {
			return nil, fmt.Errorf("config: node %q: normalizer requires options.target_db", nc.Name)
		}
		if nc.Format == nil {
			return nil, fmt.Errorf("config: node %q: normalizer requires a format", nc.Name)
		}
		opts := []processors.NormalizerOption{}
		if nc.Options.LookAhead > 0 {
			opts = append(opts, processors.WithLookAhead(nc.Options.LookAhead))
		}
		return processors.NewNormalizer(nc.Name, *nc.Options.TargetDB, nc.Format.Format().SampleRate, opts...)
	})

	r.RegisterSink("buffer", func(nc NodeConfig) (audio.Sink, error) {
		opts := []sinks.BufferOption{}
		if nc.Options.MaxBuffers > 0 {
			opts = append(opts, sinks.WithMaxBuffers(nc.Options.MaxBuffers))
		}
		return sinks.NewBuffer(nc.Name, opts...), nil
	})
	r.RegisterSink("null", func(nc NodeConfig) (audio.Sink, error) {
		return sinks.NewNull(nc.Name), nil
	})
	r.RegisterSink("wav", func(nc NodeConfig) (audio.Sink, error) {
		if nc.Options.Path == "" {
			return nil, fmt.Errorf("config: node %q: wav sink requires options.path", nc.Name)
		}
		if nc.Format == nil {
			return nil, fmt.Errorf("config: node %q: wav sink requires a format", nc.Name)
		}
		return sinks.NewWAV(nc.Name, nc.Options.Path, nc.Format.Format())
	})

	return r
}

func fileOpts(nc NodeConfig) []sources.FileOption {
	var opts []sources.FileOption
	if nc.Options.Chunk > 0 {
		opts = append(opts, sources.WithFileChunk(nc.Options.Chunk))
	}
	return opts
}

func mixMode(s string) (processors.MixMode, error) {
	switch s {
	case "", "sum":
		return processors.MixSum, nil
	case "average":
		return processors.MixAverage, nil
	case "weighted":
		return processors.MixWeighted, nil
	default:
		return 0, fmt.Errorf("unknown mix mode %q; valid values: sum, average, weighted", s)
	}
}
