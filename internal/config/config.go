// Package config provides the configuration schema, loader, and node registry
// for the audiograph engine.
package config

import (
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// LogLevel controls log verbosity for the audiograph server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// NodeKind classifies a pipeline node declaration.
type NodeKind string

const (
	NodeSource    NodeKind = "source"
	NodeProcessor NodeKind = "processor"
	NodeSink      NodeKind = "sink"
)

// IsValid reports whether k is a recognised node kind.
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeSource, NodeProcessor, NodeSink:
		return true
	}
	return false
}

// Config is the root configuration structure for audiograph.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds network, logging, and scheduling settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the monitoring server listens on
	// (e.g., ":8080"). Leave empty to disable the monitoring server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TickInterval is the scheduler tick period. Defaults to 10ms.
	TickInterval time.Duration `yaml:"tick_interval"`
}

// PipelineConfig declares the graph topology: the nodes and the edges
// connecting them.
type PipelineConfig struct {
	// QueueDepth bounds every edge queue. Defaults to the graph's built-in
	// depth when zero.
	QueueDepth int `yaml:"queue_depth"`

	Nodes []NodeConfig `yaml:"nodes"`
	Edges []EdgeConfig `yaml:"edges"`
}

// NodeConfig declares a single node. Name must be unique within the
// pipeline; Type selects the constructor registered in the [Registry].
type NodeConfig struct {
	// Name is a unique identifier for this node, referenced by edges.
	Name string `yaml:"name"`

	// Kind is the node's role: source, processor, or sink.
	Kind NodeKind `yaml:"kind"`

	// Type selects the registered node implementation
	// (e.g., "silence", "wav_file", "mixer", "wav").
	Type string `yaml:"type"`

	// Format is the node's audio format, for node types that need one
	// declared up front (generators, push sources, WAV sinks).
	Format *FormatConfig `yaml:"format"`

	// Options holds type-specific parameters.
	Options NodeOptions `yaml:"options"`
}

// FormatConfig is the YAML shape of an [audio.Format].
type FormatConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	SampleKind string `yaml:"sample_kind"`
}

// Format converts the YAML shape to an [audio.Format]. An empty or unknown
// sample_kind maps to float32.
func (f FormatConfig) Format() audio.Format {
	kind := audio.F32
	switch f.SampleKind {
	case "i16":
		kind = audio.I16
	case "i24":
		kind = audio.I24
	case "i32":
		kind = audio.I32
	}
	return audio.Format{SampleRate: f.SampleRate, Channels: f.Channels, Kind: kind}
}

// NodeOptions holds the union of type-specific node parameters. Each node
// type reads the fields it understands and ignores the rest; [Validate]
// flags combinations that make no sense.
type NodeOptions struct {
	// Path is the input or output file for file-backed nodes.
	Path string `yaml:"path"`

	// Chunk is the buffer duration produced per read by generator and file
	// sources.
	Chunk time.Duration `yaml:"chunk"`

	// Paced controls wall-clock pacing for the silence generator.
	// Defaults to true.
	Paced *bool `yaml:"paced"`

	// RingDepth is the pending-buffer capacity of a push source.
	RingDepth int `yaml:"ring_depth"`

	// Inputs is the number of upstream edges a mixer combines.
	Inputs int `yaml:"inputs"`

	// Mode is the mixer mode: "sum", "average", or "weighted".
	Mode string `yaml:"mode"`

	// Gain is the linear gain of a volume node (1.0 = unity).
	Gain *float64 `yaml:"gain"`

	// GainDB is the gain of a volume node in decibels. Takes precedence
	// over Gain when both are set.
	GainDB *float64 `yaml:"gain_db"`

	// FromRate and ToRate are the resampler's input and output rates.
	FromRate int `yaml:"from_rate"`
	ToRate   int `yaml:"to_rate"`

	// Channels is the resampler's channel count.
	Channels int `yaml:"channels"`

	// Threshold is the gate's RMS threshold in [0.0, 1.0].
	Threshold *float64 `yaml:"threshold"`

	// Hold is how long the gate stays open after the signal drops below
	// the threshold.
	Hold time.Duration `yaml:"hold"`

	// TargetDB is the normalizer's peak target in dBFS (<= 0).
	TargetDB *float64 `yaml:"target_db"`

	// LookAhead is the normalizer's peak-detection window.
	LookAhead time.Duration `yaml:"look_ahead"`

	// MaxBuffers is the accumulation limit of a buffer sink.
	MaxBuffers int `yaml:"max_buffers"`
}

// EdgeConfig declares a directed connection between two named nodes.
type EdgeConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}
