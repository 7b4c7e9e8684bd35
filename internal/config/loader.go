package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TickInterval < 0 {
		errs = append(errs, fmt.Errorf("server.tick_interval must not be negative"))
	}

	// Pipeline
	if cfg.Pipeline.QueueDepth < 0 {
		errs = append(errs, fmt.Errorf("pipeline.queue_depth must not be negative"))
	}

	nodeNamesSeen := make(map[string]int, len(cfg.Pipeline.Nodes))
	for i, node := range cfg.Pipeline.Nodes {
		prefix := fmt.Sprintf("pipeline.nodes[%d]", i)
		if node.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := nodeNamesSeen[node.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of pipeline.nodes[%d]", prefix, node.Name, prev))
			}
			nodeNamesSeen[node.Name] = i
		}
		if !node.Kind.IsValid() {
			errs = append(errs, fmt.Errorf("%s.kind %q is invalid; valid values: source, processor, sink", prefix, node.Kind))
		}
		if node.Type == "" {
			errs = append(errs, fmt.Errorf("%s.type is required", prefix))
		}
		if node.Format != nil && !node.Format.Format().Valid() {
			errs = append(errs, fmt.Errorf("%s.format is invalid: needs positive sample_rate and channels", prefix))
		}
	}

	// Edges must reference declared nodes. Cycles and kind mismatches are
	// the graph's own connect-time checks; the loader only validates names.
	for i, edge := range cfg.Pipeline.Edges {
		prefix := fmt.Sprintf("pipeline.edges[%d]", i)
		if edge.From == "" || edge.To == "" {
			errs = append(errs, fmt.Errorf("%s needs both from and to", prefix))
			continue
		}
		if _, ok := nodeNamesSeen[edge.From]; !ok {
			errs = append(errs, fmt.Errorf("%s.from %q does not name a declared node", prefix, edge.From))
		}
		if _, ok := nodeNamesSeen[edge.To]; !ok {
			errs = append(errs, fmt.Errorf("%s.to %q does not name a declared node", prefix, edge.To))
		}
	}

	if len(cfg.Pipeline.Nodes) > 1 && len(cfg.Pipeline.Edges) == 0 {
		slog.Warn("pipeline declares nodes but no edges; the graph will not move data")
	}

	return errors.Join(errs...)
}
