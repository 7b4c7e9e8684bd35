package config

import (
	"fmt"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/graph"
)

// Build constructs a [graph.Graph] from the pipeline declaration: every node
// is created through the registry and registered, then every edge is
// connected. The returned map resolves node names to their graph IDs.
//
// Build does not start the graph; topology problems the loader cannot see
// (cycles, kind mismatches) surface here through the graph's own connect
// checks.
func Build(cfg *Config, reg *Registry, opts ...graph.Option) (*graph.Graph, map[string]graph.NodeID, error) {
	if cfg.Pipeline.QueueDepth > 0 {
		opts = append(opts, graph.WithQueueDepth(cfg.Pipeline.QueueDepth))
	}
	g := graph.New(opts...)

	ids := make(map[string]graph.NodeID, len(cfg.Pipeline.Nodes))
	for _, nc := range cfg.Pipeline.Nodes {
		switch nc.Kind {
		case NodeSource:
			src, err := reg.CreateSource(nc)
			if err != nil {
				return nil, nil, fmt.Errorf("config: build node %q: %w", nc.Name, err)
			}
			ids[nc.Name] = g.AddSource(src)
		case NodeProcessor:
			proc, err := reg.CreateProcessor(nc)
			if err != nil {
				return nil, nil, fmt.Errorf("config: build node %q: %w", nc.Name, err)
			}
			ids[nc.Name] = g.AddProcessor(proc)
		case NodeSink:
			sink, err := reg.CreateSink(nc)
			if err != nil {
				return nil, nil, fmt.Errorf("config: build node %q: %w", nc.Name, err)
			}
			ids[nc.Name] = g.AddSink(sink)
		default:
			return nil, nil, fmt.Errorf("config: build node %q: unknown kind %q", nc.Name, nc.Kind)
		}
	}

	for _, ec := range cfg.Pipeline.Edges {
		if err := g.Connect(ids[ec.From], ids[ec.To]); err != nil {
			return nil, nil, fmt.Errorf("config: connect %s -> %s: %w", ec.From, ec.To, err)
		}
	}

	return g, ids, nil
}
