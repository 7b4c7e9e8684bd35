package config

import "reflect"

// ConfigDiff describes what changed between two configs, split into changes
// that can be applied to a running engine and changes that need a graph
// rebuild.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	TickIntervalChanged bool

	// PipelineChanged is true when the node set, the edge set, or the
	// queue depth changed. The running graph must be stopped and rebuilt.
	PipelineChanged bool

	// NodeChanges lists per-node differences contributing to
	// PipelineChanged.
	NodeChanges []NodeDiff
}

// NodeDiff describes what changed for a single named node between two
// configs.
type NodeDiff struct {
	Name           string
	OptionsChanged bool
	Added          bool
	Removed        bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Server.TickInterval != new.Server.TickInterval {
		d.TickIntervalChanged = true
	}

	if old.Pipeline.QueueDepth != new.Pipeline.QueueDepth {
		d.PipelineChanged = true
	}
	if !reflect.DeepEqual(old.Pipeline.Edges, new.Pipeline.Edges) {
		d.PipelineChanged = true
	}

	oldNodes := make(map[string]*NodeConfig, len(old.Pipeline.Nodes))
	for i := range old.Pipeline.Nodes {
		oldNodes[old.Pipeline.Nodes[i].Name] = &old.Pipeline.Nodes[i]
	}
	newNodes := make(map[string]*NodeConfig, len(new.Pipeline.Nodes))
	for i := range new.Pipeline.Nodes {
		newNodes[new.Pipeline.Nodes[i].Name] = &new.Pipeline.Nodes[i]
	}

	// Detect modified and removed nodes.
	for name, oldNode := range oldNodes {
		newNode, exists := newNodes[name]
		if !exists {
			d.NodeChanges = append(d.NodeChanges, NodeDiff{Name: name, Removed: true})
			d.PipelineChanged = true
			continue
		}
		if !reflect.DeepEqual(oldNode, newNode) {
			d.NodeChanges = append(d.NodeChanges, NodeDiff{Name: name, OptionsChanged: true})
			d.PipelineChanged = true
		}
	}

	// Detect added nodes.
	for name := range newNodes {
		if _, exists := oldNodes[name]; !exists {
			d.NodeChanges = append(d.NodeChanges, NodeDiff{Name: name, Added: true})
			d.PipelineChanged = true
		}
	}

	return d
}
