package config_test

import (
	"testing"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/internal/config"
)

func pipelineConfig() *config.Config {
	gain := 1.0
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr:   ":8080",
			LogLevel:     config.LogInfo,
			TickInterval: 10 * time.Millisecond,
		},
		Pipeline: config.PipelineConfig{
			QueueDepth: 16,
			Nodes: []config.NodeConfig{
				{Name: "mic", Kind: config.NodeSource, Type: "silence",
					Format: &config.FormatConfig{SampleRate: 16000, Channels: 1}},
				{Name: "vol", Kind: config.NodeProcessor, Type: "volume",
					Options: config.NodeOptions{Gain: &gain}},
				{Name: "out", Kind: config.NodeSink, Type: "null"},
			},
			Edges: []config.EdgeConfig{
				{From: "mic", To: "vol"},
				{From: "vol", To: "out"},
			},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := pipelineConfig()
	new := pipelineConfig()

	d := config.Diff(old, new)
	if d.LogLevelChanged {
		t.Error("LogLevelChanged should be false")
	}
	if d.TickIntervalChanged {
		t.Error("TickIntervalChanged should be false")
	}
	if d.PipelineChanged {
		t.Error("PipelineChanged should be false")
	}
	if len(d.NodeChanges) != 0 {
		t.Errorf("NodeChanges: got %d, want 0", len(d.NodeChanges))
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := pipelineConfig()
	new := pipelineConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("LogLevelChanged should be true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel: got %q, want %q", d.NewLogLevel, config.LogDebug)
	}
	if d.PipelineChanged {
		t.Error("log level change should not flag the pipeline")
	}
}

func TestDiff_TickIntervalChanged(t *testing.T) {
	t.Parallel()
	old := pipelineConfig()
	new := pipelineConfig()
	new.Server.TickInterval = 20 * time.Millisecond

	d := config.Diff(old, new)
	if !d.TickIntervalChanged {
		t.Fatal("TickIntervalChanged should be true")
	}
	if d.PipelineChanged {
		t.Error("tick interval change should not flag the pipeline")
	}
}

func TestDiff_QueueDepthChanged(t *testing.T) {
	t.Parallel()
	old := pipelineConfig()
	new := pipelineConfig()
	new.Pipeline.QueueDepth = 64

	d := config.Diff(old, new)
	if !d.PipelineChanged {
		t.Error("queue depth change should flag the pipeline")
	}
}

func TestDiff_NodeOptionsChanged(t *testing.T) {
	t.Parallel()
	old := pipelineConfig()
	new := pipelineConfig()
	halved := 0.5
	new.Pipeline.Nodes[1].Options.Gain = &halved

	d := config.Diff(old, new)
	if !d.PipelineChanged {
		t.Fatal("node option change should flag the pipeline")
	}
	if len(d.NodeChanges) != 1 {
		t.Fatalf("NodeChanges: got %d, want 1", len(d.NodeChanges))
	}
	nc := d.NodeChanges[0]
	if nc.Name != "vol" || !nc.OptionsChanged {
		t.Errorf("NodeChanges[0]: got %+v, want vol with OptionsChanged", nc)
	}
}

func TestDiff_NodeAdded(t *testing.T) {
	t.Parallel()
	old := pipelineConfig()
	new := pipelineConfig()
	new.Pipeline.Nodes = append(new.Pipeline.Nodes, config.NodeConfig{
		Name: "tap", Kind: config.NodeSink, Type: "buffer",
	})

	d := config.Diff(old, new)
	if !d.PipelineChanged {
		t.Fatal("added node should flag the pipeline")
	}
	found := false
	for _, nc := range d.NodeChanges {
		if nc.Name == "tap" && nc.Added {
			found = true
		}
	}
	if !found {
		t.Errorf("NodeChanges should record tap as added, got %+v", d.NodeChanges)
	}
}

func TestDiff_NodeRemoved(t *testing.T) {
	t.Parallel()
	old := pipelineConfig()
	new := pipelineConfig()
	new.Pipeline.Nodes = new.Pipeline.Nodes[:2]
	new.Pipeline.Edges = new.Pipeline.Edges[:1]

	d := config.Diff(old, new)
	if !d.PipelineChanged {
		t.Fatal("removed node should flag the pipeline")
	}
	found := false
	for _, nc := range d.NodeChanges {
		if nc.Name == "out" && nc.Removed {
			found = true
		}
	}
	if !found {
		t.Errorf("NodeChanges should record out as removed, got %+v", d.NodeChanges)
	}
}

func TestDiff_EdgesChanged(t *testing.T) {
	t.Parallel()
	old := pipelineConfig()
	new := pipelineConfig()
	new.Pipeline.Edges = []config.EdgeConfig{
		{From: "mic", To: "out"},
	}

	d := config.Diff(old, new)
	if !d.PipelineChanged {
		t.Error("edge change should flag the pipeline")
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := pipelineConfig()
	new := pipelineConfig()
	new.Server.LogLevel = config.LogError
	new.Server.TickInterval = 5 * time.Millisecond
	new.Pipeline.QueueDepth = 8

	d := config.Diff(old, new)
	if !d.LogLevelChanged || !d.TickIntervalChanged || !d.PipelineChanged {
		t.Errorf("all three flags should be set, got %+v", d)
	}
}
