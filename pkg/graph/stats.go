package graph

import (
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// NodeStats holds the graph-side counters kept for every node. These are
// maintained by the scheduler and are distinct from the node's own internal
// stats (e.g. a source's overrun count).
type NodeStats struct {
	// BuffersIn counts buffers popped from the node's incoming edges.
	BuffersIn uint64 `json:"buffers_in"`

	// BuffersOut counts buffers the node produced onto outgoing edges,
	// or wrote into a sink.
	BuffersOut uint64 `json:"buffers_out"`

	// Dropped counts buffers this node produced that were rejected by a
	// full downstream queue. Drops are a counted degradation mode, never
	// an error.
	Dropped uint64 `json:"dropped"`

	// Starved counts scheduler ticks skipped because at least one of the
	// node's input queues was empty.
	Starved uint64 `json:"starved"`

	// Errors counts failed node operations during processing ticks.
	Errors uint64 `json:"errors"`

	// LastActive is the start time of the last tick in which the node
	// moved data.
	LastActive time.Time `json:"last_active"`
}

// NodeSnapshot describes one node in a [Snapshot]: identity, graph-side
// counters, and the node's own stats for its kind.
type NodeSnapshot struct {
	ID   NodeID   `json:"id"`
	Name string   `json:"name"`
	Kind NodeKind `json:"kind"`

	Stats NodeStats `json:"stats"`

	Source    *audio.SourceStats    `json:"source,omitempty"`
	Processor *audio.ProcessorStats `json:"processor,omitempty"`
	Sink      *audio.SinkStats      `json:"sink,omitempty"`
}

// EdgeSnapshot describes one edge in a [Snapshot].
type EdgeSnapshot struct {
	From     NodeID `json:"from"`
	To       NodeID `json:"to"`
	Depth    int    `json:"depth"`
	MaxDepth int    `json:"max_depth"`
	Overflow uint64 `json:"overflow"`
}

// Snapshot is a point-in-time view of the whole graph: state, every node's
// counters, and every edge's queue occupancy.
type Snapshot struct {
	State State          `json:"state"`
	Nodes []NodeSnapshot `json:"nodes"`
	Edges []EdgeSnapshot `json:"edges"`
}

// Observer receives scheduler events. The graph invokes the observer
// synchronously from its own methods, so implementations must be fast and
// must not call back into the graph. A nil observer is valid.
//
// The OpenTelemetry-backed implementation lives in internal/observe.
type Observer interface {
	// TickCompleted fires at the end of every ProcessOnce call on an
	// active graph.
	TickCompleted(d time.Duration, buffers, errors int)

	// BufferDropped fires when a producer's push was rejected by a full
	// downstream queue.
	BufferDropped(node string)

	// InputStarved fires when a processor's tick was skipped for lack of
	// input.
	InputStarved(node string)

	// NodeError fires when a node operation failed during a tick.
	NodeError(node string)

	// StateChanged fires on every graph state transition.
	StateChanged(from, to State)
}
