// Package graph wires audio nodes into a directed acyclic processing graph
// and drives buffers through it one tick at a time.
//
// A [Graph] owns a registry of sources, processors and sinks, connected by
// directed edges. Each edge carries a bounded FIFO queue; when a downstream
// queue is full the producer's buffer is dropped and counted rather than
// blocking the pipeline. [Graph.ProcessOnce] advances every node once in
// topological order, so a buffer read from a source at the start of a tick
// can reach a sink by the end of the same tick.
//
// All methods are safe for concurrent use. The graph serializes everything
// behind one mutex; a tick is short (it never blocks on I/O beyond what the
// nodes themselves do), so contention stays low in practice.
package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// NodeID identifies a node within one graph. IDs are assigned in
// registration order starting at 1 and are never reused, even after the
// node is removed.
type NodeID uint64

// NodeKind classifies a registered node.
type NodeKind int

const (
	KindSource NodeKind = iota
	KindProcessor
	KindSink
)

func (k NodeKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindProcessor:
		return "processor"
	case KindSink:
		return "sink"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// MarshalText renders the kind for JSON snapshots.
func (k NodeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses the kind from its snapshot form.
func (k *NodeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "source":
		*k = KindSource
	case "processor":
		*k = KindProcessor
	case "sink":
		*k = KindSink
	default:
		return fmt.Errorf("unknown node kind %q", text)
	}
	return nil
}

// State is the graph lifecycle state.
type State int

const (
	// StateIdle is the resting state. Topology may be edited freely and
	// ProcessOnce is a no-op.
	StateIdle State = iota

	// StateStarting is the transient state while sources are being
	// started.
	StateStarting

	// StateActive means sources are running and ProcessOnce moves data.
	StateActive

	// StateStopping is the transient state during shutdown.
	StateStopping

	// StateError means a start attempt failed partway. Only Stop clears
	// it.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state for JSON snapshots.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses the state from its snapshot form.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "starting":
		*s = StateStarting
	case "active":
		*s = StateActive
	case "stopping":
		*s = StateStopping
	case "error":
		*s = StateError
	default:
		return fmt.Errorf("unknown graph state %q", text)
	}
	return nil
}

// node is one registry slot. Exactly one of source, processor and sink is
// non-nil, matching kind.
type node struct {
	id   NodeID
	name string
	kind NodeKind

	source    audio.Source
	processor audio.Processor
	sink      audio.Sink

	stats NodeStats
}

// noopObserver stands in when no observer is configured so the scheduler
// never branches on nil.
type noopObserver struct{}

func (noopObserver) TickCompleted(time.Duration, int, int) {}
func (noopObserver) BufferDropped(string)                  {}
func (noopObserver) InputStarved(string)                   {}
func (noopObserver) NodeError(string)                      {}
func (noopObserver) StateChanged(State, State)             {}

// Graph is an audio processing graph. The zero value is not usable; create
// one with [New].
type Graph struct {
	mu sync.Mutex

	nodes map[NodeID]*node
	order []NodeID // registration order, ascending IDs
	edges []*edge

	nextID NodeID
	state  State

	// topo is the cached processing order, recomputed lazily after any
	// topology edit.
	topo      []NodeID
	topoDirty bool

	queueDepth int
	logger     *slog.Logger
	observer   Observer

	ticks uint64
}

// Option configures a [Graph].
type Option func(*Graph)

// WithQueueDepth sets the bound for every edge queue created by Connect.
// Values below 1 are ignored.
func WithQueueDepth(depth int) Option {
	return func(g *Graph) {
		if depth >= 1 {
			g.queueDepth = depth
		}
	}
}

// WithLogger sets the logger used for scheduler warnings. Defaults to
// [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithObserver installs an [Observer] for scheduler events.
func WithObserver(obs Observer) Option {
	return func(g *Graph) {
		if obs != nil {
			g.observer = obs
		}
	}
}

// New creates an empty graph in the idle state.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:      make(map[NodeID]*node),
		nextID:     1,
		queueDepth: DefaultQueueDepth,
		logger:     slog.Default(),
		observer:   noopObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddSource registers a source and returns its ID.
func (g *Graph) AddSource(src audio.Source) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(&node{name: src.Name(), kind: KindSource, source: src})
}

// AddProcessor registers a processor and returns its ID.
func (g *Graph) AddProcessor(p audio.Processor) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(&node{name: p.Name(), kind: KindProcessor, processor: p})
}

// AddSink registers a sink and returns its ID.
func (g *Graph) AddSink(s audio.Sink) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(&node{name: s.Name(), kind: KindSink, sink: s})
}

func (g *Graph) addLocked(n *node) NodeID {
	n.id = g.nextID
	g.nextID++
	g.nodes[n.id] = n
	g.order = append(g.order, n.id)
	g.topoDirty = true
	return n.id
}

// RemoveNode removes a node from the graph. It fails with an in-use error
// while any edge still touches the node; Disconnect first.
//
// The removed node is shut down best effort for its kind (sources are
// stopped, sinks flushed and closed); a shutdown failure is returned but
// the node is removed regardless.
func (g *Graph) RemoveNode(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return audio.Errf(audio.KindConfiguration, "node %d not found", id)
	}
	for _, e := range g.edges {
		if e.from == id || e.to == id {
			return audio.NodeErrf(audio.KindInUse, n.name,
				"node has connected edges; disconnect before removing")
		}
	}

	delete(g.nodes, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.topoDirty = true

	switch n.kind {
	case KindSource:
		if n.source.IsActive() {
			if err := n.source.Stop(); err != nil {
				return audio.WrapErr(audio.KindIO, n.name, err)
			}
		}
	case KindSink:
		err := errors.Join(n.sink.Flush(), n.sink.Close())
		if err != nil {
			return audio.WrapErr(audio.KindIO, n.name, err)
		}
	}
	return nil
}

// Node returns the name and kind of a registered node.
func (g *Graph) Node(id NodeID) (name string, kind NodeKind, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return "", 0, false
	}
	return n.name, n.kind, true
}

// NodeIDs returns the IDs of all registered nodes in registration order.
func (g *Graph) NodeIDs() []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]NodeID(nil), g.order...)
}

// State returns the current lifecycle state.
func (g *Graph) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsActive reports whether the graph is processing.
func (g *Graph) IsActive() bool { return g.State() == StateActive }

// Ticks returns the number of completed processing ticks since Start.
func (g *Graph) Ticks() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ticks
}

func (g *Graph) setStateLocked(s State) {
	if g.state == s {
		return
	}
	from := g.state
	g.state = s
	g.observer.StateChanged(from, s)
}

// Start validates the topology and starts every source.
//
// Validation failures (no source, no sink, an unreachable sink) leave the
// graph idle. If any source fails to start, the sources already started are
// stopped again and the graph enters the error state, which only Stop
// clears.
func (g *Graph) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case StateIdle:
	case StateActive:
		return audio.Errf(audio.KindInvalidState, "graph already active")
	default:
		return audio.Errf(audio.KindInvalidState, "cannot start from state %s", g.state)
	}

	if err := g.validateLocked(); err != nil {
		return err
	}
	if g.topoDirty {
		g.topo = g.topoOrderLocked()
		g.topoDirty = false
	}

	g.setStateLocked(StateStarting)

	var started []*node
	for _, id := range g.order {
		n := g.nodes[id]
		if n.kind != KindSource {
			continue
		}
		if err := n.source.Start(); err != nil {
			for _, s := range started {
				if stopErr := s.source.Stop(); stopErr != nil {
					g.logger.Error("rollback stop failed",
						"node", s.name, "error", stopErr)
				}
			}
			g.setStateLocked(StateError)
			return audio.WrapErr(audio.KindDevice, n.name, err)
		}
		started = append(started, n)
	}

	g.ticks = 0
	g.setStateLocked(StateActive)
	g.logger.Info("graph started",
		"nodes", len(g.nodes), "edges", len(g.edges), "sources", len(started))
	return nil
}

// Stop shuts the graph down: sources are stopped, sinks are flushed and
// closed, and every edge queue is cleared. All shutdown steps run even when
// some fail; the failures are joined into the returned error. Stop from
// idle is a no-op, so stopping twice is safe. Stop also clears the error
// state.
func (g *Graph) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateIdle {
		return nil
	}
	g.setStateLocked(StateStopping)

	var errs []error
	for _, id := range g.order {
		n := g.nodes[id]
		switch n.kind {
		case KindSource:
			if !n.source.IsActive() {
				continue
			}
			if err := n.source.Stop(); err != nil {
				errs = append(errs, audio.WrapErr(audio.KindDevice, n.name, err))
			}
		case KindSink:
			if err := n.sink.Flush(); err != nil {
				errs = append(errs, audio.WrapErr(audio.KindIO, n.name, err))
			}
			if err := n.sink.Close(); err != nil {
				errs = append(errs, audio.WrapErr(audio.KindIO, n.name, err))
			}
		}
	}
	for _, e := range g.edges {
		e.clear()
	}

	g.setStateLocked(StateIdle)
	g.logger.Info("graph stopped", "ticks", g.ticks, "errors", len(errs))
	return errors.Join(errs...)
}

// ProcessOnce runs one scheduling tick: every node is visited once in
// topological order, moving buffers one hop along each edge.
//
// On an inactive graph ProcessOnce returns nil without touching any node.
// A node failure is isolated to that node for the tick; processing of the
// remaining nodes continues and the failures come back joined. The tick
// itself always completes.
func (g *Graph) ProcessOnce() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateActive {
		return nil
	}
	if g.topoDirty {
		g.topo = g.topoOrderLocked()
		g.topoDirty = false
	}

	start := time.Now()
	moved := 0
	var errs []error

	for _, id := range g.topo {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		switch n.kind {
		case KindSource:
			moved += g.tickSourceLocked(n, start, &errs)
		case KindProcessor:
			moved += g.tickProcessorLocked(n, start, &errs)
		case KindSink:
			moved += g.tickSinkLocked(n, start, &errs)
		}
	}

	g.ticks++
	g.observer.TickCompleted(time.Since(start), moved, len(errs))
	return errors.Join(errs...)
}

// tickSourceLocked reads at most one buffer from the source and fans it out
// to every outgoing edge. Returns the number of buffers enqueued.
func (g *Graph) tickSourceLocked(n *node, now time.Time, errs *[]error) int {
	buf, err := n.source.Read()
	if err != nil {
		n.stats.Errors++
		g.observer.NodeError(n.name)
		*errs = append(*errs, audio.WrapErr(audio.KindIO, n.name, err))
		return 0
	}
	if buf == nil {
		return 0
	}
	n.stats.BuffersOut++
	n.stats.LastActive = now
	return g.fanOutLocked(n, buf)
}

// tickProcessorLocked pops one buffer from every incoming edge, processes
// them, and fans the result out. A processor with any empty input skips the
// tick and counts a starvation; the buffers on its other inputs stay queued.
func (g *Graph) tickProcessorLocked(n *node, now time.Time, errs *[]error) int {
	in := g.inEdgesLocked(n.id)
	if len(in) == 0 {
		return 0
	}
	for _, e := range in {
		if e.depth() == 0 {
			n.stats.Starved++
			g.observer.InputStarved(n.name)
			return 0
		}
	}

	inputs := make([]*audio.Buffer, len(in))
	for i, e := range in {
		buf, _ := e.pop()
		inputs[i] = buf
		n.stats.BuffersIn++
	}

	out, err := n.processor.Process(inputs)
	if err != nil {
		n.stats.Errors++
		g.observer.NodeError(n.name)
		*errs = append(*errs, audio.WrapErr(audio.KindProcessing, n.name, err))
		return 0
	}
	if out == nil {
		return 0
	}
	n.stats.BuffersOut++
	n.stats.LastActive = now
	return g.fanOutLocked(n, out)
}

// tickSinkLocked drains everything queued on the sink's incoming edges. A
// write failure stops the drain of that edge for this tick but leaves the
// queue intact, so the remaining buffers get another chance next tick.
func (g *Graph) tickSinkLocked(n *node, now time.Time, errs *[]error) int {
	written := 0
	for _, e := range g.inEdgesLocked(n.id) {
		for {
			buf, ok := e.front()
			if !ok {
				break
			}
			if err := n.sink.Write(buf); err != nil {
				n.stats.Errors++
				g.observer.NodeError(n.name)
				*errs = append(*errs, audio.WrapErr(audio.KindIO, n.name, err))
				break
			}
			e.pop()
			n.stats.BuffersIn++
			n.stats.BuffersOut++
			n.stats.LastActive = now
			written++
		}
	}
	return written
}

// fanOutLocked pushes a produced buffer onto every outgoing edge. All edges
// share the same buffer pointer; downstream nodes must treat received input
// samples as read-only. A full edge counts a drop against the producer and
// the buffer simply does not travel that edge.
func (g *Graph) fanOutLocked(n *node, buf *audio.Buffer) int {
	delivered := 0
	for _, e := range g.outEdgesLocked(n.id) {
		if e.push(buf) {
			delivered++
			continue
		}
		n.stats.Dropped++
		g.observer.BufferDropped(n.name)
	}
	return delivered
}

// Snapshot returns a point-in-time view of the graph for monitoring. Node
// entries come back in registration order, edge entries in connection
// order.
func (g *Graph) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		State: g.state,
		Nodes: make([]NodeSnapshot, 0, len(g.nodes)),
		Edges: make([]EdgeSnapshot, 0, len(g.edges)),
	}
	for _, id := range g.order {
		n := g.nodes[id]
		ns := NodeSnapshot{ID: n.id, Name: n.name, Kind: n.kind, Stats: n.stats}
		switch n.kind {
		case KindSource:
			s := n.source.Stats()
			ns.Source = &s
		case KindProcessor:
			s := n.processor.Stats()
			ns.Processor = &s
		case KindSink:
			s := n.sink.Stats()
			ns.Sink = &s
		}
		snap.Nodes = append(snap.Nodes, ns)
	}
	for _, e := range g.edges {
		snap.Edges = append(snap.Edges, EdgeSnapshot{
			From:     e.from,
			To:       e.to,
			Depth:    e.depth(),
			MaxDepth: e.maxDepth,
			Overflow: e.overflow,
		})
	}
	return snap
}

// Stats returns the graph-side counters for one node.
func (g *Graph) Stats(id NodeID) (NodeStats, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return NodeStats{}, false
	}
	return n.stats, true
}
