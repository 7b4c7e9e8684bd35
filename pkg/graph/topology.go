package graph

import (
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"
)

// Connect adds a directed edge from one node to the other. Buffers will flow
// from the first node to the second through a bounded queue owned by the
// edge.
//
// The edge set stays acyclic by construction: before mutating anything,
// Connect checks whether the origin is reachable from the destination over
// the existing edges and rejects the connection with a cycle error if so.
// The attempted edge is never added on failure.
func (g *Graph) Connect(from, to NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	fn, ok := g.nodes[from]
	if !ok {
		return audio.Errf(audio.KindConfiguration, "origin node %d not found", from)
	}
	tn, ok := g.nodes[to]
	if !ok {
		return audio.Errf(audio.KindConfiguration, "destination node %d not found", to)
	}
	if fn.kind == KindSink {
		return audio.NodeErrf(audio.KindConfiguration, fn.name, "a sink cannot have outgoing edges")
	}
	if tn.kind == KindSource {
		return audio.NodeErrf(audio.KindConfiguration, tn.name, "a source cannot have incoming edges")
	}
	for _, e := range g.edges {
		if e.from == from && e.to == to {
			return audio.Errf(audio.KindConfiguration,
				"edge %s -> %s already exists", fn.name, tn.name)
		}
	}
	if from == to || g.reachesLocked(to, from) {
		return audio.Errf(audio.KindCycle,
			"edge %s -> %s would create a cycle", fn.name, tn.name)
	}

	g.edges = append(g.edges, newEdge(from, to, g.queueDepth))
	g.topoDirty = true
	return nil
}

// Disconnect removes the edge between the two nodes, discarding any buffers
// still queued on it.
func (g *Graph) Disconnect(from, to NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, e := range g.edges {
		if e.from == from && e.to == to {
			e.clear()
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			g.topoDirty = true
			return nil
		}
	}
	return audio.Errf(audio.KindConfiguration, "edge %d -> %d not found", from, to)
}

// reachesLocked reports whether dst is reachable from src by depth-first
// search over the current edge set.
func (g *Graph) reachesLocked(src, dst NodeID) bool {
	if src == dst {
		return true
	}
	visited := map[NodeID]bool{src: true}
	stack := []NodeID{src}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.edges {
			if e.from != id || visited[e.to] {
				continue
			}
			if e.to == dst {
				return true
			}
			visited[e.to] = true
			stack = append(stack, e.to)
		}
	}
	return false
}

// Order returns the processing order the scheduler will use for the current
// topology. The order is recomputed on every call; for an unchanged topology
// repeated calls return the same sequence.
func (g *Graph) Order() []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.topoOrderLocked()
}

// topoOrderLocked computes the processing order with Kahn's in-degree
// algorithm. Ties among zero-in-degree nodes are broken by ascending NodeID
// (registration order), so the order is deterministic and stable across
// recomputations of an unchanged topology.
func (g *Graph) topoOrderLocked() []NodeID {
	inDegree := make(map[NodeID]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for _, e := range g.edges {
		inDegree[e.to]++
	}

	var ready []NodeID
	for _, id := range g.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]NodeID, 0, len(g.nodes))
	for len(ready) > 0 {
		// Pick the smallest ready ID for deterministic ordering.
		minIdx := 0
		for i, id := range ready {
			if id < ready[minIdx] {
				minIdx = i
			}
		}
		id := ready[minIdx]
		ready = append(ready[:minIdx], ready[minIdx+1:]...)
		sorted = append(sorted, id)

		for _, e := range g.edges {
			if e.from != id {
				continue
			}
			inDegree[e.to]--
			if inDegree[e.to] == 0 {
				ready = append(ready, e.to)
			}
		}
	}

	// Connect keeps the edge set acyclic, so every node is always emitted.
	return sorted
}

// validateLocked checks the structural prerequisites for Start: at least one
// source, at least one sink, and every sink reachable from some source.
// Nodes with no path to any sink are permitted — they are inert and logged,
// not errors.
func (g *Graph) validateLocked() error {
	var sources, sinks []NodeID
	for _, id := range g.order {
		switch g.nodes[id].kind {
		case KindSource:
			sources = append(sources, id)
		case KindSink:
			sinks = append(sinks, id)
		}
	}
	if len(sources) == 0 {
		return audio.Errf(audio.KindNotReady, "graph has no source")
	}
	if len(sinks) == 0 {
		return audio.Errf(audio.KindNotReady, "graph has no sink")
	}

	fed := g.reachableLocked(sources, false)
	for _, id := range sinks {
		if !fed[id] {
			return audio.NodeErrf(audio.KindNotReady, g.nodes[id].name,
				"sink is not reachable from any source")
		}
	}

	// Inert nodes: anything that cannot feed a sink.
	feeding := g.reachableLocked(sinks, true)
	for _, id := range g.order {
		if !feeding[id] {
			g.logger.Warn("node has no path to any sink and will be inert",
				"node", g.nodes[id].name, "id", id)
		}
	}
	return nil
}

// reachableLocked returns the set of nodes reachable from the given start
// set, following edges forward or (when reverse is set) backward. The start
// nodes are included.
func (g *Graph) reachableLocked(start []NodeID, reverse bool) map[NodeID]bool {
	visited := make(map[NodeID]bool, len(g.nodes))
	stack := append([]NodeID(nil), start...)
	for _, id := range start {
		visited[id] = true
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.edges {
			next := e.to
			if reverse {
				if e.to != id {
					continue
				}
				next = e.from
			} else if e.from != id {
				continue
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return visited
}

// inEdgesLocked returns the node's incoming edges in registration order.
// That order defines the input slice a multi-input processor receives.
func (g *Graph) inEdgesLocked(id NodeID) []*edge {
	var in []*edge
	for _, e := range g.edges {
		if e.to == id {
			in = append(in, e)
		}
	}
	return in
}

// outEdgesLocked returns the node's outgoing edges in registration order.
func (g *Graph) outEdgesLocked(id NodeID) []*edge {
	var out []*edge
	for _, e := range g.edges {
		if e.from == id {
			out = append(out, e)
		}
	}
	return out
}
