package graph

import "github.com/jamesmcarthur-3999/taskerino-sub015/pkg/audio"

// DefaultQueueDepth is the per-edge queue bound used when the graph is
// created without [WithQueueDepth].
const DefaultQueueDepth = 16

// edge is a directed connection between two nodes. Each edge owns exactly
// one bounded FIFO queue; the queue depth never exceeds maxDepth because a
// push onto a full queue is rejected, not grown.
type edge struct {
	from NodeID
	to   NodeID

	buffers  []*audio.Buffer
	maxDepth int
	overflow uint64
}

func newEdge(from, to NodeID, maxDepth int) *edge {
	return &edge{from: from, to: to, maxDepth: maxDepth}
}

// push appends a buffer, reporting false when the queue is full. A rejected
// push counts toward the edge's overflow tally; the caller owns the
// producer-side drop accounting.
func (e *edge) push(buf *audio.Buffer) bool {
	if len(e.buffers) >= e.maxDepth {
		e.overflow++
		return false
	}
	e.buffers = append(e.buffers, buf)
	return true
}

// front returns the oldest queued buffer without removing it.
func (e *edge) front() (*audio.Buffer, bool) {
	if len(e.buffers) == 0 {
		return nil, false
	}
	return e.buffers[0], true
}

// pop removes and returns the oldest queued buffer.
func (e *edge) pop() (*audio.Buffer, bool) {
	if len(e.buffers) == 0 {
		return nil, false
	}
	buf := e.buffers[0]
	e.buffers = e.buffers[1:]
	return buf, true
}

func (e *edge) depth() int { return len(e.buffers) }

func (e *edge) clear() { e.buffers = nil }
