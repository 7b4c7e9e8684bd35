package audio

import (
	"errors"
	"fmt"
)

// Kind classifies an [Error] into the closed taxonomy every public graph
// operation reports through. Calling code switches on the kind — via
// [IsKind] or [KindOf] — rather than matching message text.
type Kind int

const (
	// KindUnknown is the zero value; it never appears on errors produced by
	// this module.
	KindUnknown Kind = iota

	// KindDevice indicates capture or output hardware failure.
	KindDevice

	// KindFormat indicates incompatible formats between connected nodes.
	KindFormat

	// KindConfiguration indicates invalid construction parameters.
	KindConfiguration

	// KindNotReady indicates an operation attempted before its prerequisite
	// state, e.g. starting a graph with no reachable sink.
	KindNotReady

	// KindInvalidState indicates a lifecycle contract violation, e.g.
	// double-start or writing to a closed sink.
	KindInvalidState

	// KindBuffer indicates an overflow or underflow surfaced explicitly.
	KindBuffer

	// KindProcessing indicates a processor's transform failed.
	KindProcessing

	// KindIO indicates a sink persistence failure.
	KindIO

	// KindTimeout indicates a bounded operation exceeded its deadline.
	KindTimeout

	// KindCycle indicates a connection that would make the graph cyclic.
	KindCycle

	// KindInUse indicates removal of a node that still has edges attached.
	KindInUse
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindFormat:
		return "format"
	case KindConfiguration:
		return "configuration"
	case KindNotReady:
		return "not_ready"
	case KindInvalidState:
		return "invalid_state"
	case KindBuffer:
		return "buffer"
	case KindProcessing:
		return "processing"
	case KindIO:
		return "io"
	case KindTimeout:
		return "timeout"
	case KindCycle:
		return "cycle_detected"
	case KindInUse:
		return "in_use"
	default:
		return "unknown"
	}
}

// Error is the error type produced by all audiograph components. Node is the
// name of the node the error originated from, when known.
type Error struct {
	Kind Kind
	Node string
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Node != "" {
		s += " [" + e.Node + "]"
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Errf creates an [Error] of the given kind with a formatted message.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NodeErrf creates an [Error] attributed to the named node.
func NodeErrf(kind Kind, node, format string, args ...any) *Error {
	return &Error{Kind: kind, Node: node, Msg: fmt.Sprintf(format, args...)}
}

// WrapErr wraps an underlying cause in an [Error] of the given kind.
func WrapErr(kind Kind, node string, err error) *Error {
	return &Error{Kind: kind, Node: node, Err: err}
}

// KindOf returns the kind of the first [Error] in err's chain, or
// [KindUnknown] when the chain contains none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain contains an [Error] of the given kind.
func IsKind(err error, kind Kind) bool {
	for {
		var ae *Error
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Kind == kind {
			return true
		}
		err = ae.Err
	}
}
