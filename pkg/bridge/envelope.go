package bridge

import (
	"errors"
	"sync/atomic"
)

// ErrConsumed is returned when a payload is taken a second time.
var ErrConsumed = errors.New("bridge: payload already taken")

type Result[T any] struct {
	Value T
	Err   error
}

// Envelope hands its payload out exactly once. Messages are copied by value
// through the loop; the envelope is shared, so only one copy can take it.
type Envelope[T any] struct {
	taken   atomic.Bool
	payload T
}

func NewEnvelope[T any](payload T) *Envelope[T] {
	return &Envelope[T]{payload: payload}
}

func (e *Envelope[T]) Take() (T, error) {
	var zero T
	if e == nil || e.taken.Swap(true) {
		return zero, ErrConsumed
	}
	return e.payload, nil
}

// Addressed is implemented by every message that belongs to a node.
type Addressed interface {
	Target() NodeID
}

// Response completes a Future.
type Response[T any] struct {
	Node    NodeID
	Request RequestID
	Result  *Envelope[Result[T]]
}

func (r Response[T]) Target() NodeID { return r.Node }

// StreamItem carries one element of a Stream.
type StreamItem[T any] struct {
	Node    NodeID
	Request RequestID
	Item    *Envelope[T]
}

func (s StreamItem[T]) Target() NodeID { return s.Node }

// StreamEnd follows the last item of a stream. Err is the error that stopped
// it, nil when the source was exhausted.
type StreamEnd struct {
	Node    NodeID
	Request RequestID
	Err     error
}

func (s StreamEnd) Target() NodeID { return s.Node }
