package bridge

import (
	"context"
	"iter"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Stream forwards every element of a lazy source to the UI loop, in source
// order, followed by one StreamEnd.
type Stream[T any] struct {
	rt      *Runtime
	node    NodeID
	request RequestID

	source func(context.Context) iter.Seq2[T, error]
	onItem func(T) tea.Cmd
	onEnd  func(error) tea.Cmd

	poll  sync.Once
	ended bool
}

func NewStream[T any](rt *Runtime, node NodeID, source func(context.Context) iter.Seq2[T, error], onItem func(T) tea.Cmd, onEnd func(error) tea.Cmd) *Stream[T] {
	return &Stream[T]{
		rt:      rt,
		node:    node,
		request: newRequestID(),
		source:  source,
		onItem:  onItem,
		onEnd:   onEnd,
	}
}

func (s *Stream[T]) ID() RequestID { return s.request }

func (s *Stream[T]) Ended() bool { return s.ended }

func (s *Stream[T]) Cmd() tea.Cmd {
	return func() tea.Msg {
		s.poll.Do(func() {
			s.rt.Spawn(s.run)
		})
		return nil
	}
}

func (s *Stream[T]) run(ctx context.Context) {
	var streamErr error
	for item, err := range s.source(ctx) {
		if err != nil {
			streamErr = err
			break
		}
		s.rt.Send(StreamItem[T]{Node: s.node, Request: s.request, Item: NewEnvelope(item)})
	}
	s.rt.Send(StreamEnd{Node: s.node, Request: s.request, Err: streamErr})
}

// Handle consumes items and the end marker of this stream. It must be called
// from the UI loop.
func (s *Stream[T]) Handle(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case StreamItem[T]:
		if msg.Request != s.request {
			return nil, false
		}
		item, err := msg.Item.Take()
		if err != nil {
			s.rt.log.Error("stream item delivered twice", "node", s.node, "request", s.request, "err", err)
			return nil, true
		}
		if s.ended || s.onItem == nil {
			return nil, true
		}
		return s.onItem(item), true
	case StreamEnd:
		if msg.Request != s.request {
			return nil, false
		}
		if s.ended {
			return nil, true
		}
		s.ended = true
		if s.onEnd == nil {
			return nil, true
		}
		return s.onEnd(msg.Err), true
	}
	return nil, false
}
