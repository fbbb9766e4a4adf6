package bridge

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Future is a one-shot request. The task runs on the runtime the first time
// the command returned by Cmd is executed; its result comes back as a
// Response that Handle turns into a single call of the continuation.
type Future[T any] struct {
	rt      *Runtime
	node    NodeID
	request RequestID

	task func(context.Context) (T, error)
	then func(Result[T]) tea.Cmd

	poll sync.Once
	done bool
}

func NewFuture[T any](rt *Runtime, node NodeID, task func(context.Context) (T, error), then func(Result[T]) tea.Cmd) *Future[T] {
	return &Future[T]{
		rt:      rt,
		node:    node,
		request: newRequestID(),
		task:    task,
		then:    then,
	}
}

func (f *Future[T]) ID() RequestID { return f.request }

func (f *Future[T]) Node() NodeID { return f.node }

// Done reports whether the continuation has run.
func (f *Future[T]) Done() bool { return f.done }

// Cmd starts the request. Only the first execution enqueues work.
func (f *Future[T]) Cmd() tea.Cmd {
	return func() tea.Msg {
		f.poll.Do(func() {
			f.rt.Spawn(f.run)
		})
		return nil
	}
}

func (f *Future[T]) run(ctx context.Context) {
	value, err := f.task(ctx)
	f.rt.Send(Response[T]{
		Node:    f.node,
		Request: f.request,
		Result:  NewEnvelope(Result[T]{Value: value, Err: err}),
	})
}

// Handle consumes msg if it is this future's response. It must be called from
// the UI loop. A response that was already taken is reported as handled,
// logged as an error and does not run the continuation again.
func (f *Future[T]) Handle(msg tea.Msg) (tea.Cmd, bool) {
	resp, ok := msg.(Response[T])
	if !ok || resp.Request != f.request {
		return nil, false
	}
	result, err := resp.Result.Take()
	if err != nil {
		f.rt.log.Error("response delivered twice", "node", f.node, "request", f.request, "err", err)
		return nil, true
	}
	if f.done {
		return nil, true
	}
	f.done = true
	if f.then == nil {
		return nil, true
	}
	return f.then(result), true
}
