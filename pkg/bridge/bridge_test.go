package bridge

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSink chan tea.Msg

func (c chanSink) Send(msg tea.Msg) { c <- msg }

func (c chanSink) next(t *testing.T) tea.Msg {
	t.Helper()
	select {
	case msg := <-c:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func startRuntime(t *testing.T) (*Runtime, chanSink) {
	t.Helper()
	sink := make(chanSink, 64)
	rt := NewRuntime(nil)
	rt.Start(sink)
	t.Cleanup(rt.Shutdown)
	return rt, sink
}

func TestEnvelopeTakeOnce(t *testing.T) {
	env := NewEnvelope("payload")

	v, err := env.Take()
	require.NoError(t, err)
	assert.Equal(t, "payload", v)

	v, err = env.Take()
	assert.ErrorIs(t, err, ErrConsumed)
	assert.Empty(t, v)
}

func TestFutureDeliversResultOnce(t *testing.T) {
	rt, sink := startRuntime(t)
	node := NewNodeID()

	var calls atomic.Int32
	var continued []Result[int]
	f := NewFuture(rt, node, func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 42, nil
	}, func(r Result[int]) tea.Cmd {
		continued = append(continued, r)
		return nil
	})

	cmd := f.Cmd()
	assert.Nil(t, cmd())
	assert.Nil(t, cmd(), "second poll does not enqueue again")

	msg := sink.next(t)
	resp, ok := msg.(Response[int])
	require.True(t, ok)
	assert.Equal(t, node, resp.Target())
	assert.Equal(t, f.ID(), resp.Request)

	_, handled := f.Handle(msg)
	assert.True(t, handled)
	_, handled = f.Handle(msg)
	assert.True(t, handled, "replayed response is recognised but not re-run")

	require.Len(t, continued, 1)
	assert.Equal(t, 42, continued[0].Value)
	assert.NoError(t, continued[0].Err)
	assert.True(t, f.Done())
	assert.Equal(t, int32(1), calls.Load())

	select {
	case extra := <-sink:
		t.Fatalf("unexpected message %#v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSecondTakeIsLogged(t *testing.T) {
	var buf bytes.Buffer
	rt := NewRuntime(log.New(&buf))
	node := NewNodeID()

	runs := 0
	f := NewFuture(rt, node, func(ctx context.Context) (int, error) {
		return 0, nil
	}, func(r Result[int]) tea.Cmd {
		runs++
		return nil
	})
	resp := Response[int]{Node: node, Request: f.ID(), Result: NewEnvelope(Result[int]{Value: 7})}

	_, handled := f.Handle(resp)
	require.True(t, handled)
	assert.Empty(t, buf.String())

	_, handled = f.Handle(resp)
	assert.True(t, handled)
	assert.Equal(t, 1, runs)
	assert.Contains(t, buf.String(), "response delivered twice")

	buf.Reset()
	var items []string
	s := NewStream(rt, node, func(ctx context.Context) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {}
	}, func(v string) tea.Cmd {
		items = append(items, v)
		return nil
	}, nil)
	item := StreamItem[string]{Node: node, Request: s.ID(), Item: NewEnvelope("page")}

	s.Handle(item)
	_, handled = s.Handle(item)
	assert.True(t, handled)
	assert.Equal(t, []string{"page"}, items)
	assert.Contains(t, buf.String(), "stream item delivered twice")
}

func TestFutureCarriesError(t *testing.T) {
	rt, sink := startRuntime(t)
	boom := errors.New("boom")

	var got error
	f := NewFuture(rt, NewNodeID(), func(ctx context.Context) (string, error) {
		return "", boom
	}, func(r Result[string]) tea.Cmd {
		got = r.Err
		return nil
	})
	f.Cmd()()

	_, handled := f.Handle(sink.next(t))
	assert.True(t, handled)
	assert.ErrorIs(t, got, boom)
}

func TestFutureIgnoresOtherResponses(t *testing.T) {
	rt, _ := startRuntime(t)
	f := NewFuture(rt, NewNodeID(), func(ctx context.Context) (int, error) { return 1, nil }, nil)

	other := Response[int]{Request: f.ID() + 1000, Result: NewEnvelope(Result[int]{Value: 2})}
	_, handled := f.Handle(other)
	assert.False(t, handled)

	_, handled = f.Handle(Response[string]{Request: f.ID()})
	assert.False(t, handled, "type must match too")

	_, handled = f.Handle(tea.KeyMsg{})
	assert.False(t, handled)
}

func TestFutureContinuationCmd(t *testing.T) {
	rt, sink := startRuntime(t)
	type doneMsg struct{}

	f := NewFuture(rt, NewNodeID(), func(ctx context.Context) (int, error) { return 1, nil },
		func(r Result[int]) tea.Cmd {
			return func() tea.Msg { return doneMsg{} }
		})
	f.Cmd()()

	cmd, handled := f.Handle(sink.next(t))
	require.True(t, handled)
	require.NotNil(t, cmd)
	assert.Equal(t, doneMsg{}, cmd())
}

func TestStreamPreservesOrderAndEnds(t *testing.T) {
	rt, sink := startRuntime(t)
	node := NewNodeID()

	var items []int
	var endErr error
	ended := 0
	s := NewStream(rt, node, func(ctx context.Context) iter.Seq2[int, error] {
		return func(yield func(int, error) bool) {
			for i := range 20 {
				if !yield(i, nil) {
					return
				}
			}
		}
	}, func(v int) tea.Cmd {
		items = append(items, v)
		return nil
	}, func(err error) tea.Cmd {
		ended++
		endErr = err
		return nil
	})
	s.Cmd()()

	for !s.Ended() {
		msg := sink.next(t)
		_, handled := s.Handle(msg)
		require.True(t, handled)
	}

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, items)
	assert.Equal(t, 1, ended)
	assert.NoError(t, endErr)
}

func TestStreamStopsAtFirstError(t *testing.T) {
	rt, sink := startRuntime(t)
	boom := errors.New("boom")

	var produced atomic.Int32
	var items []string
	var endErr error
	s := NewStream(rt, NewNodeID(), func(ctx context.Context) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			produced.Add(1)
			if !yield("a", nil) {
				return
			}
			produced.Add(1)
			if !yield("", boom) {
				return
			}
			produced.Add(1)
			yield("never", nil)
		}
	}, func(v string) tea.Cmd {
		items = append(items, v)
		return nil
	}, func(err error) tea.Cmd {
		endErr = err
		return nil
	})
	s.Cmd()()

	for !s.Ended() {
		s.Handle(sink.next(t))
	}
	assert.Equal(t, []string{"a"}, items)
	assert.ErrorIs(t, endErr, boom)
	assert.Equal(t, int32(2), produced.Load())
}

func TestStreamIgnoresForeignMessages(t *testing.T) {
	rt, _ := startRuntime(t)
	s := NewStream[int](rt, NewNodeID(), nil, nil, nil)

	_, handled := s.Handle(StreamEnd{Request: s.ID() + 1})
	assert.False(t, handled)
	_, handled = s.Handle(StreamItem[string]{Request: s.ID()})
	assert.False(t, handled)
	assert.False(t, s.Ended())
}

func TestRouterDropsUnmountedNodes(t *testing.T) {
	r := NewRouter()
	mounted, gone := NewNodeID(), NewNodeID()
	r.Mount(mounted)
	r.Mount(gone)
	r.Unmount(gone)

	assert.True(t, r.Accept(Response[int]{Node: mounted}))
	assert.False(t, r.Accept(Response[int]{Node: gone}))
	assert.False(t, r.Accept(StreamEnd{Node: gone}))
	assert.True(t, r.Accept(tea.KeyMsg{}), "unaddressed messages always pass")
}

func TestRuntimeQueuesUntilStarted(t *testing.T) {
	rt := NewRuntime(nil)
	t.Cleanup(rt.Shutdown)

	ran := make(chan struct{})
	rt.Spawn(func(ctx context.Context) { close(ran) })

	select {
	case <-ran:
		t.Fatal("task ran before Start")
	case <-time.After(50 * time.Millisecond):
	}

	rt.Start(make(chanSink, 1))
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestRuntimeShutdownCancelsTasks(t *testing.T) {
	rt := NewRuntime(nil)
	rt.Start(make(chanSink, 1))

	started := make(chan struct{})
	var cancelled atomic.Bool
	rt.Spawn(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})
	<-started

	rt.Shutdown()
	assert.True(t, cancelled.Load())
	rt.Shutdown()
}

func TestRuntimeSendBeforeStartIsDropped(t *testing.T) {
	rt := NewRuntime(nil)
	defer rt.Shutdown()
	assert.NotPanics(t, func() { rt.Send("hello") })
}
