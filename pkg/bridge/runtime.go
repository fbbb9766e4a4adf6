// Package bridge runs long blocking work off the Bubble Tea loop and delivers
// the results back to it as addressed messages.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/kerbaras/mangetsu/pkg/utils"
)

// Sink receives messages for the UI loop. *tea.Program satisfies it.
type Sink interface {
	Send(msg tea.Msg)
}

// NodeID identifies a UI node that issues requests and receives responses.
type NodeID uint64

// RequestID identifies a single future or stream.
type RequestID uint64

var (
	lastNode    atomic.Uint64
	lastRequest atomic.Uint64
)

func NewNodeID() NodeID {
	return NodeID(lastNode.Add(1))
}

func newRequestID() RequestID {
	return RequestID(lastRequest.Add(1))
}

// Runtime owns the background side of the bridge: a single dispatcher
// draining an unbounded request queue and one goroutine per request.
type Runtime struct {
	log *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	sink    Sink
	pending []func(context.Context)
	signal  chan struct{}

	start sync.Once
	stop  sync.Once
	done  chan struct{}
	tasks sync.WaitGroup
}

func NewRuntime(logger *log.Logger) *Runtime {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		log:    logger.WithPrefix("bridge"),
		ctx:    ctx,
		cancel: cancel,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start attaches the sink and launches the dispatcher. Requests spawned
// before Start wait in the queue. Later calls are ignored.
func (r *Runtime) Start(sink Sink) {
	r.start.Do(func() {
		r.mu.Lock()
		r.sink = sink
		r.mu.Unlock()
		go r.dispatch()
	})
}

// Shutdown cancels the context shared by every request and waits for the
// running ones to return. It is meant for process exit only.
func (r *Runtime) Shutdown() {
	r.stop.Do(func() {
		r.cancel()
		r.start.Do(func() { close(r.done) })
		<-r.done
		r.tasks.Wait()
	})
}

// Spawn queues task. It never blocks.
func (r *Runtime) Spawn(task func(ctx context.Context)) {
	r.mu.Lock()
	r.pending = append(r.pending, task)
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Send delivers msg to the UI loop. Messages sent before Start are dropped.
func (r *Runtime) Send(msg tea.Msg) {
	r.mu.Lock()
	sink := r.sink
	r.mu.Unlock()

	if sink == nil {
		r.log.Debug("dropping message, runtime not started", "msg", msg)
		return
	}
	sink.Send(msg)
}

func (r *Runtime) dispatch() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.signal:
		}

		r.mu.Lock()
		batch := r.pending
		r.pending = nil
		r.mu.Unlock()

		for _, task := range batch {
			r.tasks.Add(1)
			go func() {
				defer r.tasks.Done()
				task(r.ctx)
			}()
		}
	}
}
