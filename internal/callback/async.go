package callback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-wireframe/internal/conn"
)

// ErrAsyncClosed identifies a closed async dispatcher. AsyncRecv.OnRecv
// has no return value and does not return it: after Close, OnRecv
// discards the event.
var ErrAsyncClosed = errors.New("callback: async dispatcher closed")

// AsyncHooks customize AsyncRecv's behavior without it taking a dependency
// on any particular metrics or logging package.
type AsyncHooks struct {
	// OnError is called when the wrapped RecvCallback's OnRecv panics;
	// recovered and reported here instead of crashing the poll thread.
	OnError func(error)
	// OnDrop is called when the queue is full; its returned error is
	// ignored by OnRecv. A nil Hooks.OnDrop makes
	// a full queue a silent drop — appropriate for a callback that's
	// observational only (metrics, logging) and must never apply
	// backpressure to the poll thread.
	OnDrop func() error
}

type asyncEvent[R any] struct {
	id  conn.ID
	msg R
}

// AsyncRecv funnels OnRecv invocations through a single background
// goroutine so a slow callback (one that writes to disk, a remote
// collector, or anything else that can stall) never blocks the poll
// thread that's driving every connection's recv half (spec.md §9: "a
// misbehaving callback must not poison other connections"). Grounded on
// the teacher's AsyncTx fan-in transmitter — same bounded-channel,
// single-worker, drop-on-full shape, generalized from can.Frame to any
// recv message type.
type AsyncRecv[R any] struct {
	mu     sync.Mutex
	ch     chan asyncEvent[R]
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	next   RecvCallback[R]
	hooks  AsyncHooks
	closed atomic.Bool
}

// NewAsyncRecv wraps next so its OnRecv runs on a dedicated goroutine,
// fed through a channel of the given buffer size.
func NewAsyncRecv[R any](parent context.Context, buf int, next RecvCallback[R], hooks AsyncHooks) *AsyncRecv[R] {
	ctx, cancel := context.WithCancel(parent)
	a := &AsyncRecv[R]{
		ch:     make(chan asyncEvent[R], buf),
		ctx:    ctx,
		cancel: cancel,
		next:   next,
		hooks:  hooks,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *AsyncRecv[R]) loop() {
	defer a.wg.Done()
	for {
		select {
		case ev, ok := <-a.ch:
			if !ok {
				return
			}
			a.deliver(ev)
		case <-a.ctx.Done():
			for {
				select {
				case ev := <-a.ch:
					a.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (a *AsyncRecv[R]) deliver(ev asyncEvent[R]) {
	defer func() {
		if r := recover(); r != nil && a.hooks.OnError != nil {
			a.hooks.OnError(errors.New("callback: recovered panic in async recv"))
		}
	}()
	a.next.OnRecv(ev.id, ev.msg)
}

// OnRecv implements RecvCallback by enqueuing; it never blocks the
// caller (the poll thread) even when the queue is full.
func (a *AsyncRecv[R]) OnRecv(id conn.ID, msg R) {
	if a.closed.Load() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return
	}
	select {
	case a.ch <- asyncEvent[R]{id: id, msg: msg}:
	default:
		if a.hooks.OnDrop != nil {
			_ = a.hooks.OnDrop()
		}
	}
}

// Close stops the worker and waits for any already-queued event to
// finish delivering.
func (a *AsyncRecv[R]) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.cancel()
	a.wg.Wait()
}
