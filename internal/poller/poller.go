// Package poller implements the shared poll handler: a dedicated
// background thread owning an OS readiness selector, driving every
// registered recv-half or acceptor and re-queuing them after each
// readiness event (spec.md §4.K).
//
// The polymorphic poll-item slab described in spec.md §9 ("a closed sum
// type is preferable to open polymorphism since the set of item kinds is
// fixed at two") is realized here as a single Pollable capability
// interface implemented by both internal/clt.CltRecver and internal/svc's
// acceptor — Go has no closed sum types, so the nearest
// idiomatic equivalent is one small interface both halves satisfy.
package poller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/go-wireframe/internal/logging"
	"github.com/kstaniek/go-wireframe/internal/metrics"
)

// Status is returned by OnReadable to tell the poll loop whether the item
// stays registered.
type Status int

const (
	// StatusCompleted means the item made progress (or politely found
	// nothing to do) and should remain registered.
	StatusCompleted Status = iota
	// StatusTerminated means the item hit EOF or a fatal error and must
	// be deregistered and dropped.
	StatusTerminated
)

// Pollable is the capability a poll-item exposes to the PollHandler.
// Once registered, OnReadable is only ever called from the poll-handler's
// own goroutine (spec.md §5's single cross-thread-lock concurrency
// contract); FD is called by Register on the registering goroutine.
type Pollable interface {
	FD() (int, error)
	OnReadable() Status
}

const pollTimeout = 100 * time.Millisecond

type cmdKind int

const (
	cmdRegister cmdKind = iota
	cmdDeregister
)

type command struct {
	kind cmdKind
	fd   int
	item Pollable
}

// PollHandler owns a readiness selector and every registered Pollable.
// Registration and deregistration from other goroutines go through a
// buffered submission queue; the poll thread drains it between selector
// waits, matching spec.md §4.K's "lock-free submission queue" design.
type PollHandler struct {
	Name string

	sel   selector
	items map[int]Pollable

	cmds chan command
	done chan struct{}

	shutdownOnce sync.Once
	wg           sync.WaitGroup

	log *slog.Logger
}

// Spawn starts a PollHandler on a dedicated goroutine. name is used purely
// for logging, mirroring spec.md §6's "Default-RecvPollHandler-Thread".
func Spawn(name string) (*PollHandler, error) {
	sel, err := newSelector()
	if err != nil {
		return nil, err
	}
	p := &PollHandler{
		Name:  name,
		sel:   sel,
		items: make(map[int]Pollable),
		cmds:  make(chan command, 256),
		done:  make(chan struct{}),
		log:   logging.L().With("poller", name),
	}
	p.wg.Add(1)
	go p.loop()
	return p, nil
}

// Register adds a Pollable to the selector. Safe to call from any
// goroutine.
func (p *PollHandler) Register(item Pollable) error {
	fd, err := item.FD()
	if err != nil {
		return err
	}
	select {
	case p.cmds <- command{kind: cmdRegister, fd: fd, item: item}:
		p.sel.wake()
		return nil
	case <-p.done:
		return errClosed
	}
}

// Deregister removes a previously registered Pollable by file descriptor.
// Safe to call from any goroutine; idempotent.
func (p *PollHandler) Deregister(fd int) {
	select {
	case p.cmds <- command{kind: cmdDeregister, fd: fd}:
		p.sel.wake()
	case <-p.done:
	}
}

func (p *PollHandler) loop() {
	defer p.wg.Done()
	for {
		p.drainCommands()

		select {
		case <-p.done:
			p.closeAll()
			return
		default:
		}

		ready, err := p.sel.wait(pollTimeout)
		if err != nil {
			p.log.Warn("poll_wait_error", "error", err)
			continue
		}
		metrics.IncPollIteration()
		for _, fd := range ready {
			item, ok := p.items[fd]
			if !ok {
				continue
			}
			status := p.callOnReadable(item)
			if status == StatusTerminated {
				p.removeLocked(fd)
			}
		}
	}
}

// callOnReadable isolates a single item's panic so one misbehaving
// protocol/callback hook cannot take down the whole poll thread
// (spec.md §7: "per-connection errors never poison peers").
func (p *PollHandler) callOnReadable(item Pollable) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("poll_item_panic", "recovered", r)
			status = StatusTerminated
		}
	}()
	return item.OnReadable()
}

func (p *PollHandler) drainCommands() {
	for {
		select {
		case cmd := <-p.cmds:
			switch cmd.kind {
			case cmdRegister:
				p.items[cmd.fd] = cmd.item
				if err := p.sel.add(cmd.fd); err != nil {
					p.log.Warn("poll_register_error", "fd", cmd.fd, "error", err)
					delete(p.items, cmd.fd)
				}
			case cmdDeregister:
				p.removeLocked(cmd.fd)
			}
		default:
			return
		}
	}
}

func (p *PollHandler) removeLocked(fd int) {
	if _, ok := p.items[fd]; !ok {
		return
	}
	delete(p.items, fd)
	_ = p.sel.remove(fd)
}

func (p *PollHandler) closeAll() {
	for fd := range p.items {
		delete(p.items, fd)
	}
	_ = p.sel.close()
}

// Shutdown signals the poll thread to stop, wakes the selector, and joins
// the goroutine within timeout. Idempotent.
func (p *PollHandler) Shutdown(timeout time.Duration) {
	p.shutdownOnce.Do(func() {
		close(p.done)
		p.sel.wake()
	})
	waited := make(chan struct{})
	go func() { p.wg.Wait(); close(waited) }()
	select {
	case <-waited:
	case <-time.After(timeout):
		p.log.Warn("poll_shutdown_timeout")
	}
}
