// Package svc implements the accepting side of a framed TCP service
// (spec.md §4.I/§4.J): Bind, then PoolAccept into a shared CltsPool driven
// by a poll thread. Svc has no method that accepts a single connection
// outside the pool.
package svc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/kstaniek/go-wireframe/internal/callback"
	"github.com/kstaniek/go-wireframe/internal/clt"
	"github.com/kstaniek/go-wireframe/internal/conn"
	"github.com/kstaniek/go-wireframe/internal/framer"
	"github.com/kstaniek/go-wireframe/internal/logging"
	"github.com/kstaniek/go-wireframe/internal/metrics"
	"github.com/kstaniek/go-wireframe/internal/poller"
	"github.com/kstaniek/go-wireframe/internal/pool"
	"github.com/kstaniek/go-wireframe/internal/protocol"
	"github.com/kstaniek/go-wireframe/internal/wire"
)

// Option configures a Svc, mirroring the teacher's functional-options
// server construction.
type Option[S, R any] func(*Svc[S, R])

// WithName sets the prefix used to mint each accepted connection's ID.
func WithName[S, R any](name string) Option[S, R] {
	return func(s *Svc[S, R]) { s.name = name }
}

// WithMaxConnections bounds how many connections Svc will admit before
// new accepts are rejected and closed immediately (spec.md §4.I:
// "a full pool must not silently drop the listening socket — it keeps
// accepting and rejecting, so the client sees connection-refused-style
// behavior instead of a hang"). Zero means unbounded.
func WithMaxConnections[S, R any](n int) Option[S, R] {
	return func(s *Svc[S, R]) { s.maxConnections = n }
}

// WithCallbacks installs the callback set every accepted connection
// receives.
func WithCallbacks[S, R any](cb callback.Callbacks[S, R]) Option[S, R] {
	return func(s *Svc[S, R]) { s.callbacks = cb }
}

// WithProtocol installs the protocol every accepted connection receives.
// Protocols are assumed safe to share across connections (they receive
// conn.ID on every call and must key any per-connection state off it); a
// factory hook is not needed since protocol.Protocol methods are already
// per-call-ID.
func WithProtocol[S, R any](p protocol.Protocol[S, R]) Option[S, R] {
	return func(s *Svc[S, R]) { s.protocol = p }
}

// WithMaxBuffered bounds each connection's recv accumulator.
func WithMaxBuffered[S, R any](n int) Option[S, R] {
	return func(s *Svc[S, R]) { s.maxBuffered = n }
}

// WithLogger overrides the default package logger.
func WithLogger[S, R any](l *slog.Logger) Option[S, R] {
	return func(s *Svc[S, R]) {
		if l != nil {
			s.logger = l
		}
	}
}

// Svc owns a TCP listener and the framer/messenger pair every accepted
// connection uses.
type Svc[S, R any] struct {
	mu sync.RWMutex

	addr   string
	name   string
	framer framer.Framer
	msgr   wire.Messenger[S, R]

	maxConnections int
	maxBuffered    int
	callbacks      callback.Callbacks[S, R]
	protocol       protocol.Protocol[S, R]

	listener  *net.TCPListener
	readyCh   chan struct{}
	readyOnce sync.Once

	pool *pool.CltsPool[S, R]

	totalAccepted uint64
	totalRejected uint64
	nextConnID    uint64

	logger *slog.Logger
}

// New constructs an unbound Svc. f and m are shared by every accepted
// connection.
func New[S, R any](f framer.Framer, m wire.Messenger[S, R], opts ...Option[S, R]) *Svc[S, R] {
	s := &Svc[S, R]{
		framer:  f,
		msgr:    m,
		readyCh: make(chan struct{}),
		pool:    pool.NewCltsPool[S, R](),
		logger:  logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.name == "" {
		s.name = "svc"
	}
	return s
}

// Pool exposes the CltsPool every accepted connection is registered
// into, for a caller that wants to broadcast or round-robin send.
func (s *Svc[S, R]) Pool() *pool.CltsPool[S, R] { return s.pool }

// Ready closes once Bind has a live listener.
func (s *Svc[S, R]) Ready() <-chan struct{} { return s.readyCh }

// Addr returns the bound address; empty until Bind succeeds.
func (s *Svc[S, R]) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Bind opens the listening socket. It does not itself accept — call
// PoolAccept afterward.
func (s *Svc[S, R]) Bind(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(metrics.ErrAccept)
		return wrapped
	}
	tln, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return fmt.Errorf("%w: not a tcp listener", ErrListen)
	}
	s.mu.Lock()
	s.listener = tln
	s.addr = tln.Addr().String()
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("svc_bound", "addr", s.addr)
	go func() { <-ctx.Done(); _ = tln.Close() }()
	return nil
}

// PoolAccept registers a non-blocking acceptor with ph: every accepted
// connection is built via clt.NewAccepted and added to Svc's CltsPool,
// with its recv half registered into the same ph so the whole service
// runs on one poll thread (spec.md §4.J).
func (s *Svc[S, R]) PoolAccept(ph *poller.PollHandler) error {
	s.mu.RLock()
	ln := s.listener
	s.mu.RUnlock()
	if ln == nil {
		return fmt.Errorf("%w: not bound", ErrListen)
	}
	a := newAcceptor(ln, func(tc *net.TCPConn) { s.onAccepted(ph, tc) })
	if err := ph.Register(a); err != nil {
		return fmt.Errorf("svc: register acceptor: %w", err)
	}
	return nil
}

func (s *Svc[S, R]) onAccepted(ph *poller.PollHandler, tc *net.TCPConn) {
	s.mu.RLock()
	maxConn := s.maxConnections
	s.mu.RUnlock()

	if maxConn > 0 && s.pool.Len() >= maxConn {
		s.totalRejected++
		metrics.IncRejected()
		s.logger.Warn("svc_reject_pool_full", "max_connections", maxConn)
		_ = tc.Close()
		return
	}

	s.nextConnID++
	id := conn.ID{Role: conn.RoleSvc, Name: fmt.Sprintf("%s-%d", s.name, s.nextConnID), Local: tc.LocalAddr(), Peer: tc.RemoteAddr()}

	opts := clt.Options[S, R]{
		Name:        id.Name,
		MaxBuffered: s.maxBuffered,
		Callbacks:   s.callbacks,
		Protocol:    s.protocol,
	}
	sender, recver := clt.NewAccepted(id, tc, s.framer, s.msgr, opts)
	recver.SetOnClose(func(closedID conn.ID) { s.Remove(closedID) })
	s.pool.Add(sender, recver)
	s.totalAccepted++
	metrics.IncAccepted()
	metrics.SetPoolSize(s.name, s.pool.Len())
	s.logger.Info("svc_accepted", "con_id", id.String())

	if err := ph.Register(recver); err != nil {
		s.logger.Warn("svc_register_recver_failed", "con_id", id.String(), "error", err)
		s.pool.Remove(id)
		_ = tc.Close()
		return
	}
}

// CheckHeartbeatsAndTimeouts evaluates the installed protocol's
// HeartbeatInterval/Heartbeat against every pooled sender's idle time,
// and IsInputTimeout against every pooled recver's idle time, closing
// (and thereby deregistering, via the recver's OnClose hook) any
// connection the protocol flags as timed out. Intended to be scheduled
// on the shared heartbeat Timer at a sub-interval of whatever the
// protocol configures (spec.md §5).
func (s *Svc[S, R]) CheckHeartbeatsAndTimeouts() {
	s.mu.RLock()
	proto := s.protocol
	s.mu.RUnlock()
	if proto == nil {
		return
	}
	if interval, ok := proto.HeartbeatInterval(); ok {
		s.pool.Senders.Each(func(snd *clt.CltSender[S, R]) bool {
			if last := snd.LastSentAt(); last.IsZero() || time.Since(last) >= interval {
				proto.Heartbeat(snd)
				metrics.IncHeartbeat()
			}
			return true
		})
	}
	s.pool.Recvers.Each(func(rcv *clt.CltRecver[S, R]) bool {
		idle := time.Since(rcv.LastRecvAt())
		if proto.IsInputTimeout(rcv.ConID(), idle) {
			metrics.IncInputTimeout()
			_ = rcv.Close()
		}
		return true
	})
}

// Remove drops a connection from Svc's pool, e.g. after its recv half
// deregisters on EOF. A caller driving its own poll loop is responsible
// for calling this from its deregistration hook.
func (s *Svc[S, R]) Remove(id conn.ID) {
	s.pool.Remove(id)
	metrics.IncClosed()
	metrics.SetPoolSize(s.name, s.pool.Len())
}

// Shutdown closes the listener and half-closes the write side of every
// pooled connection; each sender's Close waits for that sender's
// in-flight Send to return. The recv halves are not closed and stay
// registered with their poll handler. timeout is not used.
func (s *Svc[S, R]) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	s.pool.Senders.Each(func(snd *clt.CltSender[S, R]) bool {
		_ = snd.Close()
		return true
	})
	s.logger.Info("svc_shutdown", "accepted", s.totalAccepted, "rejected", s.totalRejected)
	return nil
}
