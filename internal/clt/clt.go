// Package clt implements the initiating side of a framed TCP connection
// (spec.md §4.G/§4.H): two-phase connect-then-login, a split Sender/Recver
// pair, and the option to hand the recv half off to a shared poll thread.
package clt

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/kstaniek/go-wireframe/internal/callback"
	"github.com/kstaniek/go-wireframe/internal/conn"
	"github.com/kstaniek/go-wireframe/internal/framer"
	"github.com/kstaniek/go-wireframe/internal/frameio"
	"github.com/kstaniek/go-wireframe/internal/logging"
	"github.com/kstaniek/go-wireframe/internal/poller"
	"github.com/kstaniek/go-wireframe/internal/protocol"
	"github.com/kstaniek/go-wireframe/internal/wire"
)

// Clt is a fully established connection, holding both halves until the
// caller splits or spawns them out. Zero value is not usable; construct
// with Connect.
type Clt[S, R any] struct {
	id     conn.ID
	conn   *net.TCPConn
	Sender *CltSender[S, R]
	Recver *CltRecver[S, R]
}

// ConID returns this connection's identity.
func (c *Clt[S, R]) ConID() conn.ID { return c.id }

// Options configure Connect beyond the required framer/messenger/callback
// triple. The zero value is a usable default (no protocol, unbounded recv
// buffer, name derived from the address).
type Options[S, R any] struct {
	Name        string
	MaxBuffered int // 0 means unbounded, see frameio.NewReader
	Callbacks   callback.Callbacks[S, R]
	Protocol    protocol.Protocol[S, R]
}

// Connect dials addr within connectTimeout, completes TCP establishment,
// invokes Protocol.OnConnect for any login handshake the protocol wants to
// perform, then polls Protocol.IsConnected every retryAfter interval,
// manually pumping the recv half between polls, until either the
// protocol signals readiness or connectTimeout elapses (ErrLoginTimeout).
// Per spec.md §4.G this is a strict two-phase sequence — TCP connect,
// then application handshake — so Connect never returns a Clt whose
// protocol hasn't had the chance to log in. retryAfter is ignored (no
// polling performed) when opts.Protocol is nil, since NopProtocol is
// always considered connected immediately.
func Connect[S, R any](
	ctx context.Context,
	addr string,
	connectTimeout, retryAfter time.Duration,
	f framer.Framer,
	m wire.Messenger[S, R],
	opts Options[S, R],
) (*Clt[S, R], error) {
	deadline := time.Now().Add(connectTimeout)
	dialer := net.Dialer{Timeout: connectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	tc, ok := rawConn.(*net.TCPConn)
	if !ok {
		rawConn.Close()
		return nil, fmt.Errorf("%w: not a tcp connection", ErrConnectFailed)
	}

	name := opts.Name
	if name == "" {
		name = addr
	}
	id := conn.ID{Role: conn.RoleClt, Name: name, Local: tc.LocalAddr(), Peer: tc.RemoteAddr()}

	proto := opts.Protocol
	if proto == nil {
		proto = protocol.NopProtocol[S, R]{Always: true}
	}

	sender := newCltSender(id, tc, m, opts.Callbacks, proto)
	reader := frameio.NewReader(tc, f, opts.MaxBuffered)
	recver := NewCltRecver(id, tc, reader, m, opts.Callbacks, proto, sender)

	proto.OnConnect(sender)

	if retryAfter <= 0 {
		retryAfter = 10 * time.Millisecond
	}
	for !proto.IsConnected(id) {
		if time.Now().After(deadline) {
			tc.Close()
			return nil, fmt.Errorf("%w: %s", ErrLoginTimeout, id.String())
		}
		if recver.OnReadable() == poller.StatusTerminated {
			tc.Close()
			return nil, fmt.Errorf("%w: %s", ErrConnectFailed, id.String())
		}
		select {
		case <-ctx.Done():
			tc.Close()
			return nil, fmt.Errorf("%w: %v", ErrConnectFailed, ctx.Err())
		case <-time.After(retryAfter):
		}
	}

	logging.L().Info("clt_connected", "con_id", id.String())

	return &Clt[S, R]{id: id, conn: tc, Sender: sender, Recver: recver}, nil
}

// NewAccepted builds a sender/recver pair over an already-accepted
// net.TCPConn (spec.md §4.I: the passive side skips the dial phase but
// still completes the same OnConnect handshake hook before the
// connection is handed to its owner). Used by internal/svc's acceptor.
func NewAccepted[S, R any](
	id conn.ID,
	tc *net.TCPConn,
	f framer.Framer,
	m wire.Messenger[S, R],
	opts Options[S, R],
) (*CltSender[S, R], *CltRecver[S, R]) {
	proto := opts.Protocol
	if proto == nil {
		proto = protocol.NopProtocol[S, R]{Always: true}
	}
	sender := newCltSender(id, tc, m, opts.Callbacks, proto)
	reader := frameio.NewReader(tc, f, opts.MaxBuffered)
	recver := NewCltRecver(id, tc, reader, m, opts.Callbacks, proto, sender)
	proto.OnConnect(sender)
	return sender, recver
}

// Split returns the sender and recver halves for the caller to drive
// independently — e.g. a manual read loop instead of a shared poll
// thread. After Split the Clt itself retains no references; closing both
// halves is the caller's responsibility.
func (c *Clt[S, R]) Split() (*CltSender[S, R], *CltRecver[S, R]) {
	sender, recver := c.Sender, c.Recver
	c.Sender = nil
	c.Recver = nil
	return sender, recver
}

// IntoSenderWithSpawnedRecver registers the recv half with ph and returns
// only the sender, discarding Clt's own reference to the recver (spec.md
// §4.H "IntoSenderWithSpawnedRecver consumes Self"). From this point the
// recv half lives entirely on the poll thread; the caller only ever calls
// Send on the returned sender.
func (c *Clt[S, R]) IntoSenderWithSpawnedRecver(ph *poller.PollHandler) (*CltSender[S, R], error) {
	if err := ph.Register(c.Recver); err != nil {
		return nil, fmt.Errorf("clt: register recver: %w", err)
	}
	sender := c.Sender
	c.Sender = nil
	c.Recver = nil
	return sender, nil
}

// CheckHeartbeatAndTimeout evaluates proto's HeartbeatInterval/Heartbeat
// against sender's idle time and IsInputTimeout against recver's idle
// time, closing recver and sender (so sender's next Send returns
// ErrConnectionClosed) if the protocol flags the connection as timed out.
// Intended to be
// scheduled on the shared timer for a standalone Clt that isn't pooled
// by a Svc — internal/svc.Svc.CheckHeartbeatsAndTimeouts does the
// equivalent across an entire pool (spec.md §5).
func CheckHeartbeatAndTimeout[S, R any](sender *CltSender[S, R], recver *CltRecver[S, R], proto protocol.Protocol[S, R]) {
	if interval, ok := proto.HeartbeatInterval(); ok {
		if last := sender.LastSentAt(); last.IsZero() || time.Since(last) >= interval {
			proto.Heartbeat(sender)
		}
	}
	if proto.IsInputTimeout(recver.ConID(), time.Since(recver.LastRecvAt())) {
		_ = recver.Close()
		_ = sender.Close()
	}
}

// Close closes both halves of the underlying connection. Safe to call
// more than once.
func (c *Clt[S, R]) Close() error {
	if c.Sender != nil {
		_ = c.Sender.Close()
	}
	return c.conn.Close()
}
