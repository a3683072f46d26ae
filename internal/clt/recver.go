package clt

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"
	"weak"

	"github.com/kstaniek/go-wireframe/internal/callback"
	"github.com/kstaniek/go-wireframe/internal/conn"
	"github.com/kstaniek/go-wireframe/internal/frameio"
	"github.com/kstaniek/go-wireframe/internal/metrics"
	"github.com/kstaniek/go-wireframe/internal/poller"
	"github.com/kstaniek/go-wireframe/internal/protocol"
	"github.com/kstaniek/go-wireframe/internal/wire"
)

// CltRecver owns the recv half of a connection and implements
// poller.Pollable so a PollHandler can drive it. It holds only a weak
// reference to the paired CltSender (spec.md §4.H: "does not keep the
// send half alive") — the sender is reachable for protocol auto-replies
// only while something else (the caller, or a CltsPool) still retains it.
// Once the sender is gone, protocol.OnRecv is still called but receives a
// nil sender: there is nothing left to reply through.
type CltRecver[S, R any] struct {
	id     conn.ID
	conn   *net.TCPConn
	reader *frameio.Reader
	msgr   wire.Messenger[S, R]
	cb     callback.RecvCallback[R]
	proto  protocol.Protocol[S, R]
	sender weak.Pointer[CltSender[S, R]]

	lastRecvAt atomic.Int64
	closed     atomic.Bool
	onClose    atomic.Pointer[func(conn.ID)]
}

// SetOnClose installs a hook invoked exactly once, the first time this
// recv half terminates for any reason (EOF, fatal I/O error, or a forced
// Close). A pool-owning Svc uses this to remove the connection from its
// membership without the recver needing to know about pools at all.
func (r *CltRecver[S, R]) SetOnClose(fn func(conn.ID)) {
	r.onClose.Store(&fn)
}

// NewCltRecver constructs the recv half from an already-built frameio.Reader
// (the Clt constructor owns framer/maxBuffered selection).
func NewCltRecver[S, R any](
	id conn.ID,
	c *net.TCPConn,
	reader *frameio.Reader,
	m wire.Messenger[S, R],
	cb callback.RecvCallback[R],
	proto protocol.Protocol[S, R],
	sender *CltSender[S, R],
) *CltRecver[S, R] {
	r := &CltRecver[S, R]{
		id:     id,
		conn:   c,
		reader: reader,
		msgr:   m,
		cb:     cb,
		proto:  proto,
	}
	if sender != nil {
		r.sender = weak.Make(sender)
	}
	r.lastRecvAt.Store(time.Now().UnixNano())
	return r
}

func (r *CltRecver[S, R]) ConID() conn.ID { return r.id }

// LastRecvAt returns the time the most recent complete frame was read from
// the peer, or the recver's construction time if none has been read yet.
// Used by the timer task driving protocol.IsInputTimeout.
func (r *CltRecver[S, R]) LastRecvAt() time.Time {
	return time.Unix(0, r.lastRecvAt.Load())
}

// FD implements poller.Pollable.
func (r *CltRecver[S, R]) FD() (int, error) { return r.reader.FD() }

// OnReadable implements poller.Pollable: it drains every complete frame
// currently available, deserializing and dispatching each to the
// recv-callback and then the protocol, before returning control to the
// poll loop. A WouldBlock from the underlying reader is the normal exit;
// a fatal error (EOF, reset, broken pipe) terminates the recv half and
// signals the poll handler to deregister it (spec.md §8 "at most one
// deregistration per connection").
func (r *CltRecver[S, R]) OnReadable() poller.Status {
	if r.closed.Load() {
		return poller.StatusTerminated
	}
	for {
		frame, status, err := r.reader.ReadFrame()
		if err != nil {
			r.terminate(err)
			return poller.StatusTerminated
		}
		if status == frameio.WouldBlock {
			return poller.StatusCompleted
		}
		if frame == nil {
			// Clean EOF: the peer closed its write half.
			r.terminate(io.EOF)
			return poller.StatusTerminated
		}
		r.lastRecvAt.Store(time.Now().UnixNano())
		msg, err := r.msgr.Deserialize(frame)
		if err != nil {
			// A deserialization failure is a bug or protocol violation:
			// spec.md §7 requires the connection to close, not resync.
			metrics.IncFailed()
			r.terminate(err)
			return poller.StatusTerminated
		}
		metrics.IncRecv()
		if r.cb != nil {
			r.cb.OnRecv(r.id, msg)
		}
		if r.proto != nil {
			if snd := r.sender.Value(); snd != nil {
				r.proto.OnRecv(r.id, msg, snd)
			} else {
				r.proto.OnRecv(r.id, msg, nil)
			}
		}
	}
}

func (r *CltRecver[S, R]) terminate(err error) {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	_ = r.conn.CloseRead()
	if fc, ok := r.cb.(interface{ OnFail(conn.ID, S, error) }); ok && !errors.Is(err, io.EOF) {
		var zero S
		fc.OnFail(r.id, zero, err)
	}
	if fn := r.onClose.Load(); fn != nil {
		(*fn)(r.id)
	}
}

// Closed reports whether the recv half has terminated.
func (r *CltRecver[S, R]) Closed() bool { return r.closed.Load() }

// Close force-closes the recv half, e.g. when the timer task evaluates
// protocol.IsInputTimeout as true (spec.md §5: "evaluate is_input_timeout
// on recv halves"). Idempotent.
func (r *CltRecver[S, R]) Close() error {
	r.terminate(ErrInputTimeout)
	return nil
}
