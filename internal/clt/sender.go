package clt

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kstaniek/go-wireframe/internal/callback"
	"github.com/kstaniek/go-wireframe/internal/conn"
	"github.com/kstaniek/go-wireframe/internal/frameio"
	"github.com/kstaniek/go-wireframe/internal/metrics"
	"github.com/kstaniek/go-wireframe/internal/protocol"
	"github.com/kstaniek/go-wireframe/internal/wire"
)

// CltSender owns the send half of a connection: its FrameWriter, Messenger,
// and the mutex-protected partial-write state (spec.md §4.H). Senders are
// shared via ordinary pointers — the poll thread (driving protocol.OnRecv
// auto-replies) and arbitrary user goroutines hold the same *CltSender —
// with the mutex linearizing concurrent Send calls (spec.md §5's "no
// reorder" property).
type CltSender[S, R any] struct {
	id      conn.ID
	conn    *net.TCPConn
	writer  *frameio.Writer
	msgr    wire.Messenger[S, R]
	scratch *wire.Scratch
	cb      callback.SendCallback[S]
	proto   protocol.Protocol[S, R]

	mu         sync.Mutex
	closed     bool
	lastSentAt atomic.Int64 // unix nanoseconds; 0 until the first send
}

func newCltSender[S, R any](id conn.ID, c *net.TCPConn, m wire.Messenger[S, R], cb callback.SendCallback[S], proto protocol.Protocol[S, R]) *CltSender[S, R] {
	return &CltSender[S, R]{
		id:      id,
		conn:    c,
		writer:  frameio.NewWriter(c),
		msgr:    m,
		scratch: wire.NewScratch(m.MaxMsgSize()),
		cb:      cb,
		proto:   proto,
	}
}

// ConID returns this connection's identity.
func (s *CltSender[S, R]) ConID() conn.ID { return s.id }

// LastSentAt returns when the last successful send completed, or the zero
// Time if nothing has been sent yet. Used by the heartbeat timer task to
// decide whether the send side has been idle.
func (s *CltSender[S, R]) LastSentAt() time.Time {
	ns := s.lastSentAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Send serializes and writes msg. It acquires the sender's mutex for the
// full duration of the frame write, including any busy-wait, which is what
// gives CltSender its linearized, non-interleaved wire ordering. Send is
// cancel-unsafe once any byte has gone out: callers must not abandon a
// send that has reported partial progress internally (spec.md §4.D) — in
// practice this is invisible to callers because frameio.Writer always
// busy-waits a partial write to completion before Send returns.
func (s *CltSender[S, R]) Send(msg S) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrConnectionClosed
	}
	if s.cb != nil {
		s.cb.OnSend(s.id, &msg)
	}
	buf, err := wire.Encode(s.scratch, s.msgr, msg)
	if err != nil {
		s.closed = true
		_ = s.conn.CloseWrite()
		metrics.IncFailed()
		if s.cb != nil {
			s.cb.OnFail(s.id, msg, err)
		}
		return err
	}
	status, err := s.writer.WriteFrame(buf)
	if err != nil {
		s.closed = true
		metrics.IncFailed()
		if s.cb != nil {
			s.cb.OnFail(s.id, msg, err)
		}
		return err
	}
	if status == frameio.WouldBlock {
		return ErrWouldBlock
	}
	s.lastSentAt.Store(time.Now().UnixNano())
	metrics.IncSent()
	if s.cb != nil {
		s.cb.OnSent(s.id, msg)
	}
	if s.proto != nil {
		s.proto.OnSent(s.id, msg)
	}
	return nil
}

// Close half-closes the write side. Safe to call even if the recv half has
// already observed EOF and closed its own half (spec.md §9: "closing
// either is safe — the other observes EOF/EPIPE").
func (s *CltSender[S, R]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.CloseWrite()
}

// Closed reports whether Close has been called or a send has failed
// fatally.
func (s *CltSender[S, R]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
