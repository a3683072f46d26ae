package soupbin

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kstaniek/go-wireframe/internal/conn"
	"github.com/kstaniek/go-wireframe/internal/protocol"
)

// ClientProtocol is the shipped example protocol for the initiating side
// of a SoupBinTCP connection. It drives spec.md's S2 (login), S3
// (heartbeat), and S6 (input timeout) scenarios through a handful of
// configuration knobs rather than separate types, since all three are
// the same small state machine with different thresholds turned on.
type ClientProtocol struct {
	// User/Pass are sent in a LoginRequest when LoginRequired is true.
	User, Pass string
	// LoginRequired, if false, marks the connection ready immediately on
	// TCP establishment (no handshake).
	LoginRequired bool
	// HeartbeatEvery, if positive, is the idle-send interval after which
	// the framework's timer invokes Heartbeat.
	HeartbeatEvery time.Duration
	// InputTimeout, if positive, is the idle-recv interval after which
	// IsInputTimeout reports true and the connection is torn down.
	InputTimeout time.Duration
	// OnDebug, if set, is invoked for every received TypeDebug packet —
	// e.g. to record it for a test's assertions.
	OnDebug func(id conn.ID, text string)

	connected atomic.Bool
}

func (p *ClientProtocol) OnConnect(sender protocol.Sender[Packet]) {
	if !p.LoginRequired {
		p.connected.Store(true)
		return
	}
	_ = sender.Send(LoginRequest(p.User, p.Pass))
}

func (p *ClientProtocol) OnRecv(id conn.ID, msg Packet, sender protocol.Sender[Packet]) {
	switch msg.Type {
	case TypeLoginAccepted:
		p.connected.Store(true)
	case TypeDebug:
		if p.OnDebug != nil {
			p.OnDebug(id, msg.Text())
		}
	}
}

func (p *ClientProtocol) OnSent(conn.ID, Packet) {}

func (p *ClientProtocol) IsConnected(conn.ID) bool { return p.connected.Load() }

func (p *ClientProtocol) HeartbeatInterval() (time.Duration, bool) {
	if p.HeartbeatEvery <= 0 {
		return 0, false
	}
	return p.HeartbeatEvery, true
}

func (p *ClientProtocol) Heartbeat(sender protocol.Sender[Packet]) {
	_ = sender.Send(Heartbeat())
}

func (p *ClientProtocol) IsInputTimeout(_ conn.ID, idleSince time.Duration) bool {
	if p.InputTimeout <= 0 {
		return false
	}
	return idleSince > p.InputTimeout
}

// session is ServerProtocol's per-connection state.
type session struct {
	connected atomic.Bool
}

// ServerProtocol is the shipped example protocol for the accepting side.
// One instance is shared by every connection a Svc accepts, so unlike
// ClientProtocol its per-connection state is keyed by conn.ID.
type ServerProtocol struct {
	// Echo, if true, replies to every TypeDebug packet with the same
	// packet (spec.md S1).
	Echo bool
	// AutoAcceptLogin, if true, accepts every LoginRequest unconditionally
	// and replies LoginAccepted (spec.md S2). If false, the connection is
	// considered connected immediately, matching ClientProtocol's
	// LoginRequired=false default.
	AutoAcceptLogin bool
	HeartbeatEvery  time.Duration
	InputTimeout    time.Duration

	sessions sync.Map // conn.ID -> *session
}

func (p *ServerProtocol) sessionFor(id conn.ID) *session {
	v, _ := p.sessions.LoadOrStore(id, &session{})
	return v.(*session)
}

func (p *ServerProtocol) OnConnect(protocol.Sender[Packet]) {}

func (p *ServerProtocol) OnRecv(id conn.ID, msg Packet, sender protocol.Sender[Packet]) {
	st := p.sessionFor(id)
	switch msg.Type {
	case TypeLoginRequest:
		if p.AutoAcceptLogin {
			st.connected.Store(true)
			_ = sender.Send(LoginAccepted())
		}
	case TypeDebug:
		if p.Echo {
			_ = sender.Send(msg)
		}
	}
}

func (p *ServerProtocol) OnSent(conn.ID, Packet) {}

func (p *ServerProtocol) IsConnected(id conn.ID) bool {
	if !p.AutoAcceptLogin {
		return true
	}
	return p.sessionFor(id).connected.Load()
}

func (p *ServerProtocol) HeartbeatInterval() (time.Duration, bool) {
	if p.HeartbeatEvery <= 0 {
		return 0, false
	}
	return p.HeartbeatEvery, true
}

func (p *ServerProtocol) Heartbeat(sender protocol.Sender[Packet]) {
	_ = sender.Send(Heartbeat())
}

func (p *ServerProtocol) IsInputTimeout(_ conn.ID, idleSince time.Duration) bool {
	if p.InputTimeout <= 0 {
		return false
	}
	return idleSince > p.InputTimeout
}
