// Package protocol defines the session-layer hooks layered over the wire
// layer (spec.md §4.G): login/logout handshake, heartbeat send/expect, and
// conditional auto-replies, all driven from the poll thread and therefore
// contractually forbidden from blocking I/O.
package protocol

import (
	"time"

	"github.com/kstaniek/go-wireframe/internal/conn"
)

// Sender is the capability a Protocol needs to originate messages — most
// commonly auto-replies from inside OnRecv (e.g. a heartbeat echo or
// LoginAccepted). internal/clt.CltSender implements this.
type Sender[S any] interface {
	Send(msg S) error
	ConID() conn.ID
}

// Protocol is the session-layer trait a user supplies per connection.
// OnRecv runs on the poll thread (or on Clt.Connect's caller goroutine
// while Connect pumps the recv half before registration); OnConnect runs
// on Connect's caller goroutine, or on the poll thread for accepted
// connections; OnSent runs on whichever goroutine called Send;
// HeartbeatInterval, Heartbeat and IsInputTimeout run on whichever
// goroutine drives the heartbeat sweep. No method may perform blocking
// I/O (spec.md §9).
type Protocol[S, R any] interface {
	// OnConnect fires immediately after TCP establishment, before any
	// bytes are read. Typical use: send a LoginRequest.
	OnConnect(sender Sender[S])
	// OnRecv drives the session state machine for one inbound message; it
	// may send replies via sender.
	OnRecv(id conn.ID, msg R, sender Sender[S])
	// OnSent updates send-side heartbeat bookkeeping after a successful
	// write.
	OnSent(id conn.ID, msg S)
	// IsConnected reports whether the session is fully ready (login
	// handshake complete).
	IsConnected(id conn.ID) bool
	// HeartbeatInterval returns the recurring heartbeat period and true if
	// this protocol emits heartbeats when the send side is idle.
	HeartbeatInterval() (time.Duration, bool)
	// Heartbeat is invoked by the timer when the send side has been idle
	// for HeartbeatInterval; it should send the protocol's heartbeat
	// message via sender.
	Heartbeat(sender Sender[S])
	// IsInputTimeout reports whether idleSince (time since the last
	// complete frame was read from the peer) should trigger a disconnect.
	IsInputTimeout(id conn.ID, idleSince time.Duration) bool
}

// NopProtocol is a Protocol that never logs in, never times out, and
// never heartbeats — useful as a test fixture or for simple fire-and-forget
// peers that need no session layer (analogous to callback.DevNull).
type NopProtocol[S, R any] struct {
	// Always is returned by IsConnected; default false.
	Always bool
}

func (NopProtocol[S, R]) OnConnect(Sender[S])                         {}
func (NopProtocol[S, R]) OnRecv(conn.ID, R, Sender[S])                {}
func (NopProtocol[S, R]) OnSent(conn.ID, S)                           {}
func (p NopProtocol[S, R]) IsConnected(conn.ID) bool                  { return p.Always }
func (NopProtocol[S, R]) HeartbeatInterval() (time.Duration, bool)    { return 0, false }
func (NopProtocol[S, R]) Heartbeat(Sender[S])                         {}
func (NopProtocol[S, R]) IsInputTimeout(conn.ID, time.Duration) bool  { return false }
