// Package soupbin is the shipped example protocol family referenced
// throughout spec.md's end-to-end scenarios: SoupBinTCP's length-prefixed
// framing plus a minimal packet set (Debug, Login*, Heartbeat) sufficient
// to exercise login handshake, heartbeat, and input-timeout behavior
// without pulling in a real order-entry protocol's message catalog.
package soupbin

// Packet type discriminators — the first byte of every SoupBinTCP payload
// (spec.md §6).
const (
	TypeDebug         byte = 'D'
	TypeLoginRequest  byte = 'L'
	TypeLoginAccepted byte = 'A'
	TypeLoginRejected byte = 'J'
	TypeLogoutRequest byte = 'O'
	TypeHeartbeat     byte = 'H'
)

// Packet is the single message type used for both SendMsg and RecvMsg:
// a discriminator byte plus an opaque body, the "trivial Debug payload"
// spec.md's scenarios are built around, generalized just enough to also
// carry login/heartbeat packets.
type Packet struct {
	Type byte
	Body []byte
}

// Debug builds a TypeDebug packet carrying text as its body.
func Debug(text string) Packet { return Packet{Type: TypeDebug, Body: []byte(text)} }

// LoginRequest builds a TypeLoginRequest packet carrying "user\x00pass".
func LoginRequest(user, pass string) Packet {
	return Packet{Type: TypeLoginRequest, Body: []byte(user + "\x00" + pass)}
}

// LoginAccepted builds an empty-body TypeLoginAccepted packet.
func LoginAccepted() Packet { return Packet{Type: TypeLoginAccepted} }

// LoginRejected builds an empty-body TypeLoginRejected packet.
func LoginRejected() Packet { return Packet{Type: TypeLoginRejected} }

// Heartbeat builds an empty-body TypeHeartbeat packet.
func Heartbeat() Packet { return Packet{Type: TypeHeartbeat} }

// Logout builds an empty-body TypeLogoutRequest packet.
func Logout() Packet { return Packet{Type: TypeLogoutRequest} }

// Text returns the body interpreted as a UTF-8 string, for Debug packets.
func (p Packet) Text() string { return string(p.Body) }
