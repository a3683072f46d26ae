// Package wire defines the Messenger codec contract: pure serialize and
// deserialize functions for one protocol family. Neither function touches a
// socket; the framework composes a Messenger with a framer.Framer and
// frameio reader/writer to turn bytes into typed messages and back.
package wire

import "errors"

var (
	// ErrSerializationFailure is returned when an encoded message would not
	// fit in the codec's fixed scratch buffer.
	ErrSerializationFailure = errors.New("wire: serialization failure")
	// ErrDeserializationFailure is returned when a frame's bytes are
	// malformed for the configured message type.
	ErrDeserializationFailure = errors.New("wire: deserialization failure")
)

// Messenger is the codec pair for one protocol family. SendMsg and RecvMsg
// are independent type parameters because most protocols are asymmetric
// (e.g. a client sends LoginRequest and receives LoginAccepted).
type Messenger[SendMsg, RecvMsg any] interface {
	// Serialize encodes msg into buf, which is always len(buf) ==
	// MaxMsgSize(), and returns the number of bytes used. It returns
	// ErrSerializationFailure if msg does not fit.
	Serialize(msg SendMsg, buf []byte) (int, error)
	// Deserialize decodes a complete frame (as produced by a matching
	// framer.Framer) into an owned message. frame does not escape the
	// call: implementations that need to retain bytes must copy them.
	Deserialize(frame []byte) (RecvMsg, error)
	// MaxMsgSize bounds the scratch buffer callers must supply to
	// Serialize.
	MaxMsgSize() int
}

// Scratch is a reusable per-sender encode buffer, the Go analogue of the
// spec's fixed-size stack buffer: allocated once per CltSender and reused
// across every Serialize call so steady-state sends are allocation-free.
type Scratch struct {
	buf []byte
}

// NewScratch allocates a reusable buffer sized for a Messenger.
func NewScratch(size int) *Scratch {
	return &Scratch{buf: make([]byte, size)}
}

// Encode serializes msg using m into the scratch buffer and returns the
// used prefix. The returned slice is only valid until the next call to
// Encode on the same Scratch.
func Encode[S, R any](s *Scratch, m Messenger[S, R], msg S) ([]byte, error) {
	if len(s.buf) < m.MaxMsgSize() {
		s.buf = make([]byte, m.MaxMsgSize())
	}
	n, err := m.Serialize(msg, s.buf[:m.MaxMsgSize()])
	if err != nil {
		return nil, err
	}
	return s.buf[:n], nil
}
