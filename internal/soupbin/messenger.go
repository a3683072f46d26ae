package soupbin

import (
	"encoding/binary"

	"github.com/kstaniek/go-wireframe/internal/framer"
	"github.com/kstaniek/go-wireframe/internal/wire"
)

// Messenger is the wire.Messenger for Packet. Serialize produces the full
// on-wire representation — the 2-byte big-endian length prefix plus the
// type-discriminated payload — since frameio.Writer treats whatever
// Serialize returns as one opaque frame (spec.md §6).
type Messenger struct {
	// Max bounds the total frame size (header + type byte + body).
	Max int
}

// NewMessenger returns a Messenger bounding frames to maxFrameSize bytes.
func NewMessenger(maxFrameSize int) Messenger { return Messenger{Max: maxFrameSize} }

func (m Messenger) Serialize(msg Packet, buf []byte) (int, error) {
	total := 2 + 1 + len(msg.Body)
	if total > len(buf) || (m.Max > 0 && total > m.Max) {
		return 0, wire.ErrSerializationFailure
	}
	binary.BigEndian.PutUint16(buf[0:2], uint16(1+len(msg.Body)))
	buf[2] = msg.Type
	copy(buf[3:total], msg.Body)
	return total, nil
}

func (m Messenger) Deserialize(frame []byte) (Packet, error) {
	if len(frame) < 3 {
		return Packet{}, wire.ErrDeserializationFailure
	}
	body := make([]byte, len(frame)-3)
	copy(body, frame[3:])
	return Packet{Type: frame[2], Body: body}, nil
}

func (m Messenger) MaxMsgSize() int {
	if m.Max > 0 {
		return m.Max
	}
	return 64 * 1024
}

// NewFramer returns the length-prefix framer matching Messenger's wire
// format.
func NewFramer(maxFrameSize int) framer.Framer { return framer.NewSoupBinFramer(maxFrameSize) }
