// Package framer splits a byte stream into discrete application frames.
//
// A Framer is a pure function with respect to the socket: it only looks at
// bytes already buffered and never performs I/O itself. It must not consume
// anything from buf unless a complete frame is present.
package framer

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrFrameTooLarge is returned by a length-prefixed Framer when the declared
// payload length exceeds the configured limit. The caller should treat the
// connection as fatally desynchronized.
var ErrFrameTooLarge = errors.New("framer: frame exceeds configured limit")

// Framer recognizes frame boundaries in a growing accumulator buffer.
//
// GetFrame returns the next complete frame and true, consuming those bytes
// from the front of buf. If no complete frame is available it returns
// (nil, false, nil) and leaves buf untouched. A non-nil error means the
// stream is desynchronized (e.g. a declared length exceeds the configured
// limit) and the connection must be closed.
type Framer interface {
	GetFrame(buf *bytes.Buffer) (frame []byte, ok bool, err error)
}

// FixedSizeFramer splits the stream into frames of exactly N bytes each.
type FixedSizeFramer struct {
	N int
}

func (f FixedSizeFramer) GetFrame(buf *bytes.Buffer) ([]byte, bool, error) {
	if f.N <= 0 {
		return nil, false, nil
	}
	if buf.Len() < f.N {
		return nil, false, nil
	}
	return buf.Next(f.N), true, nil
}

// LengthPrefixFramer reads a big-endian length header of HeaderSize bytes
// (2 or 4) followed by that many payload bytes. The frame returned includes
// the header, matching the shipped SoupBinTCP wire format (spec.md §6).
type LengthPrefixFramer struct {
	// HeaderSize is the width of the length prefix in bytes: 2 or 4.
	HeaderSize int
	// MaxFrameSize bounds the total frame size (header + payload). Zero
	// means unbounded.
	MaxFrameSize int
}

// NewSoupBinFramer returns the 2-byte-big-endian-length framer used by
// SoupBinTCP and OUCH.
func NewSoupBinFramer(maxFrameSize int) LengthPrefixFramer {
	return LengthPrefixFramer{HeaderSize: 2, MaxFrameSize: maxFrameSize}
}

func (f LengthPrefixFramer) GetFrame(buf *bytes.Buffer) ([]byte, bool, error) {
	hdr := f.HeaderSize
	if hdr != 2 && hdr != 4 {
		hdr = 2
	}
	b := buf.Bytes()
	if len(b) < hdr {
		return nil, false, nil
	}
	var payloadLen int
	if hdr == 2 {
		payloadLen = int(binary.BigEndian.Uint16(b[:2]))
	} else {
		payloadLen = int(binary.BigEndian.Uint32(b[:4]))
	}
	total := hdr + payloadLen
	if f.MaxFrameSize > 0 && total > f.MaxFrameSize {
		return nil, false, ErrFrameTooLarge
	}
	if len(b) < total {
		return nil, false, nil
	}
	return buf.Next(total), true, nil
}
