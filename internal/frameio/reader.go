package frameio

import (
	"bytes"
	"net"

	"golang.org/x/sys/unix"

	"github.com/kstaniek/go-wireframe/internal/framer"
)

// Status is the outcome of one Reader/Writer operation.
type Status int

const (
	// WouldBlock means no progress was made; retry after readiness.
	WouldBlock Status = iota
	// Completed means the operation produced a result (a frame, or a
	// clean EOF signalled by a nil frame).
	Completed
)

const readScratchSize = 64 * 1024

// Reader accumulates bytes from a non-blocking TCP socket and yields
// complete frames via a framer.Framer. The accumulator retains at most one
// trailing partial frame between calls (spec.md §3 "Recv buffer").
type Reader struct {
	conn        *net.TCPConn
	framer      framer.Framer
	acc         bytes.Buffer
	scratch     [readScratchSize]byte
	pending     [][]byte
	maxBuffered int
}

// NewReader wraps conn for non-blocking framed reads using f to recognize
// frame boundaries. maxBuffered bounds the accumulator to guard against an
// unbounded buffer growth from a misbehaving peer; zero means unbounded.
func NewReader(c *net.TCPConn, f framer.Framer, maxBuffered int) *Reader {
	return &Reader{conn: c, framer: f, maxBuffered: maxBuffered}
}

// FD returns the raw file descriptor for poller registration.
func (r *Reader) FD() (int, error) { return rawFD(r.conn) }

// ReadFrame returns the next complete frame. If frames are already pending
// from a previous read it returns one without touching the socket.
// Otherwise it performs exactly one non-blocking read, extends the
// accumulator, and drains every complete frame the framer recognizes
// before returning the first of them.
//
// Completed with a nil frame means clean EOF observed with an empty
// buffer. A non-nil error means the connection is fatally broken
// (ErrConnectionReset) or the stream is desynchronized
// (framer.ErrFrameTooLarge); the caller must close the connection.
func (r *Reader) ReadFrame() ([]byte, Status, error) {
	if len(r.pending) > 0 {
		f := r.pending[0]
		r.pending = r.pending[1:]
		return f, Completed, nil
	}

	n, wouldBlock, err := rawRead(r.conn, r.scratch[:])
	if err != nil {
		if isResetOrBrokenPipe(err) {
			if r.acc.Len() > 0 {
				return nil, Completed, ErrConnectionReset
			}
			// A reset between frames, with no partial frame pending, is
			// indistinguishable from a clean close at this layer (spec.md
			// §4.C: "ConnectionReset becomes Completed(None) upstream only
			// when buffer is empty").
			return nil, Completed, nil
		}
		return nil, Completed, err
	}
	if wouldBlock {
		return nil, WouldBlock, nil
	}
	eof := n == 0
	if n > 0 {
		r.acc.Write(r.scratch[:n])
	}

	for {
		frame, ok, ferr := r.framer.GetFrame(&r.acc)
		if ferr != nil {
			return nil, Completed, ferr
		}
		if !ok {
			break
		}
		cp := make([]byte, len(frame))
		copy(cp, frame)
		r.pending = append(r.pending, cp)
	}

	if r.maxBuffered > 0 && r.acc.Len() > r.maxBuffered {
		return nil, Completed, framer.ErrFrameTooLarge
	}

	if len(r.pending) > 0 {
		f := r.pending[0]
		r.pending = r.pending[1:]
		return f, Completed, nil
	}

	if eof {
		if r.acc.Len() == 0 {
			return nil, Completed, nil // clean EOF, drained
		}
		return nil, Completed, ErrConnectionReset // EOF mid-frame
	}
	return nil, WouldBlock, nil
}

func isResetOrBrokenPipe(err error) bool {
	return err == unix.ECONNRESET || err == unix.EPIPE
}
