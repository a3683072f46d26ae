package frameio

import (
	"net"
	"runtime"
)

// Writer performs non-blocking, partial-progress-resuming frame writes on
// a TCP socket (spec.md §4.C).
type Writer struct {
	conn *net.TCPConn

	// progress tracks an in-flight partial write for diagnostics; at most
	// one write is ever in flight per Writer (enforced by CltSender's
	// mutex, not by Writer itself).
	inFlight bool
	total    int
	written  int
}

// NewWriter wraps conn for non-blocking framed writes.
func NewWriter(c *net.TCPConn) *Writer { return &Writer{conn: c} }

// FD returns the raw file descriptor for poller registration.
func (w *Writer) FD() (int, error) { return rawFD(w.conn) }

// WriteFrame writes bytes in full or not at all from the caller's point of
// view: if the very first non-blocking write attempt makes zero progress,
// it returns WouldBlock immediately and the caller should retry later
// (spec.md §4.C). If at least one byte goes out, WriteFrame busy-waits —
// spinning on further non-blocking write attempts, calling
// runtime.Gosched after each attempt that would block — until every
// byte is written (Completed) or a non-WouldBlock error occurs. This
// guarantees message-atomicity on the wire: a frame's bytes are never
// interleaved with another frame's bytes from the same Writer.
func (w *Writer) WriteFrame(bytes []byte) (Status, error) {
	w.inFlight = true
	w.total = len(bytes)
	w.written = 0
	defer func() { w.inFlight = false }()

	for w.written < w.total {
		n, wouldBlock, err := rawWrite(w.conn, bytes[w.written:])
		if err != nil {
			if isResetOrBrokenPipe(err) {
				return Completed, ErrConnectionReset
			}
			return Completed, err
		}
		if wouldBlock {
			if w.written == 0 {
				return WouldBlock, nil
			}
			runtime.Gosched()
			continue
		}
		w.written += n
	}
	return Completed, nil
}
