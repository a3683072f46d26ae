package frameio

import "errors"

// Error taxonomy per spec.md §7. Reader and Writer report would-block and
// clean EOF through Status rather than through ErrWouldBlock or
// ErrConnectionClosed, which they never return. None of these errors is
// wrapped with %w chains since callers branch on identity, not on message
// text.
var (
	// ErrWouldBlock means no further progress is possible right now; retry
	// after the next readiness event.
	ErrWouldBlock = errors.New("frameio: would block")
	// ErrConnectionClosed is a clean EOF (read side) or a completed
	// half-close; it is not an application-visible error.
	ErrConnectionClosed = errors.New("frameio: connection closed")
	// ErrConnectionReset means the peer died mid-frame (RST/EPIPE).
	ErrConnectionReset = errors.New("frameio: connection reset")
)
