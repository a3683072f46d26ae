// Package frameio performs non-blocking socket I/O with partial-progress
// resumption over a growable bytes.Buffer accumulator (spec.md §4.C). Go's
// runtime already keeps every net.Conn file descriptor in non-blocking
// mode for its own netpoller; rawRead/rawWrite reach past net.Conn's
// blocking Read/Write contract to perform exactly one non-blocking attempt
// on that same fd via SyscallConn, so the framework's own poller
// (internal/poller) — not the Go runtime — decides when to retry.
package frameio

import (
	"net"

	"golang.org/x/sys/unix"
)

// rawRead performs exactly one non-blocking read into p.
func rawRead(c *net.TCPConn, p []byte) (n int, wouldBlock bool, err error) {
	raw, serr := c.SyscallConn()
	if serr != nil {
		return 0, false, serr
	}
	cerr := raw.Read(func(fd uintptr) bool {
		n, err = unix.Read(int(fd), p)
		return true
	})
	if cerr != nil {
		return 0, false, cerr
	}
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, true, nil
	}
	return n, false, err
}

// rawWrite performs exactly one non-blocking write of p.
func rawWrite(c *net.TCPConn, p []byte) (n int, wouldBlock bool, err error) {
	raw, serr := c.SyscallConn()
	if serr != nil {
		return 0, false, serr
	}
	cerr := raw.Write(func(fd uintptr) bool {
		n, err = unix.Write(int(fd), p)
		return true
	})
	if cerr != nil {
		return 0, false, cerr
	}
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, true, nil
	}
	return n, false, err
}

// rawFD extracts the underlying file descriptor for registration with
// internal/poller's epoll selector.
func rawFD(c *net.TCPConn) (int, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	cerr := raw.Control(func(f uintptr) { fd = int(f) })
	if cerr != nil {
		return -1, cerr
	}
	return fd, nil
}
