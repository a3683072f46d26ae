package svc

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/kstaniek/go-wireframe/internal/poller"
)

// acceptor implements poller.Pollable over a *net.TCPListener, performing
// non-blocking accept(2) calls directly on the listener's fd — the same
// SyscallConn-bypass-the-netpoller technique internal/frameio uses for
// reads and writes (spec.md §4.J's "TransmittingSvcAcceptor is itself a
// poll-item, not a blocking Accept loop").
type acceptor struct {
	ln     *net.TCPListener
	onConn func(*net.TCPConn)
}

func newAcceptor(ln *net.TCPListener, onConn func(*net.TCPConn)) *acceptor {
	return &acceptor{ln: ln, onConn: onConn}
}

func (a *acceptor) FD() (int, error) {
	raw, err := a.ln.SyscallConn()
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

// OnReadable drains every connection the kernel has queued before
// returning, mirroring internal/clt.CltRecver's drain-to-WouldBlock loop.
func (a *acceptor) OnReadable() poller.Status {
	raw, err := a.ln.SyscallConn()
	if err != nil {
		return poller.StatusTerminated
	}
	for {
		var connFD int
		var acceptErr error
		cerr := raw.Read(func(fd uintptr) bool {
			connFD, _, acceptErr = unix.Accept4(int(fd), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
			return true
		})
		if cerr != nil {
			return poller.StatusTerminated
		}
		if acceptErr != nil {
			if acceptErr == unix.EAGAIN || acceptErr == unix.EWOULDBLOCK {
				return poller.StatusCompleted
			}
			return poller.StatusTerminated
		}
		tc, err := fdToTCPConn(connFD)
		if err != nil {
			unix.Close(connFD)
			continue
		}
		a.onConn(tc)
	}
}

func fdToTCPConn(fd int) (*net.TCPConn, error) {
	f := os.NewFile(uintptr(fd), "")
	c, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	tc, ok := c.(*net.TCPConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("svc: accepted fd is not tcp")
	}
	return tc, nil
}
