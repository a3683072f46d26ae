//go:build linux

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollSelector is the real readiness selector: level-triggered epoll
// (spec.md §4.K chooses level-triggered "for simplicity"), with an
// eventfd used as the self-pipe wakeup so Shutdown and Register/Deregister
// can interrupt an in-progress EpollWait.
type epollSelector struct {
	epfd   int
	wakeFD int
}

func newSelector() (selector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, err
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFD, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakeFD),
	}); err != nil {
		_ = unix.Close(wakeFD)
		_ = unix.Close(epfd)
		return nil, err
	}
	return &epollSelector{epfd: epfd, wakeFD: wakeFD}, nil
}

func (s *epollSelector) add(fd int) error {
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	})
}

func (s *epollSelector) remove(fd int) error {
	// Linux requires a non-nil event pointer pre-4.5; harmless on later
	// kernels where it's ignored for EPOLL_CTL_DEL.
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{})
}

func (s *epollSelector) wait(timeout time.Duration) ([]int, error) {
	events := make([]unix.EpollEvent, 64)
	n, err := unix.EpollWait(s.epfd, events, int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		if fd == s.wakeFD {
			var buf [8]byte
			_, _ = unix.Read(s.wakeFD, buf[:])
			continue
		}
		ready = append(ready, fd)
	}
	return ready, nil
}

func (s *epollSelector) wake() {
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(s.wakeFD, buf[:])
}

func (s *epollSelector) close() error {
	_ = unix.Close(s.wakeFD)
	return unix.Close(s.epfd)
}
