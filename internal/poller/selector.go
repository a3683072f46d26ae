package poller

import (
	"errors"
	"time"
)

var errClosed = errors.New("poller: handler shut down")

// selector is the minimal readiness-notification backend PollHandler
// drives. It is implemented per-OS: selector_linux.go backs it with real
// epoll + eventfd wakeup; selector_other.go provides a portable fallback
// for platforms without epoll.
type selector interface {
	add(fd int) error
	remove(fd int) error
	// wait blocks up to timeout and returns the file descriptors that
	// became readable.
	wait(timeout time.Duration) ([]int, error)
	// wake interrupts a blocked wait call.
	wake()
	close() error
}
