// Package timer runs periodic protocol chores (heartbeat emission, login
// and input timeouts) on a single dedicated background thread, scheduled
// by a binary heap keyed on next-fire time (spec.md §4.L).
//
// Grounded on the priority-queue-of-scheduled-work shape used by
// container/heap in SagerNet-smux's session bookkeeping, generalized here
// to fixed-interval recurring tasks, and on the periodic-sweep-goroutine
// idiom in xtaci-kcptun's client scavenger (a ticker draining a worklist
// and dropping entries whose time has passed).
package timer

import (
	"container/heap"
	"sync"
	"time"

	"github.com/kstaniek/go-wireframe/internal/metrics"
)

// ShouldContinue is returned by a scheduled task to indicate whether the
// timer should keep rescheduling it.
type ShouldContinue bool

const (
	Continue ShouldContinue = true
	Stop     ShouldContinue = false
)

// Task is a periodic chore run on the timer's own goroutine. Tasks must be
// fast: a long task delays every other task on the same Timer.
type Task func() ShouldContinue

// Handle references a scheduled task so callers can cancel it individually.
type Handle struct {
	id int64
}

type entry struct {
	id       int64
	nextFire time.Time
	interval time.Duration
	task     Task
	index    int // heap index, maintained by container/heap
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].nextFire.Before(h[j].nextFire) }
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Timer owns a heap of scheduled tasks and a single background goroutine
// that executes them sequentially in deadline order.
type Timer struct {
	Name string

	mu      sync.Mutex
	heap    entryHeap
	nextID  int64
	wake    chan struct{}
	done    chan struct{}
	stopped bool
}

// New creates and starts a Timer with the given diagnostic name.
func New(name string) *Timer {
	t := &Timer{
		Name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go t.loop()
	return t
}

// Schedule registers task to run every interval, first firing after
// initialDelay. It returns a Handle usable with Cancel.
func (t *Timer) Schedule(task Task, interval, initialDelay time.Duration) Handle {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	e := &entry{id: id, nextFire: time.Now().Add(initialDelay), interval: interval, task: task}
	heap.Push(&t.heap, e)
	t.mu.Unlock()
	t.pokeLocked()
	return Handle{id: id}
}

// Cancel removes a single scheduled task, if still present.
func (t *Timer) Cancel(h Handle) {
	t.mu.Lock()
	for i, e := range t.heap {
		if e.id == h.id {
			heap.Remove(&t.heap, i)
			break
		}
	}
	t.mu.Unlock()
}

// Clear removes every scheduled task.
func (t *Timer) Clear() {
	t.mu.Lock()
	t.heap = nil
	t.mu.Unlock()
}

func (t *Timer) pokeLocked() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Timer) loop() {
	for {
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		var wait time.Duration
		if len(t.heap) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(t.heap[0].nextFire)
		}
		t.mu.Unlock()

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-t.wake:
				timer.Stop()
			case <-t.done:
				timer.Stop()
				return
			}
		}

		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		if len(t.heap) == 0 || t.heap[0].nextFire.After(time.Now()) {
			t.mu.Unlock()
			continue
		}
		e := heap.Pop(&t.heap).(*entry)
		t.mu.Unlock()

		metrics.IncTimerFire()
		cont := e.task()

		if cont == Continue {
			now := time.Now()
			next := e.nextFire.Add(e.interval)
			// If the deadline was missed by more than one interval, skip
			// ahead instead of firing rapidly back-to-back.
			if e.interval > 0 && next.Before(now) {
				missedBy := now.Sub(next)
				skips := missedBy/e.interval + 1
				next = next.Add(skips * e.interval)
			}
			e.nextFire = next
			t.mu.Lock()
			heap.Push(&t.heap, e)
			t.mu.Unlock()
		}
	}
}

// Shutdown stops the timer goroutine. It is idempotent.
func (t *Timer) Shutdown() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()
	close(t.done)
}
