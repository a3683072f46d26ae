// Package pool implements the connection pools described in spec.md §4.J:
// an insertion-order slab of peers with a round-robin cursor for fair
// send/recv scheduling, grounded on the teacher's hub membership
// bookkeeping (see DESIGN.md).
package pool

import (
	"sync"

	"github.com/kstaniek/go-wireframe/internal/conn"
)

// Identifiable is satisfied by anything a pool can track: both
// *clt.CltSender[S,R] and *clt.CltRecver[S,R] expose ConID.
type Identifiable interface {
	ConID() conn.ID
}

// Pool is a generic, insertion-order, round-robin-iterated slab of
// connection halves. It is the shared machinery behind CltSendersPool,
// CltRecversPool, and CltsPool. Safe for concurrent use.
type Pool[T Identifiable] struct {
	mu     sync.Mutex
	order  []T
	index  map[conn.ID]int // ConID -> position in order
	cursor int
}

// New returns an empty pool.
func New[T Identifiable]() *Pool[T] {
	return &Pool[T]{index: make(map[conn.ID]int)}
}

// Add appends item to the pool. Insertion order is preserved, which is
// what makes round-robin fair across however many items are currently
// registered (spec.md §8 property 5).
func (p *Pool[T]) Add(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := item.ConID()
	if _, ok := p.index[id]; ok {
		return
	}
	p.index[id] = len(p.order)
	p.order = append(p.order, item)
}

// Remove drops the item identified by id, if present, fixing up every
// later index and the round-robin cursor so next() never skips or
// repeats an entry because of the removal (spec.md §4.J).
func (p *Pool[T]) Remove(id conn.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.index[id]
	if !ok {
		return
	}
	p.order = append(p.order[:i], p.order[i+1:]...)
	delete(p.index, id)
	for id2, j := range p.index {
		if j > i {
			p.index[id2] = j - 1
		}
	}
	if p.cursor > i {
		p.cursor--
	}
	if len(p.order) > 0 {
		p.cursor %= len(p.order)
	} else {
		p.cursor = 0
	}
}

// Len returns the current number of items in the pool.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Snapshot returns a copy of every currently-pooled item, in insertion
// order. Intended for iteration that doesn't need round-robin fairness
// (e.g. broadcast-style sends).
func (p *Pool[T]) Snapshot() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, len(p.order))
	copy(out, p.order)
	return out
}

// next advances the round-robin cursor by one, wrapping around, and
// returns the item that was at the pre-advance position plus the total
// count at the time of the call. Internal: callers use RoundRobinOnce
// instead.
func (p *Pool[T]) next() (T, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero T
	n := len(p.order)
	if n == 0 {
		return zero, 0, false
	}
	item := p.order[p.cursor%n]
	p.cursor = (p.cursor + 1) % n
	return item, n, true
}

// RoundRobinOnce attempts fn against one pooled item, starting from the
// current cursor position and advancing it, returning ok=false if the
// pool is empty. Each call visits exactly one item, in rotating order —
// repeated calls cycle through every item evenly (spec.md §8 property
// 5: "no item is starved while another item in the same pool is ready").
func (p *Pool[T]) RoundRobinOnce(fn func(T) error) (tried bool, err error) {
	item, _, ok := p.next()
	if !ok {
		return false, nil
	}
	return true, fn(item)
}

// Each invokes fn for every currently pooled item in insertion order, not
// advancing the round-robin cursor; stops early if fn returns false.
func (p *Pool[T]) Each(fn func(T) bool) {
	for _, item := range p.Snapshot() {
		if !fn(item) {
			return
		}
	}
}
