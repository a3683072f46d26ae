package pool

import (
	"github.com/kstaniek/go-wireframe/internal/clt"
	"github.com/kstaniek/go-wireframe/internal/conn"
)

// CltSendersPool is a round-robin pool of send halves, used by a
// broadcaster or a load-balancing sender that doesn't care which peer
// gets a given message, only that every peer eventually gets a turn.
type CltSendersPool[S, R any] struct {
	*Pool[*clt.CltSender[S, R]]
}

// NewCltSendersPool returns an empty senders pool.
func NewCltSendersPool[S, R any]() *CltSendersPool[S, R] {
	return &CltSendersPool[S, R]{Pool: New[*clt.CltSender[S, R]]()}
}

// SendBusywait rotates through the pool, via RoundRobinOnce, until one
// sender accepts msg without returning clt.ErrWouldBlock or the pool is
// observed empty. "Busywait" matches frameio.Writer's naming: this method
// spins (yielding via the pooled sender's own Send, which already
// busy-waits a partial write) rather than blocking on a channel.
func (p *CltSendersPool[S, R]) SendBusywait(msg S) error {
	for {
		tried, err := p.RoundRobinOnce(func(s *clt.CltSender[S, R]) error {
			return s.Send(msg)
		})
		if !tried {
			return ErrEmpty
		}
		if err == nil {
			return nil
		}
		if err == clt.ErrWouldBlock {
			continue
		}
		return err
	}
}

// Broadcast sends msg to every pooled sender, collecting the first error
// encountered (if any) but not stopping early — a single dead peer must
// not starve the rest.
func (p *CltSendersPool[S, R]) Broadcast(msg S) error {
	var first error
	p.Each(func(s *clt.CltSender[S, R]) bool {
		if err := s.Send(msg); err != nil && first == nil {
			first = err
		}
		return true
	})
	return first
}

// CltRecversPool is a round-robin pool of recv halves, tracking every
// connection's recv side (spec.md §4.J). It does not register anything
// with a poll handler; Svc registers each recver with its poll handler
// separately.
type CltRecversPool[S, R any] struct {
	*Pool[*clt.CltRecver[S, R]]
}

// NewCltRecversPool returns an empty recvers pool.
func NewCltRecversPool[S, R any]() *CltRecversPool[S, R] {
	return &CltRecversPool[S, R]{Pool: New[*clt.CltRecver[S, R]]()}
}

// CltsPool pairs a senders pool and a recvers pool under one Add/Remove
// so a caller managing full connections (not split halves) need track
// only one structure (spec.md §4.J "CltsPool composes
// CltSendersPool and CltRecversPool over the same membership").
type CltsPool[S, R any] struct {
	Senders *CltSendersPool[S, R]
	Recvers *CltRecversPool[S, R]
}

// NewCltsPool returns an empty paired pool.
func NewCltsPool[S, R any]() *CltsPool[S, R] {
	return &CltsPool[S, R]{
		Senders: NewCltSendersPool[S, R](),
		Recvers: NewCltRecversPool[S, R](),
	}
}

// Add registers both halves of one connection.
func (p *CltsPool[S, R]) Add(sender *clt.CltSender[S, R], recver *clt.CltRecver[S, R]) {
	p.Senders.Add(sender)
	p.Recvers.Add(recver)
}

// Remove drops both halves identified by id. Safe to call even if only
// one half was ever added.
func (p *CltsPool[S, R]) Remove(id conn.ID) {
	p.Senders.Remove(id)
	p.Recvers.Remove(id)
}

// Len returns the number of connections tracked (sender-side count;
// Senders and Recvers are kept in lockstep by Add/Remove).
func (p *CltsPool[S, R]) Len() int { return p.Senders.Len() }
