package svc

import (
	"context"
	"testing"
	"time"

	"github.com/kstaniek/go-wireframe/internal/callback"
	"github.com/kstaniek/go-wireframe/internal/clt"
	"github.com/kstaniek/go-wireframe/internal/poller"
	"github.com/kstaniek/go-wireframe/internal/soupbin"
)

// runSweep drives s.CheckHeartbeatsAndTimeouts on a fixed interval until
// stop is closed, standing in for the shared internal/timer.Timer a real
// caller would schedule this on (spec.md §5).
func runSweep(s interface{ CheckHeartbeatsAndTimeouts() }, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.CheckHeartbeatsAndTimeouts()
		}
	}
}

// TestHeartbeatScenario reproduces S3: once the Svc's send side toward a
// Clt has been idle past HeartbeatEvery, the periodic sweep (the same call
// a Timer task would drive) emits a Heartbeat packet the Clt observes on
// its recv side.
func TestHeartbeatScenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgr := soupbin.NewMessenger(256)
	f := soupbin.NewFramer(256)

	svcProto := &soupbin.ServerProtocol{HeartbeatEvery: 20 * time.Millisecond}
	s := New[soupbin.Packet, soupbin.Packet](f, msgr, WithProtocol[soupbin.Packet, soupbin.Packet](svcProto))
	if err := s.Bind(ctx, "127.0.0.1:0"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	ph, err := poller.Spawn("test-heartbeat")
	if err != nil {
		t.Fatalf("spawn poller: %v", err)
	}
	defer ph.Shutdown(time.Second)
	if err := s.PoolAccept(ph); err != nil {
		t.Fatalf("pool accept: %v", err)
	}

	events := callback.NewEventStore[soupbin.Packet, soupbin.Packet]()
	c, err := clt.Connect[soupbin.Packet, soupbin.Packet](
		ctx, s.Addr(), time.Second, 10*time.Millisecond, f, msgr,
		clt.Options[soupbin.Packet, soupbin.Packet]{Callbacks: events},
	)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	if _, err := c.IntoSenderWithSpawnedRecver(ph); err != nil {
		t.Fatalf("spawn recver: %v", err)
	}

	stop := make(chan struct{})
	go runSweep(s, 10*time.Millisecond, stop)
	defer close(stop)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range events.Recvs() {
			if ev.Msg.Type == soupbin.TypeHeartbeat {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no heartbeat observed within deadline")
}

// TestInputTimeoutScenario reproduces S6: a Clt that never sends again is
// disconnected by the Svc once its recv side has been idle past
// InputTimeout, and is removed from the pool via the recver's onClose hook.
func TestInputTimeoutScenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgr := soupbin.NewMessenger(256)
	f := soupbin.NewFramer(256)

	svcProto := &soupbin.ServerProtocol{InputTimeout: 30 * time.Millisecond}
	s := New[soupbin.Packet, soupbin.Packet](f, msgr, WithProtocol[soupbin.Packet, soupbin.Packet](svcProto))
	if err := s.Bind(ctx, "127.0.0.1:0"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	ph, err := poller.Spawn("test-input-timeout")
	if err != nil {
		t.Fatalf("spawn poller: %v", err)
	}
	defer ph.Shutdown(time.Second)
	if err := s.PoolAccept(ph); err != nil {
		t.Fatalf("pool accept: %v", err)
	}

	c, err := clt.Connect[soupbin.Packet, soupbin.Packet](
		ctx, s.Addr(), time.Second, 10*time.Millisecond, f, msgr,
		clt.Options[soupbin.Packet, soupbin.Packet]{},
	)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.Pool().Len() < 1 {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Pool().Len() != 1 {
		t.Fatalf("expected the connection to be pooled before the sweep runs")
	}

	stop := make(chan struct{})
	go runSweep(s, 10*time.Millisecond, stop)
	defer close(stop)

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Pool().Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected the idle connection to be evicted by the input-timeout sweep")
}
