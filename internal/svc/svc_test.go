package svc

import (
	"context"
	"testing"
	"time"

	"github.com/kstaniek/go-wireframe/internal/clt"
	"github.com/kstaniek/go-wireframe/internal/conn"
	"github.com/kstaniek/go-wireframe/internal/poller"
	"github.com/kstaniek/go-wireframe/internal/soupbin"
)

// TestEchoScenario reproduces spec.md's S1: Svc binds, a Clt connects and
// sends Debug("hi"), the Svc protocol auto-echoes it, and the Clt
// observes the same packet back.
func TestEchoScenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgr := soupbin.NewMessenger(256)
	f := soupbin.NewFramer(256)

	svcProto := &soupbin.ServerProtocol{Echo: true}
	s := New[soupbin.Packet, soupbin.Packet](f, msgr, WithProtocol[soupbin.Packet, soupbin.Packet](svcProto))
	if err := s.Bind(ctx, "127.0.0.1:0"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	ph, err := poller.Spawn("test-echo")
	if err != nil {
		t.Fatalf("spawn poller: %v", err)
	}
	defer ph.Shutdown(time.Second)

	if err := s.PoolAccept(ph); err != nil {
		t.Fatalf("pool accept: %v", err)
	}

	received := make(chan string, 1)
	cltProto := &soupbin.ClientProtocol{
		OnDebug: func(_ conn.ID, text string) { received <- text },
	}

	c, err := clt.Connect[soupbin.Packet, soupbin.Packet](
		ctx, s.Addr(), time.Second, 10*time.Millisecond, f, msgr,
		clt.Options[soupbin.Packet, soupbin.Packet]{Protocol: cltProto},
	)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	sender, err := c.IntoSenderWithSpawnedRecver(ph)
	if err != nil {
		t.Fatalf("spawn recver: %v", err)
	}

	if err := sender.Send(soupbin.Debug("hi")); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case text := <-received:
		if text != "hi" {
			t.Fatalf("got %q, want %q", text, "hi")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("echo never arrived")
	}
}

// TestLoginScenario reproduces S2: the Clt protocol sends LoginRequest
// on connect and Clt.Connect only returns once the Svc protocol has
// replied LoginAccepted.
func TestLoginScenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgr := soupbin.NewMessenger(256)
	f := soupbin.NewFramer(256)

	svcProto := &soupbin.ServerProtocol{AutoAcceptLogin: true}
	s := New[soupbin.Packet, soupbin.Packet](f, msgr, WithProtocol[soupbin.Packet, soupbin.Packet](svcProto))
	if err := s.Bind(ctx, "127.0.0.1:0"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	ph, err := poller.Spawn("test-login")
	if err != nil {
		t.Fatalf("spawn poller: %v", err)
	}
	defer ph.Shutdown(time.Second)
	if err := s.PoolAccept(ph); err != nil {
		t.Fatalf("pool accept: %v", err)
	}

	cltProto := &soupbin.ClientProtocol{User: "u", Pass: "p", LoginRequired: true}
	c, err := clt.Connect[soupbin.Packet, soupbin.Packet](
		ctx, s.Addr(), time.Second, 10*time.Millisecond, f, msgr,
		clt.Options[soupbin.Packet, soupbin.Packet]{Protocol: cltProto},
	)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	if !cltProto.IsConnected(conn.ID{}) {
		t.Fatalf("expected connected after successful login handshake")
	}
}

// TestPoolFullRejectsThirdConnection reproduces S5: max_connections=2, a
// third Clt is rejected while the Svc keeps serving the first two.
func TestPoolFullRejectsThirdConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgr := soupbin.NewMessenger(256)
	f := soupbin.NewFramer(256)

	s := New[soupbin.Packet, soupbin.Packet](f, msgr, WithMaxConnections[soupbin.Packet, soupbin.Packet](2))
	if err := s.Bind(ctx, "127.0.0.1:0"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	ph, err := poller.Spawn("test-poolfull")
	if err != nil {
		t.Fatalf("spawn poller: %v", err)
	}
	defer ph.Shutdown(time.Second)
	if err := s.PoolAccept(ph); err != nil {
		t.Fatalf("pool accept: %v", err)
	}

	var clts []*clt.Clt[soupbin.Packet, soupbin.Packet]
	for i := 0; i < 2; i++ {
		c, err := clt.Connect[soupbin.Packet, soupbin.Packet](
			ctx, s.Addr(), time.Second, 10*time.Millisecond, f, msgr,
			clt.Options[soupbin.Packet, soupbin.Packet]{},
		)
		if err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
		clts = append(clts, c)
	}
	defer func() {
		for _, c := range clts {
			c.Close()
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.Pool().Len() < 2 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.Pool().Len(); got != 2 {
		t.Fatalf("pool size = %d, want 2", got)
	}

	third, err := clt.Connect[soupbin.Packet, soupbin.Packet](
		ctx, s.Addr(), time.Second, 10*time.Millisecond, f, msgr,
		clt.Options[soupbin.Packet, soupbin.Packet]{},
	)
	if err != nil {
		t.Fatalf("third connect (tcp-level) should still succeed: %v", err)
	}
	defer third.Close()

	// The third connection's TCP handshake succeeds (the listener still
	// accepts), but Svc immediately closes it once its pool is observed
	// full; its sender eventually reports the connection is closed.
	deadline = time.Now().Add(2 * time.Second)
	var sendErr error
	for time.Now().Before(deadline) {
		if sendErr = third.Sender.Send(soupbin.Debug("x")); sendErr != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if sendErr == nil {
		t.Fatalf("expected the rejected third connection to eventually fail sends")
	}
	if got := s.Pool().Len(); got != 2 {
		t.Fatalf("pool size after reject = %d, want 2", got)
	}
}
