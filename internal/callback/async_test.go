package callback

import (
	"context"
	"testing"
	"time"

	"github.com/kstaniek/go-wireframe/internal/conn"
)

func TestAsyncRecvDeliversOffThread(t *testing.T) {
	store := NewEventStore[int, string]()
	a := NewAsyncRecv[string](context.Background(), 8, store, AsyncHooks{})
	defer a.Close()

	id := testID()
	a.OnRecv(id, "hi")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if store.Len() == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("event never delivered")
}

type blockingRecv struct {
	release chan struct{}
	entered chan struct{}
}

func (b *blockingRecv) OnRecv(conn.ID, string) {
	close(b.entered)
	<-b.release
}

func TestAsyncRecvDropsWhenFull(t *testing.T) {
	b := &blockingRecv{release: make(chan struct{}), entered: make(chan struct{})}
	dropped := make(chan struct{}, 1)
	a := NewAsyncRecv[string](context.Background(), 1, b, AsyncHooks{
		OnDrop: func() error { dropped <- struct{}{}; return nil },
	})
	defer func() { close(b.release); a.Close() }()

	id := testID()
	a.OnRecv(id, "first") // consumed by the worker, which then blocks in OnRecv
	<-b.entered
	a.OnRecv(id, "second") // fills the size-1 buffer
	a.OnRecv(id, "third")  // queue full: dropped

	select {
	case <-dropped:
	case <-time.After(time.Second):
		t.Fatalf("expected a drop notification")
	}
}
