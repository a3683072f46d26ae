package pool

import (
	"testing"

	"github.com/kstaniek/go-wireframe/internal/conn"
)

type fakeItem struct {
	id conn.ID
}

func (f fakeItem) ConID() conn.ID { return f.id }

func newFake(name string) fakeItem {
	return fakeItem{id: conn.ID{Role: conn.RoleClt, Name: name}}
}

func TestPoolRoundRobinFairness(t *testing.T) {
	p := New[fakeItem]()
	a, b, c := newFake("a"), newFake("b"), newFake("c")
	p.Add(a)
	p.Add(b)
	p.Add(c)

	var order []string
	for i := 0; i < 6; i++ {
		item, _, ok := p.next()
		if !ok {
			t.Fatalf("expected an item at iteration %d", i)
		}
		order = append(order, item.id.Name)
	}
	want := []string{"a", "b", "c", "a", "b", "c"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("iteration %d: got %q, want %q (full order %v)", i, order[i], name, order)
		}
	}
}

func TestPoolRemoveReindexesAndCursor(t *testing.T) {
	p := New[fakeItem]()
	a, b, c := newFake("a"), newFake("b"), newFake("c")
	p.Add(a)
	p.Add(b)
	p.Add(c)

	// Advance the cursor onto "b" before removing "a" ahead of it.
	if item, _, ok := p.next(); !ok || item.id.Name != "a" {
		t.Fatalf("expected a first, got %+v ok=%v", item, ok)
	}

	p.Remove(a.id)
	if p.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", p.Len())
	}

	snap := p.Snapshot()
	if len(snap) != 2 || snap[0].id.Name != "b" || snap[1].id.Name != "c" {
		t.Fatalf("unexpected snapshot after removal: %+v", snap)
	}

	// Round robin must still visit every remaining item exactly once per
	// full cycle, with no skip or repeat caused by the earlier removal.
	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		item, _, ok := p.next()
		if !ok {
			t.Fatalf("expected an item at iteration %d", i)
		}
		seen[item.id.Name]++
	}
	if seen["b"] != 2 || seen["c"] != 2 {
		t.Fatalf("unfair rotation after removal: %v", seen)
	}
}

func TestPoolAddDuplicateIsNoop(t *testing.T) {
	p := New[fakeItem]()
	a := newFake("a")
	p.Add(a)
	p.Add(a)
	if p.Len() != 1 {
		t.Fatalf("expected duplicate Add to be a no-op, got len %d", p.Len())
	}
}

func TestPoolRemoveUnknownIsNoop(t *testing.T) {
	p := New[fakeItem]()
	p.Add(newFake("a"))
	p.Remove(conn.ID{Role: conn.RoleClt, Name: "ghost"})
	if p.Len() != 1 {
		t.Fatalf("expected unknown Remove to be a no-op, got len %d", p.Len())
	}
}

func TestPoolEachStopsEarly(t *testing.T) {
	p := New[fakeItem]()
	p.Add(newFake("a"))
	p.Add(newFake("b"))
	p.Add(newFake("c"))

	var visited []string
	p.Each(func(item fakeItem) bool {
		visited = append(visited, item.id.Name)
		return item.id.Name != "b"
	})
	if len(visited) != 2 {
		t.Fatalf("expected Each to stop after b, visited %v", visited)
	}
}

func TestRoundRobinOnceEmptyPool(t *testing.T) {
	p := New[fakeItem]()
	tried, err := p.RoundRobinOnce(func(fakeItem) error { return nil })
	if tried {
		t.Fatal("expected tried=false on empty pool")
	}
	if err != nil {
		t.Fatalf("expected nil error on empty pool, got %v", err)
	}
}
