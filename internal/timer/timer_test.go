package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleFiresRepeatedly(t *testing.T) {
	tm := New("test")
	defer tm.Shutdown()

	var count atomic.Int32
	tm.Schedule(func() ShouldContinue {
		count.Add(1)
		return Continue
	}, 10*time.Millisecond, 0)

	time.Sleep(120 * time.Millisecond)
	if count.Load() < 3 {
		t.Fatalf("expected at least 3 fires, got %d", count.Load())
	}
}

func TestTaskCanStopItself(t *testing.T) {
	tm := New("test")
	defer tm.Shutdown()

	var count atomic.Int32
	tm.Schedule(func() ShouldContinue {
		count.Add(1)
		return Stop
	}, 10*time.Millisecond, 0)

	time.Sleep(80 * time.Millisecond)
	if count.Load() != 1 {
		t.Fatalf("expected exactly 1 fire, got %d", count.Load())
	}
}

func TestClearRemovesAllTasks(t *testing.T) {
	tm := New("test")
	defer tm.Shutdown()

	var count atomic.Int32
	tm.Schedule(func() ShouldContinue {
		count.Add(1)
		return Continue
	}, 10*time.Millisecond, 0)

	time.Sleep(15 * time.Millisecond)
	tm.Clear()
	seen := count.Load()
	time.Sleep(60 * time.Millisecond)
	if count.Load() > seen+1 {
		t.Fatalf("expected no further fires after Clear, went from %d to %d", seen, count.Load())
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	tm := New("test")
	tm.Shutdown()
	tm.Shutdown() // must not panic
}
