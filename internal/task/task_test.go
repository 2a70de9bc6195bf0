package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coreflow/fiberrt/internal/stack"
)

func TestSpawnRunJoin(t *testing.T) {
	a := NewArena()
	var ran int32
	id := a.Spawn(func(context.Context) { atomic.StoreInt32(&ran, 1) }, stack.Handle{}, Attrs{Name: "t1"})

	e := a.Lookup(id)
	if e == nil {
		t.Fatal("Lookup returned nil for freshly spawned id")
	}
	if e.State() != StateNew {
		t.Fatalf("State() = %v, want new", e.State())
	}
	e.MarkReady()

	done := make(chan bool, 1)
	go func() { done <- e.Join(time.Second) }()

	if err := e.Run(context.Background(), 0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("body never ran")
	}
	if !<-done {
		t.Fatal("Join returned false after completion")
	}
	if e.State() != StateDone {
		t.Fatalf("State() after Run = %v, want done", e.State())
	}
}

func TestRunRejectsWrongState(t *testing.T) {
	a := NewArena()
	id := a.Spawn(func(context.Context) {}, stack.Handle{}, Attrs{})
	e := a.Lookup(id)
	// still StateNew, never marked ready
	if err := e.Run(context.Background(), 0); err != ErrAlreadyRunning {
		t.Fatalf("Run on non-ready entity = %v, want ErrAlreadyRunning", err)
	}
}

func TestReleaseInvalidatesId(t *testing.T) {
	a := NewArena()
	id := a.Spawn(func(context.Context) {}, stack.Handle{}, Attrs{})
	a.Release(id)
	if a.Lookup(id) != nil {
		t.Fatal("Lookup succeeded on a released id")
	}

	id2 := a.Spawn(func(context.Context) {}, stack.Handle{}, Attrs{})
	if id2.idx != id.idx {
		t.Fatalf("expected slot reuse, got different idx: %d vs %d", id2.idx, id.idx)
	}
	if id2.version == id.version {
		t.Fatal("reused slot kept the same version")
	}
}

func TestLocalsDestroyedInReverseOrder(t *testing.T) {
	a := NewArena()
	var order []int
	id := a.Spawn(func(context.Context) {}, stack.Handle{}, Attrs{})
	e := a.Lookup(id)

	k1, k2, k3 := NewSlotKey(), NewSlotKey(), NewSlotKey()
	e.SetLocal(k1, 1, func(v any) { order = append(order, v.(int)) })
	e.SetLocal(k2, 2, func(v any) { order = append(order, v.(int)) })
	e.SetLocal(k3, 3, func(v any) { order = append(order, v.(int)) })

	e.MarkReady()
	e.Run(context.Background(), 0)

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("destroy order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("destroy order = %v, want %v", order, want)
		}
	}
}

func TestStolenCountAndLastWorker(t *testing.T) {
	a := NewArena()
	id := a.Spawn(func(context.Context) {}, stack.Handle{}, Attrs{})
	e := a.Lookup(id)
	if e.LastWorker() != -1 {
		t.Fatalf("LastWorker() before Run = %d, want -1", e.LastWorker())
	}
	e.NoteStolen()
	e.NoteStolen()
	if e.StolenCount() != 2 {
		t.Fatalf("StolenCount() = %d, want 2", e.StolenCount())
	}
	e.MarkReady()
	e.Run(context.Background(), 7)
	if e.LastWorker() != 7 {
		t.Fatalf("LastWorker() = %d, want 7", e.LastWorker())
	}
}
