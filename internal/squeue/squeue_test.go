package squeue

import (
	"sync"
	"testing"
)

func TestPushPopOwnerLIFO(t *testing.T) {
	d := NewDeque(8)
	for i := Item(1); i <= 3; i++ {
		if !d.PushBottom(i) {
			t.Fatalf("PushBottom(%d) failed", i)
		}
	}
	for _, want := range []Item{3, 2, 1} {
		got, ok := d.PopBottom()
		if !ok || got != want {
			t.Fatalf("PopBottom = %d,%v want %d", got, ok, want)
		}
	}
	if _, ok := d.PopBottom(); ok {
		t.Fatal("PopBottom on empty deque returned ok")
	}
}

func TestStealFIFO(t *testing.T) {
	d := NewDeque(8)
	for i := Item(1); i <= 3; i++ {
		d.PushBottom(i)
	}
	got, ok := d.Steal()
	if !ok || got != 1 {
		t.Fatalf("Steal = %d,%v want 1", got, ok)
	}
}

func TestDequeFullRejectsPush(t *testing.T) {
	d := NewDeque(2)
	if !d.PushBottom(1) || !d.PushBottom(2) {
		t.Fatal("expected first two pushes to succeed")
	}
	if d.PushBottom(3) {
		t.Fatal("expected push into a full deque to fail")
	}
}

func TestQueueOverflowSpillAndDrain(t *testing.T) {
	q := NewQueue(2)
	for i := Item(1); i <= 5; i++ {
		q.PushOwner(i)
	}
	if q.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", q.Len())
	}
	seen := map[Item]bool{}
	for i := 0; i < 5; i++ {
		x, ok := q.PopOwner()
		if !ok {
			t.Fatalf("PopOwner failed on iteration %d", i)
		}
		seen[x] = true
	}
	for i := Item(1); i <= 5; i++ {
		if !seen[i] {
			t.Fatalf("item %d never drained", i)
		}
	}
}

func TestConcurrentStealNeverDuplicates(t *testing.T) {
	d := NewDeque(1024)
	const n = 500
	for i := Item(1); i <= n; i++ {
		d.PushBottom(i)
	}

	var mu sync.Mutex
	seen := make(map[Item]int)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				x, ok := d.Steal()
				if !ok {
					return
				}
				mu.Lock()
				seen[x]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	for {
		if _, ok := d.PopBottom(); !ok {
			break
		}
	}

	total := 0
	for _, c := range seen {
		if c != 1 {
			t.Fatalf("item stolen %d times, want exactly 1", c)
		}
		total++
	}
	if total > n {
		t.Fatalf("saw %d distinct items, more than pushed (%d)", total, n)
	}
}

func TestPickerExcludesSelf(t *testing.T) {
	p := NewPicker(2, 5)
	order := p.Next()
	if len(order) != 4 {
		t.Fatalf("len(order) = %d, want 4", len(order))
	}
	for _, v := range order {
		if v == 2 {
			t.Fatal("picker included self in victim order")
		}
	}
}
