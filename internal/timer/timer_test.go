package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAddFiresAtDueTick(t *testing.T) {
	epoch := time.Now().UnixNano()
	w := NewWheel(time.Millisecond, epoch)

	var fired int32
	deadline := time.Unix(0, epoch+5*int64(time.Millisecond))
	if _, err := w.Add(deadline, func() { atomic.AddInt32(&fired, 1) }); err != nil {
		t.Fatalf("Add: %v", err)
	}

	w.Advance(epoch + 4*int64(time.Millisecond))
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("fired before its deadline")
	}
	w.Advance(epoch + 6*int64(time.Millisecond))
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if w.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after firing", w.Len())
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	epoch := time.Now().UnixNano()
	w := NewWheel(time.Millisecond, epoch)

	var fired int32
	id, err := w.Add(time.Unix(0, epoch+5*int64(time.Millisecond)), func() { atomic.AddInt32(&fired, 1) })
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if r := w.Cancel(id); r != Canceled {
		t.Fatalf("Cancel = %v, want Canceled", r)
	}
	if r := w.Cancel(id); r != AlreadyCanceled {
		t.Fatalf("second Cancel = %v, want AlreadyCanceled", r)
	}

	w.Advance(epoch + 10*int64(time.Millisecond))
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("canceled timer fired anyway")
	}
}

func TestCancelAfterFireReportsAlreadyFired(t *testing.T) {
	epoch := time.Now().UnixNano()
	w := NewWheel(time.Millisecond, epoch)

	id, err := w.Add(time.Unix(0, epoch+int64(time.Millisecond)), func() {})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	w.Advance(epoch + 2*int64(time.Millisecond))
	if r := w.Cancel(id); r != AlreadyFired {
		t.Fatalf("Cancel after fire = %v", r)
	}
}

func TestCascadeMigratesIntoNear(t *testing.T) {
	epoch := time.Now().UnixNano()
	w := NewWheel(time.Millisecond, epoch)

	// A deadline well past the near tier's window but inside cascade's.
	far := epoch + int64(bucketCount+1000)*int64(time.Millisecond)
	var fired int32
	id, err := w.Add(time.Unix(0, far), func() { atomic.AddInt32(&fired, 1) })
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	w.mu.Lock()
	tier := w.arena[id.idx].tier
	w.mu.Unlock()
	if tier != 1 {
		t.Fatalf("expected cascade placement, got tier %d", tier)
	}

	w.Advance(far + int64(time.Millisecond))
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("cascaded timer never fired: fired=%d", fired)
	}
}

func TestDeadlineBeyondHorizonRejected(t *testing.T) {
	epoch := time.Now().UnixNano()
	w := NewWheel(time.Millisecond, epoch)

	horizon := int64(bucketCount) * int64(bucketCount) * int64(time.Millisecond)
	_, err := w.Add(time.Unix(0, epoch+horizon*2), func() {})
	if err != ErrDeadlineTooFar {
		t.Fatalf("Add beyond horizon = %v, want ErrDeadlineTooFar", err)
	}
}

// TestManyTimersCancelHalf exercises the wheel at scale: 10,000 timers
// staggered across the near window, half canceled, and every remaining
// one fired by a single Advance past the last deadline.
func TestManyTimersCancelHalf(t *testing.T) {
	epoch := time.Now().UnixNano()
	w := NewWheel(time.Millisecond, epoch)

	const n = 10000
	ids := make([]TimerId, n)
	var fired int32
	for i := 0; i < n; i++ {
		deadline := time.Unix(0, epoch+int64(i%2000+1)*int64(time.Millisecond))
		id, err := w.Add(deadline, func() { atomic.AddInt32(&fired, 1) })
		if err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
		ids[i] = id
	}
	var canceled int
	for i := 0; i < n; i += 2 {
		if r := w.Cancel(ids[i]); r == Canceled {
			canceled++
		}
	}

	w.Advance(epoch + 2100*int64(time.Millisecond))

	want := int32(n - canceled)
	if got := atomic.LoadInt32(&fired); got != want {
		t.Fatalf("fired = %d, want %d (canceled %d)", got, want, canceled)
	}
	if w.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after draining", w.Len())
	}
}

func TestRebaseKeepsFiringCorrect(t *testing.T) {
	epoch := time.Now().UnixNano()
	w := NewWheel(time.Millisecond, epoch)

	var fired int32
	// Schedule something far enough out that advancing past half the
	// near window forces a rebase before it's due.
	deadline := epoch + int64(bucketCount/2+500)*int64(time.Millisecond)
	if _, err := w.Add(time.Unix(0, deadline), func() { atomic.AddInt32(&fired, 1) }); err != nil {
		t.Fatalf("Add: %v", err)
	}

	w.Advance(epoch + int64(bucketCount/2+100)*int64(time.Millisecond))
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("fired early")
	}
	w.Advance(epoch + int64(bucketCount/2+600)*int64(time.Millisecond))
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("fired = %d, want 1 after rebase window", fired)
	}
}

func TestSameDeadlineFiresInAdditionOrder(t *testing.T) {
	epoch := time.Now().UnixNano()
	w := NewWheel(time.Millisecond, epoch)

	const n = 20
	var order []int
	deadline := time.Unix(0, epoch+5*int64(time.Millisecond))
	for i := 0; i < n; i++ {
		i := i
		if _, err := w.Add(deadline, func() { order = append(order, i) }); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	w.Advance(epoch + 6*int64(time.Millisecond))
	if len(order) != n {
		t.Fatalf("fired %d callbacks, want %d", len(order), n)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d, want %d — same-deadline entries did not fire in addition order", i, got, i)
		}
	}
}
