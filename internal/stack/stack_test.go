package stack

import "testing"

func TestMainClassNeverAllocates(t *testing.T) {
	p := NewPool(4)
	h, err := p.Acquire(ClassMain)
	if err != nil {
		t.Fatalf("Acquire(main) failed: %v", err)
	}
	if !h.Valid() {
		t.Fatal("main handle should be valid")
	}
	if b := p.Bytes(h); b != nil {
		t.Fatal("main handle should not back real memory")
	}
	p.Release(h) // must not panic
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := NewPool(2)
	h, err := p.Acquire(ClassSmall)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	buf := p.Bytes(h)
	if len(buf) != SizeSmall {
		t.Fatalf("len(buf) = %d, want %d", len(buf), SizeSmall)
	}
	p.Release(h)

	h2, err := p.Acquire(ClassSmall)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if h2 != h {
		t.Fatalf("expected reuse of released handle, got %+v want %+v", h2, h)
	}
}

func TestPoolExhaustion(t *testing.T) {
	p := NewPool(1)
	if _, err := p.Acquire(ClassSmall); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := p.Acquire(ClassSmall); err != ErrExhausted {
		t.Fatalf("second Acquire = %v, want ErrExhausted", err)
	}
}

func TestLocalPoolPrefersCache(t *testing.T) {
	parent := NewPool(4)
	local := NewLocalPool(parent, 4)

	h, err := local.Acquire(ClassSmall)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	local.Release(h)

	// A second acquire should come back out of the local cache without
	// growing the parent pool's arena.
	h2, err := local.Acquire(ClassSmall)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if h2 != h {
		t.Fatalf("expected cached handle reuse, got different handle")
	}
}
