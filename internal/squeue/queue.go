package squeue

import "sync"

// Queue is one worker's full ready-queue surface: a bounded Deque for
// the fast path, plus a mutex-protected overflow deque absorbing
// bursts that would otherwise overflow the ring. Owner operations
// always check the local Deque first; Steal drains the Deque before
// falling back to overflow, so thieves preferentially take cheaper,
// lock-free work.
type Queue struct {
	local *Deque

	mu       sync.Mutex
	overflow []Item
}

// NewQueue builds a Queue whose fast-path ring holds capacity items.
func NewQueue(capacity int) *Queue {
	return &Queue{local: NewDeque(capacity)}
}

// PushOwner is called only by the owning worker. It never fails: a
// full local ring spills to the overflow deque instead.
func (q *Queue) PushOwner(x Item) {
	if q.local.PushBottom(x) {
		return
	}
	q.mu.Lock()
	q.overflow = append(q.overflow, x)
	q.mu.Unlock()
}

// PopOwner is called only by the owning worker: local ring first (LIFO,
// most recently pushed first), then overflow (oldest first, to bound overflow latency).
func (q *Queue) PopOwner() (Item, bool) {
	if x, ok := q.local.PopBottom(); ok {
		return x, true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.overflow) == 0 {
		return 0, false
	}
	x := q.overflow[0]
	q.overflow = q.overflow[1:]
	return x, true
}

// Steal is called by any worker other than the owner.
func (q *Queue) Steal() (Item, bool) {
	if x, ok := q.local.Steal(); ok {
		return x, true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.overflow) == 0 {
		return 0, false
	}
	x := q.overflow[0]
	q.overflow = q.overflow[1:]
	return x, true
}

// Len is an approximate total occupancy across both tiers.
func (q *Queue) Len() int {
	q.mu.Lock()
	n := len(q.overflow)
	q.mu.Unlock()
	return q.local.Len() + n
}
