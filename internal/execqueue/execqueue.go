// Package execqueue implements the per-key execution queue: a
// wait-free MPSC queue whose consumer is auto-started by the first
// Execute call to find it idle and auto-quits once drained, so there
// is no dedicated goroutine parked for a queue nobody is using.
//
// The protocol is ported from melon/fiber's ExecutionQueue: producers
// CAS a new node onto an intrusive stack; whichever producer's CAS
// observes the stack was empty becomes responsible for spawning the
// consumer. The consumer swaps the whole stack out atomically,
// reverses it into arrival (FIFO) order, then walks it delivering
// tasks through an iterator — re-arming itself if more work landed
// while it was draining, or a final stopped call once told to stop.
//
// melon backs TaskNode with a hand-managed free list because C++ gives
// it no other choice; Go's garbage collector already solves node
// lifetime safely, so nodes here are ordinary heap values linked by
// atomic.Pointer rather than arena-indexed handles the way task.Arena
// and timer.Wheel need to be. What the arena discipline is for
// elsewhere in this runtime — bounding memory and detecting stale
// identifiers — is done here with a plain pending-count bound
// (Config.Capacity) plus a per-node cancel/dispatch flag pair, which
// is enough since a Handle is only ever compared against its own node,
// never decoded from an external wire format.
package execqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreflow/fiberrt/internal/group"
	"github.com/coreflow/fiberrt/internal/obs"
	"github.com/coreflow/fiberrt/internal/task"
)

// ErrStopped is returned by Execute once Stop has been called.
var ErrStopped = errors.New("execqueue: queue is stopped")

// ErrFull is returned by Execute when Config.Capacity would be
// exceeded by admitting one more pending task.
var ErrFull = errors.New("execqueue: queue is at capacity")

// Options configures one Execute call.
type Options struct {
	// HighPriority tasks are delivered in FIFO order among themselves
	// but ahead of every normal-priority task already pending in the
	// same drained batch. They are not real-time: a batch already
	// being iterated is not interrupted.
	HighPriority bool
}

// Config configures a Queue at Start.
type Config struct {
	// Capacity bounds how many tasks may be pending at once; 0 means
	// unbounded. Exceeding it fails Execute with ErrFull rather than
	// blocking a producer, matching Execute's wait-free contract.
	Capacity int
	// Attrs are passed to the group when spawning the consumer task.
	Attrs task.Attrs
}

// Iterator is handed to the ExecuteFunc for each drained batch. Stopped
// reports true exactly once, on the final call after Stop has drained
// every task queued before it.
type Iterator[T any] struct {
	nodes []*node[T]
	pos   int
	cur   *node[T]
	final bool
}

// Stopped reports whether the queue has been told to stop and this is
// the terminal iterator: no further tasks will ever be delivered, and
// resources referenced by the queue's owner may now be released.
func (it *Iterator[T]) Stopped() bool { return it.final }

// Next advances to the next non-canceled task, skipping any canceled
// in between. Returns false once the batch is exhausted.
func (it *Iterator[T]) Next() bool {
	for it.pos < len(it.nodes) {
		n := it.nodes[it.pos]
		it.pos++
		// Claim the node by setting canceled ourselves: whichever of
		// Next and Cancel wins this CAS decides whether it is delivered.
		if !n.canceled.CompareAndSwap(false, true) {
			continue
		}
		n.dispatched.Store(true)
		it.cur = n
		return true
	}
	return false
}

// Value returns the task carried by the node Next just advanced to.
func (it *Iterator[T]) Value() T { return it.cur.val }

// HighPriority reports whether the current task was submitted with
// Options.HighPriority set.
func (it *Iterator[T]) HighPriority() bool { return it.cur.highPriority }

// ExecuteFunc drains one batch (or, on the terminal call, none) of
// tasks. Returning a non-nil error only logs; it does not stop the
// queue or the caller's subsequent batches.
type ExecuteFunc[T any] func(iter *Iterator[T]) error

type node[T any] struct {
	next       atomic.Pointer[node[T]]
	val        T
	highPriority bool
	canceled   atomic.Bool
	dispatched atomic.Bool
}

// Handle identifies one submitted task for Cancel.
type Handle[T any] struct {
	n *node[T]
}

// Valid reports whether h was ever issued by Execute.
func (h Handle[T]) Valid() bool { return h.n != nil }

// CancelResult reports the outcome of Cancel.
type CancelResult int

const (
	// Canceled means the task will never be delivered to ExecuteFunc.
	Canceled CancelResult = iota
	// Executing means the task is already inside (or has already
	// passed through) an ExecuteFunc call and cannot be withdrawn.
	Executing
	// NotFound means h is the zero Handle.
	NotFound
)

func (r CancelResult) String() string {
	switch r {
	case Canceled:
		return "canceled"
	case Executing:
		return "executing"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Queue is one execution queue: a lock-free MPSC task list with an
// auto-started, auto-quitting consumer.
type Queue[T any] struct {
	cfg     Config
	g       *group.Group
	execute ExecuteFunc[T]

	head    atomic.Pointer[node[T]]
	pending atomic.Int32

	running       atomic.Bool
	stopRequested atomic.Bool
	stopped       atomic.Bool

	joinOnce sync.Once
	joinDone chan struct{}
}

// Start builds a Queue backed by g, ready to accept Execute calls. The
// consumer runs as a task spawned on g, so it participates in g's
// run-token bound and worker stealing the same as any other task.
func Start[T any](g *group.Group, execute ExecuteFunc[T], cfg Config) *Queue[T] {
	return &Queue[T]{
		cfg:      cfg,
		g:        g,
		execute:  execute,
		joinDone: make(chan struct{}),
	}
}

// Execute submits val for delivery to the ExecuteFunc, spawning the
// consumer if it is currently idle. Thread-safe, wait-free: producers
// never block on each other or on the consumer.
func (q *Queue[T]) Execute(val T, opts Options) (Handle[T], error) {
	if q.stopRequested.Load() {
		return Handle[T]{}, ErrStopped
	}
	if p := q.pending.Add(1); q.cfg.Capacity > 0 && p > int32(q.cfg.Capacity) {
		q.pending.Add(-1)
		return Handle[T]{}, ErrFull
	}
	n := &node[T]{val: val, highPriority: opts.HighPriority}
	for {
		old := q.head.Load()
		n.next.Store(old)
		if q.head.CompareAndSwap(old, n) {
			if old == nil {
				q.arm()
			}
			return Handle[T]{n: n}, nil
		}
	}
}

// Cancel withdraws a previously submitted task if it has not yet
// reached the consumer.
func (q *Queue[T]) Cancel(h Handle[T]) CancelResult {
	if !h.Valid() {
		return NotFound
	}
	if h.n.dispatched.Load() {
		return Executing
	}
	if h.n.canceled.CompareAndSwap(false, true) {
		return Canceled
	}
	return Executing
}

// Stop tells the queue to deliver every task submitted before this
// call, then call ExecuteFunc exactly once more with Iterator.Stopped
// true, then quit for good. Execute fails with ErrStopped after Stop
// returns; tasks already in flight are unaffected.
func (q *Queue[T]) Stop() {
	q.stopRequested.Store(true)
	q.arm()
}

// arm spawns the consumer if it is not already running.
func (q *Queue[T]) arm() {
	if !q.running.CompareAndSwap(false, true) {
		return
	}
	if _, err := q.g.Spawn(q.drain, q.cfg.Attrs); err != nil {
		obs.Event("execqueue: failed to spawn consumer", err)
		q.running.Store(false)
	}
}

func (q *Queue[T]) drain(context.Context) {
	for {
		top := q.head.Swap(nil)
		if top == nil {
			if q.stopRequested.Load() {
				q.deliverStop()
				return
			}
			q.running.Store(false)
			// A producer may have pushed, or Stop may have been
			// called (its own arm losing to our running flag), between
			// the checks above and the Store just now; if so, and we
			// win the re-arm race, keep draining instead of leaving
			// that push or the terminal call stranded with nobody
			// watching it.
			if (q.head.Load() != nil || q.stopRequested.Load()) && q.running.CompareAndSwap(false, true) {
				continue
			}
			return
		}
		batch, n := reverseAndPartition(top)
		q.pending.Add(-int32(n))
		it := &Iterator[T]{nodes: batch}
		if err := q.execute(it); err != nil {
			obs.Event("execqueue: ExecuteFunc returned error", err)
		}
	}
}

func (q *Queue[T]) deliverStop() {
	it := &Iterator[T]{final: true}
	if err := q.execute(it); err != nil {
		obs.Event("execqueue: terminal ExecuteFunc returned error", err)
	}
	q.stopped.Store(true)
	q.joinOnce.Do(func() { close(q.joinDone) })
	q.running.Store(false)
}

// reverseAndPartition walks the intrusive stack rooted at top (newest
// first) into arrival order, then stable-partitions high-priority
// nodes ahead of normal ones — matching the documented semantic that
// high-priority tasks run FIFO but before all pending normal tasks in
// the same batch, not truly out of band.
func reverseAndPartition[T any](top *node[T]) ([]*node[T], int) {
	var fifo []*node[T]
	for n := top; n != nil; n = n.next.Load() {
		fifo = append(fifo, n)
	}
	for i, j := 0, len(fifo)-1; i < j; i, j = i+1, j-1 {
		fifo[i], fifo[j] = fifo[j], fifo[i]
	}
	ordered := make([]*node[T], 0, len(fifo))
	for _, n := range fifo {
		if n.highPriority {
			ordered = append(ordered, n)
		}
	}
	for _, n := range fifo {
		if !n.highPriority {
			ordered = append(ordered, n)
		}
	}
	return ordered, len(fifo)
}

// Join blocks until Stop's terminal ExecuteFunc call has completed, or
// timeout elapses (timeout <= 0 waits forever). Reports whether the
// queue had stopped by the time Join returned.
func (q *Queue[T]) Join(timeout time.Duration) bool {
	if timeout <= 0 {
		<-q.joinDone
		return true
	}
	select {
	case <-q.joinDone:
		return true
	case <-time.After(timeout):
		return q.stopped.Load()
	}
}

// Len reports how many tasks are currently pending (submitted but not
// yet taken into a batch by the consumer).
func (q *Queue[T]) Len() int { return int(q.pending.Load()) }
