// Package group implements the scheduling group: a fixed pool of
// worker loops sharing a ready-queue-per-worker work-stealing topology,
// a bounded run-token pool, and a group-local timer wheel.
//
// Go gives every goroutine its own stack, so there is no user-space
// stack switch to perform here the way the teacher's domain (and the
// spec's C++ ancestor) would. A task's body always runs as a real
// goroutine; what bounds "M fibers over N workers" is the run-token
// pool below — exactly len(workers) tokens, acquired before a task
// goroutine is launched and released when it returns — while this
// package's ready queues, stealing and parking array govern which
// task gets a turn and in what order.
package group

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreflow/fiberrt/internal/obs"
	"github.com/coreflow/fiberrt/internal/squeue"
	"github.com/coreflow/fiberrt/internal/stack"
	"github.com/coreflow/fiberrt/internal/task"
	"github.com/coreflow/fiberrt/internal/timer"
)

// ErrStopped is returned by Spawn/ScheduleAfter once the group has
// begun shutting down.
var ErrStopped = errors.New("group: scheduling group is stopped")

// Group is one scheduling group: a worker pool plus everything a
// spawned task needs to run, be stolen, be joined, or sleep.
type Group struct {
	cfg     Config
	workers []*worker
	parking parkingArray

	arena     *task.Arena
	stackPool *stack.Pool
	wheel     *timer.Wheel

	runTokens chan struct{}

	nextSpawn atomic.Int32
	stop      atomic.Bool
	wg        sync.WaitGroup
	tickDone  chan struct{}
}

// New builds and starts a Group per cfg, launching one pinned worker
// goroutine per configured worker and a background goroutine advancing
// the timer wheel.
func New(cfg Config) (*Group, error) {
	if cfg.Workers <= 0 || cfg.Workers > maxWorkers {
		return nil, errors.New("group: Workers must be in [1, 64]")
	}
	stackCap := cfg.StackPoolCapacity
	if stackCap <= 0 {
		stackCap = 4096
	}
	g := &Group{
		cfg:       cfg,
		arena:     task.NewArena(),
		stackPool: stack.NewPool(stackCap),
		wheel:     timer.NewWheel(cfg.TickInterval, time.Now().UnixNano()),
		runTokens: make(chan struct{}, cfg.Workers),
		tickDone:  make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		g.runTokens <- struct{}{}
	}
	g.workers = make([]*worker, cfg.Workers)
	for i := range g.workers {
		g.workers[i] = newWorker(int32(i), g)
	}

	ctx := context.Background()
	for _, w := range g.workers {
		w := w
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			w.run(ctx)
		}()
	}
	g.wg.Add(1)
	go g.tickLoop()

	return g, nil
}

func (g *Group) stopped() bool { return g.stop.Load() }

// Stop signals every worker and the ticker to exit, then blocks until
// they have. Tasks already running are allowed to finish; nothing new
// is dispatched after Stop returns.
func (g *Group) Stop() {
	g.stop.Store(true)
	for _, w := range g.workers {
		w.wake.Wake(1)
	}
	close(g.tickDone)
	g.wg.Wait()
}

// Spawn allocates a task entity for fn and enqueues it on a worker
// chosen round-robin, waking an idle worker if one is parked.
func (g *Group) Spawn(fn func(context.Context), attrs task.Attrs) (task.Id, error) {
	if g.stopped() {
		return task.Id{}, ErrStopped
	}
	stackH, err := g.stackPool.Acquire(attrs.Stack)
	if err != nil {
		return task.Id{}, err
	}
	id := g.arena.Spawn(fn, stackH, attrs)
	e := g.arena.Lookup(id)
	e.MarkReady()

	target := int(g.nextSpawn.Add(1)-1) % len(g.workers)
	g.workers[target].queue.PushOwner(squeue.Item(id.Encode()))
	g.wakeOne()
	return id, nil
}

// ScheduleAfter arranges for fn to be spawned as a new ready task once
// d elapses. The timer callback never runs fn inline — it only
// re-queues it — so a late-firing timer can't itself become a
// scheduling-loop stall.
func (g *Group) ScheduleAfter(d time.Duration, fn func(context.Context), attrs task.Attrs) (timer.TimerId, error) {
	deadline := time.Now().Add(d)
	return g.wheel.Add(deadline, func() {
		if _, err := g.Spawn(fn, attrs); err != nil {
			obs.Event("group: scheduled spawn after stop", err)
		}
	})
}

// CancelTimer withdraws a pending ScheduleAfter callback.
func (g *Group) CancelTimer(id timer.TimerId) timer.CancelResult {
	return g.wheel.Cancel(id)
}

// Join blocks until the task identified by id reaches StateDone or
// timeout elapses.
func (g *Group) Join(id task.Id, timeout time.Duration) bool {
	e := g.arena.Lookup(id)
	if e == nil {
		return true // already reclaimed: it finished and was released
	}
	return e.Join(timeout)
}

// EntityOf resolves id to its task entity, or nil if id is stale. Used
// by callers (the root fiberrt package's RequestStop) that need to
// reach an entity's cancellation flag from outside any task body.
func (g *Group) EntityOf(id task.Id) *task.Entity { return g.arena.Lookup(id) }

func (g *Group) wakeOne() {
	if idx, ok := g.parking.takeOneIdle(); ok {
		g.workers[idx].wake.Wake(1)
	}
}

// dispatch runs the task identified by item on a fresh goroutine,
// gated by the run-token pool so at most len(workers) task bodies run
// concurrently regardless of how many are ready at once.
func (g *Group) dispatch(ctx context.Context, workerIdx int32, item squeue.Item) {
	id := task.DecodeId(uint64(item))
	e := g.arena.Lookup(id)
	if e == nil {
		return
	}
	<-g.runTokens
	taskCtx := withCurrent(ctx, e, g)
	go func() {
		defer func() { g.runTokens <- struct{}{} }()
		if err := e.Run(taskCtx, workerIdx); err != nil {
			obs.Event("group: task run failed", err)
		}
		g.stackPool.Release(e.StackHandle())
		g.arena.Release(id)
	}()
}

func (g *Group) tickLoop() {
	defer g.wg.Done()
	t := time.NewTicker(g.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-g.tickDone:
			return
		case now := <-t.C:
			g.wheel.Advance(now.UnixNano())
		}
	}
}

// Len reports how many task entities are currently live (spawned and
// not yet reclaimed) across the group.
func (g *Group) Len() int { return g.arena.Len() }
