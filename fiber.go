package fiberrt

import (
	"context"
	"fmt"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/coreflow/fiberrt/internal/group"
	"github.com/coreflow/fiberrt/internal/park"
	"github.com/coreflow/fiberrt/internal/rtmetrics"
	"github.com/coreflow/fiberrt/internal/stack"
	"github.com/coreflow/fiberrt/internal/task"
)

// Attrs are the caller-supplied properties of a spawned task: which
// group it affines to and how large a scratch stack class it needs.
// Fixed at Spawn, read-only thereafter.
type Attrs struct {
	// Name is a human-readable label, carried through for logging and
	// debugging only.
	Name string

	// Group selects which scheduling group the task runs on. The zero
	// value, RoleWorkload, is the common case.
	Group GroupRole

	// HighPriority is recorded in the task's attributes. The scheduling
	// group's queues and worker loop do not read it, so it does not
	// change the order in which tasks are dispatched.
	HighPriority bool

	// Stack selects the scratch-region size class. The zero value,
	// stack.ClassMain, costs nothing to acquire and is appropriate for
	// short-lived or trivial task bodies; pick ClassSmall/Normal/Large
	// for task bodies doing heavier local work.
	Stack stack.Class
}

// TaskId identifies a spawned task across Join/cancellation calls. The
// zero TaskId is never valid.
type TaskId struct {
	groupIdx int
	id       task.Id
}

// Valid reports whether t was ever issued by Spawn.
func (t TaskId) Valid() bool { return t.id.Valid() }

// Runtime is a started fiber scheduling runtime: one or more
// scheduling groups plus the shared metrics facade reporting across
// all of them.
type Runtime struct {
	cfg     Config
	groups  []*group.Group
	metrics rtmetrics.Counters

	mu        sync.Mutex
	roleGroup map[GroupRole]int
}

// Start builds and starts a Runtime. DefaultConfig is applied first,
// then opts, then the FIBERRT_WORKERS environment override.
func Start(opts ...Option) (*Runtime, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	applyEnv(&cfg)
	if cfg.NumGroups <= 0 {
		return nil, fmt.Errorf("%w: NumGroups must be >= 1", ErrInternal)
	}

	groups := make([]*group.Group, cfg.NumGroups)
	for i := range groups {
		g, err := group.New(cfg.groupConfig())
		if err != nil {
			for j := 0; j < i; j++ {
				groups[j].Stop()
			}
			return nil, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		groups[i] = g
	}

	roleGroup := map[GroupRole]int{RoleWorkload: 0}
	if cfg.NumGroups > 1 {
		roleGroup[RoleSystem] = 1
	} else {
		roleGroup[RoleSystem] = 0
	}

	return &Runtime{cfg: cfg, groups: groups, roleGroup: roleGroup}, nil
}

// Stop shuts down every scheduling group, letting tasks already
// RUNNING finish but dispatching nothing new. Blocks until every
// worker has exited.
func (rt *Runtime) Stop() {
	for _, g := range rt.groups {
		g.Stop()
	}
}

// Metrics returns the runtime-wide counters. Within this package only
// Spawn updates them (the spawned count); the other counters change
// only when a caller increments them.
func (rt *Runtime) Metrics() *rtmetrics.Counters { return &rt.metrics }

func (rt *Runtime) groupFor(role GroupRole) (*group.Group, int) {
	rt.mu.Lock()
	idx := rt.roleGroup[role]
	rt.mu.Unlock()
	return rt.groups[idx], idx
}

// Group returns the underlying scheduling group for idx, for callers
// that need to build an internal/execqueue.Queue or other
// group-scoped component directly. idx must be < NumGroups.
func (rt *Runtime) Group(idx int) *group.Group { return rt.groups[idx] }

// Spawn starts a new task running fn, routed to the group matching
// attrs.Group. fn receives a context.Context carrying this task's
// identity — pass it straight through to Yield/SleepFor/SleepUntil.
func (rt *Runtime) Spawn(fn func(context.Context), attrs Attrs) (TaskId, error) {
	g, idx := rt.groupFor(attrs.Group)
	id, err := g.Spawn(fn, task.Attrs{Name: attrs.Name, HighPriority: attrs.HighPriority, Stack: attrs.Stack})
	if err != nil {
		if err == group.ErrStopped {
			return TaskId{}, fmt.Errorf("%w: %v", ErrInvalidId, err)
		}
		return TaskId{}, err
	}
	rt.metrics.IncSpawned()
	return TaskId{groupIdx: idx, id: id}, nil
}

// Join blocks until the task identified by id reaches completion, or
// timeout elapses (0 waits forever). Reports whether it had completed.
func (rt *Runtime) Join(id TaskId, timeout time.Duration) bool {
	if !id.Valid() {
		return true
	}
	return rt.groups[id.groupIdx].Join(id.id, timeout)
}

// RequestStop asks the task identified by id to cancel: a Yield,
// SleepFor or SleepUntil it is currently blocked in (or next enters)
// returns ErrCanceled. Waits on Mutex, Cond, CountdownEvent and
// SessionId do not observe the request. The task body itself should poll
// StopRequested(ctx) at its own loop boundaries to wind down
// cooperatively — cancellation is never preemptive.
func (rt *Runtime) RequestStop(id TaskId) {
	if !id.Valid() {
		return
	}
	e := rt.groups[id.groupIdx].EntityOf(id.id)
	if e != nil {
		e.RequestStop()
	}
}

// StopRequested reports whether the calling task (identified by ctx)
// has had RequestStop called against it. Long-running task bodies
// should poll this at their own loop boundaries the way spec.md's
// cancellation contract requires; Yield and SleepFor/Until already do
// this automatically, while the sync primitives do not check it.
func StopRequested(ctx context.Context) bool {
	e, _, ok := group.FromContext(ctx)
	if !ok {
		return false
	}
	return e.StopRequested()
}

// Yield gives other ready tasks a chance to run on the calling
// worker. Go's own goroutine scheduler already interleaves
// goroutines preemptively; Yield's job in this runtime is narrower —
// it is a designated suspension point honoring cancellation, calling
// runtime.Gosched() as the mechanism rather than hand-rolling a
// context switch Go already performs for every goroutine.
func Yield(ctx context.Context) error {
	if StopRequested(ctx) {
		return ErrCanceled
	}
	goruntime.Gosched()
	if StopRequested(ctx) {
		return ErrCanceled
	}
	return nil
}

// SleepFor suspends the calling task for d, or until RequestStop is
// called against it, whichever comes first.
func SleepFor(ctx context.Context, d time.Duration) error {
	return SleepUntil(ctx, time.Now().Add(d))
}

// SleepUntil suspends the calling task until deadline, or until
// RequestStop is called against it, whichever comes first. The
// wake-up itself is delivered by a timer callback spawned as a fresh,
// trivial task — the same "timer callbacks never run inline, only
// re-queue" discipline internal/group.ScheduleAfter already applies,
// here put to use waking a sleeper instead of running user work.
func SleepUntil(ctx context.Context, deadline time.Time) error {
	e, g, ok := group.FromContext(ctx)
	if !ok {
		return ErrInvalidId
	}
	if e.StopRequested() {
		return ErrCanceled
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return nil
	}

	timerID, err := g.ScheduleAfter(remaining, func(context.Context) {
		e.Wake(1 << 30)
	}, task.Attrs{Name: "sleep-wake"})
	if err != nil {
		return err
	}
	defer g.CancelTimer(timerID)

	for {
		if e.StopRequested() {
			return ErrCanceled
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		seq := e.WakeSeq()
		// Re-check both predicates after the snapshot, before
		// blocking, so a RequestStop or timer fire landing between
		// the checks above and this Wait is never missed — the same
		// publish-before-recheck shape park.Word itself documents.
		if e.StopRequested() {
			return ErrCanceled
		}
		if !time.Now().Before(deadline) {
			return nil
		}
		if r := e.WaitWake(seq, remaining); r == park.TimedOut {
			return nil
		}
	}
}
