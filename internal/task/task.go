// Package task implements the task entity: the unit of schedulable
// work a scheduling group runs, parks, and joins.
//
// A fiber's body always runs as a real goroutine — Go gives no other
// way to get a suspendable call stack — so Task's job is everything
// around that goroutine: identity and ABA-safe reuse via a versioned
// handle, a state machine a scheduling group can inspect without
// touching the goroutine itself, a join word other tasks park on, and
// a small local-storage table with ordered destructor teardown.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coreflow/fiberrt/internal/park"
	"github.com/coreflow/fiberrt/internal/stack"
)

// State is a task's lifecycle stage.
type State uint32

const (
	StateNew State = iota
	StateReady
	StateRunning
	StateSuspended
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ErrAlreadyRunning is returned by Run if called on a task not in
// StateReady.
var ErrAlreadyRunning = errors.New("task: entity is not in ready state")

// Id is a versioned handle into an Arena, safe to hold across the
// entity's eventual reuse: a stale Id with the wrong version is caught
// rather than silently resolving to whatever now occupies the slot.
type Id struct {
	idx     int32
	version uint32
}

// Valid reports whether id was ever issued by an Arena.
func (id Id) Valid() bool { return id.idx >= 0 && id.version != 0 }

// Encode packs id into a 64-bit word, letting a ready queue (which
// deals only in opaque uint64 payloads) carry task identity without
// importing this package's internals.
func (id Id) Encode() uint64 { return uint64(uint32(id.idx))<<32 | uint64(id.version) }

// DecodeId reverses Encode.
func DecodeId(u uint64) Id {
	return Id{idx: int32(uint32(u >> 32)), version: uint32(u)}
}

// Attrs are the caller-supplied properties of a task, fixed at Spawn
// and read-only thereafter.
type Attrs struct {
	Name         string
	HighPriority bool
	Stack        stack.Class
}

// Entity is one schedulable task: an entry closure, its stack lease,
// its state, and its join word. Entities live inside an Arena and are
// addressed by Id; callers never hold a bare *Entity across a
// suspension point because the arena may recycle it once Done.
type Entity struct {
	id         Id
	fn         func(context.Context)
	stackH     stack.Handle
	attrs      Attrs
	state      atomic.Uint32
	join       park.Word // bumped + woken on termination; joiners Wait on it
	locals     localStore
	groupID    int32 // scheduling group that owns this entity, set by the group
	stolen     int32
	lastWorker int32
	freeNext   int32

	stopRequested atomic.Bool
	wake          park.Word // suspension wake word for sleep/primitive waits, distinct from join
}

// Id reports the entity's own handle.
func (e *Entity) Id() Id { return e.id }

// State reports the entity's current lifecycle stage.
func (e *Entity) State() State { return State(e.state.Load()) }

// Attrs reports the entity's fixed attributes.
func (e *Entity) Attrs() Attrs { return e.attrs }

// StackHandle reports the scratch stack region leased to this entity.
func (e *Entity) StackHandle() stack.Handle { return e.stackH }

// GroupID reports which scheduling group currently owns this entity.
func (e *Entity) GroupID() int32 { return e.groupID }

// SetGroupID is called by a scheduling group when it takes ownership
// (spawn, or after a steal moves the entity's bookkeeping).
func (e *Entity) SetGroupID(id int32) { e.groupID = id }

// MarkReady transitions StateNew/StateSuspended -> StateReady, used by
// the owning group when enqueueing the entity.
func (e *Entity) MarkReady() { e.state.Store(uint32(StateReady)) }

// MarkSuspended transitions the entity out of StateRunning without
// finishing it, used when a task yields or blocks on a sync primitive.
func (e *Entity) MarkSuspended() { e.state.Store(uint32(StateSuspended)) }

// NoteStolen records that a work-stealing thief, not the owning
// worker, picked this entity up — used for scheduling telemetry.
func (e *Entity) NoteStolen() { atomic.AddInt32(&e.stolen, 1) }

// StolenCount reports how many times this entity has been stolen.
func (e *Entity) StolenCount() int32 { return atomic.LoadInt32(&e.stolen) }

// LastWorker reports the last worker index that ran this entity, or -1
// if it has never run. A group uses this as an affinity hint.
func (e *Entity) LastWorker() int32 { return atomic.LoadInt32(&e.lastWorker) }

// RequestStop marks the entity canceled: a sleep the entity is
// currently blocked in sees StopRequested true at its next wake and
// unwinds with a cancellation error instead of continuing to wait, and
// anyone currently parked on the entity's suspension word is woken
// immediately to notice it. Waits inside internal/syncprim do not
// check this flag.
func (e *Entity) RequestStop() {
	e.stopRequested.Store(true)
	e.wake.Add(1)
	e.wake.Wake(1 << 30)
}

// StopRequested reports whether RequestStop has been called on this
// entity. A long-running task body is expected to poll this at its own
// yield points the way yields and sleeps do automatically.
func (e *Entity) StopRequested() bool { return e.stopRequested.Load() }

// WakeSeq snapshots the entity's suspension word, for a caller about to
// block on it with WaitWake.
func (e *Entity) WakeSeq() uint32 { return e.wake.Load() }

// WaitWake blocks on the entity's suspension word until a Wake or
// RequestStop call wakes it, or timeout elapses. It returns at once if
// the word no longer equals seq; of the two wakers only RequestStop
// changes the word.
func (e *Entity) WaitWake(seq uint32, timeout time.Duration) park.Result {
	return e.wake.Wait(seq, timeout)
}

// Wake wakes up to maxWakers goroutines parked on the entity's
// suspension word — used by a timer callback to end a sleep.
func (e *Entity) Wake(maxWakers int) int { return e.wake.Wake(maxWakers) }

// SetLocal installs a task-local value, destroyed (if destroy is
// non-nil) in reverse declaration order when the entity finishes.
func (e *Entity) SetLocal(key SlotKey, val any, destroy func(any)) {
	e.locals.Set(key, val, destroy)
}

// Local retrieves a task-local value.
func (e *Entity) Local(key SlotKey) (any, bool) { return e.locals.Get(key) }

// Run executes the entity's body to completion on the calling
// goroutine, transitioning Ready -> Running -> Done, then tearing down
// locals and waking any joiners. Run does not return until the body
// has returned; a group's worker loop runs each ready entity on its
// own goroutine specifically so Run can block the calling goroutine
// without blocking the worker's scheduling loop. A panic in the body is
// recovered: the termination steps above still run, and Run returns
// the panic as an error.
func (e *Entity) Run(ctx context.Context, workerIdx int32) (err error) {
	if State(e.state.Load()) != StateReady {
		return ErrAlreadyRunning
	}
	e.state.Store(uint32(StateRunning))
	atomic.StoreInt32(&e.lastWorker, workerIdx)

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task: body panicked: %v", r)
			}
		}()
		e.fn(ctx)
	}()

	e.locals.destroyAll()
	e.state.Store(uint32(StateDone))
	e.join.Add(1)
	e.join.Wake(1 << 30)
	return err
}

// Join blocks the calling goroutine until the entity reaches
// StateDone, or timeout elapses (timeout <= 0 waits forever). Reports
// whether the entity had finished by the time Join returned.
func (e *Entity) Join(timeout time.Duration) bool {
	for {
		if State(e.state.Load()) == StateDone {
			return true
		}
		seq := e.join.Load()
		if State(e.state.Load()) == StateDone {
			return true
		}
		if r := e.join.Wait(seq, timeout); r == park.TimedOut {
			return State(e.state.Load()) == StateDone
		}
	}
}
