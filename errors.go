package fiberrt

import "errors"

// Sentinel errors, matching the taxonomy every operation in this
// runtime reports through: callers use errors.Is against these rather
// than comparing to a returned value, following the teacher's plain
// errors.New style in QuantumQueue/bucketqueue rather than a typed
// error hierarchy.
var (
	// ErrInvalidId means a call had no live task to act on: SleepFor
	// or SleepUntil called outside a task body, or Spawn after the
	// runtime stopped. Stale timer and execution-queue handles report
	// NotFound through their own cancel results, and a stale SessionId
	// reports syncprim.ErrInvalidId.
	ErrInvalidId = errors.New("fiberrt: invalid id")

	// ErrTimeout means an operation's deadline elapsed before it could
	// complete.
	ErrTimeout = errors.New("fiberrt: timeout")

	// ErrCanceled means the calling task's stop was requested while it
	// was blocked in a suspension point.
	ErrCanceled = errors.New("fiberrt: canceled")

	// ErrResourceExhausted means a bounded pool (task arena growth
	// cap, stack class pool, execution queue capacity) had nothing
	// left to hand out.
	ErrResourceExhausted = errors.New("fiberrt: resource exhausted")

	// ErrWouldDeadlock names an operation refused because completing
	// it could not make progress. No function in this module returns
	// it: Runtime.Join reports through its bool result and does not
	// detect a task joining itself.
	ErrWouldDeadlock = errors.New("fiberrt: would deadlock")

	// ErrInternal means an invariant the runtime relies on did not
	// hold; Start returns it when the configuration has no groups. It
	// is returned, never trapped — internal/obs.Trap is a separate
	// mechanism that panics only under the fiberrt_debug tag.
	ErrInternal = errors.New("fiberrt: internal invariant violation")
)
