package syncprim

import (
	"errors"
	"math"
	"time"

	"github.com/coreflow/fiberrt/internal/park"
)

// ErrNegativeCount is returned by NewCountdownEvent for a negative
// initial count.
var ErrNegativeCount = errors.New("syncprim: countdown event count must be >= 0")

// CountdownEvent blocks waiters until a fixed number of CountDown
// calls have landed — a fan-in barrier for "wait for these N
// sub-tasks", built the same way Mutex and Cond are: a park.Word
// carrying the live count, decremented under CAS, waking everyone once
// it hits zero.
type CountdownEvent struct {
	remaining park.Word
}

// NewCountdownEvent builds a CountdownEvent requiring count
// CountDown calls before any Wait returns.
func NewCountdownEvent(count int32) (*CountdownEvent, error) {
	if count < 0 {
		return nil, ErrNegativeCount
	}
	e := &CountdownEvent{}
	e.remaining.Store(uint32(count))
	return e, nil
}

// CountDown decrements the remaining count by one, waking every Wait
// call once it reaches zero. Calling it more times than the initial
// count is a caller error and is ignored once the count is already
// zero.
func (e *CountdownEvent) CountDown() {
	for {
		old := e.remaining.Load()
		if old == 0 {
			return
		}
		if e.remaining.CompareAndSwap(old, old-1) {
			if old-1 == 0 {
				e.remaining.Wake(math.MaxInt32)
			}
			return
		}
	}
}

// Signal is CountDown repeated n times.
func (e *CountdownEvent) Signal(n int32) {
	for i := int32(0); i < n; i++ {
		e.CountDown()
	}
}

// Remaining reports the current count.
func (e *CountdownEvent) Remaining() int32 { return int32(e.remaining.Load()) }

// Wait blocks until the count reaches zero.
func (e *CountdownEvent) Wait() {
	for {
		v := e.remaining.Load()
		if v == 0 {
			return
		}
		e.remaining.Wait(v, 0)
	}
}

// WaitTimeout is Wait bounded by timeout; reports whether the count
// had reached zero by the time it returned.
func (e *CountdownEvent) WaitTimeout(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		v := e.remaining.Load()
		if v == 0 {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return e.remaining.Load() == 0
		}
		e.remaining.Wait(v, remaining)
	}
}
