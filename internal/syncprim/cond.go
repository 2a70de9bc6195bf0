package syncprim

import (
	"math"
	"time"

	"github.com/coreflow/fiberrt/internal/park"
)

// Cond is a condition variable keyed off a sequence counter rather
// than a linked waiter list: every Signal/Broadcast simply bumps the
// counter and wakes, so Wait's only job is to snapshot the counter
// before releasing the mutex and block on that exact snapshot — the
// same publish-before-recheck shape as park.Word itself, one level up.
type Cond struct {
	seq park.Word
	mu  *Mutex
}

// NewCond builds a Cond guarded by mu.
func NewCond(mu *Mutex) *Cond {
	return &Cond{mu: mu}
}

// Wait atomically releases mu and blocks until Signal or Broadcast is
// called, then reacquires mu before returning. Like sync.Cond, a
// spurious wake is possible: callers must re-check their predicate in
// a loop.
func (c *Cond) Wait() {
	seq := c.seq.Load()
	c.mu.Unlock()
	c.seq.Wait(seq, 0)
	c.mu.Lock()
}

// WaitTimeout is Wait bounded by timeout; reports whether it returned
// due to a wake rather than the timeout elapsing. A false result does
// not rule out a concurrent Signal landing right at the boundary —
// callers still re-check their predicate either way.
func (c *Cond) WaitTimeout(timeout time.Duration) bool {
	seq := c.seq.Load()
	c.mu.Unlock()
	r := c.seq.Wait(seq, timeout)
	c.mu.Lock()
	return r != park.TimedOut
}

// Signal wakes one waiter, if any.
func (c *Cond) Signal() {
	c.seq.Add(1)
	c.seq.Wake(1)
}

// Broadcast wakes every current waiter.
func (c *Cond) Broadcast() {
	c.seq.Add(1)
	c.seq.Wake(math.MaxInt32)
}
