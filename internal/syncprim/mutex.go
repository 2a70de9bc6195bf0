// Package syncprim implements the synchronization primitives offered
// to task bodies: a three-state mutex, a sequence-counter condition
// variable, a countdown event, and a versioned session id — all built
// directly on internal/park rather than sync.Mutex/sync.Cond, since a
// blocked task must park the way any other wait in this runtime parks
// (so a scheduling group's worker loop sees the same wait/wake
// contract everywhere) rather than blocking its goroutine in a way
// invisible to the runtime's own bookkeeping.
package syncprim

import (
	"time"

	"github.com/coreflow/fiberrt/internal/park"
)

const (
	mutexUnlocked = iota
	mutexLockedUncontended
	mutexLockedContended
)

// Mutex is a three-state park.Word-backed lock: unlocked, locked with
// no waiters, or locked with at least one parked waiter — the third
// state is what tells Unlock it must Wake someone, sparing the common
// uncontended case any syscall. Once a waiter has ever parked on a
// given critical section, every subsequent acquire-after-contention
// re-enters in the contended state rather than uncontended: the
// acquirer can't know whether other waiters are still parked, and
// guessing uncontended would let Unlock skip waking them.
type Mutex struct {
	state park.Word
}

// Lock blocks until the mutex is held by the calling goroutine.
func (m *Mutex) Lock() {
	if m.state.CompareAndSwap(mutexUnlocked, mutexLockedUncontended) {
		return
	}
	contended := false
	for {
		old := m.state.Load()
		if old == mutexUnlocked {
			target := uint32(mutexLockedUncontended)
			if contended {
				target = mutexLockedContended
			}
			if m.state.CompareAndSwap(mutexUnlocked, target) {
				return
			}
			continue
		}
		if old != mutexLockedContended && !m.state.CompareAndSwap(old, mutexLockedContended) {
			continue
		}
		contended = true
		m.state.Wait(mutexLockedContended, 0)
	}
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	return m.state.CompareAndSwap(mutexUnlocked, mutexLockedUncontended)
}

// Unlock releases the mutex, waking one parked waiter if the contended
// state was ever observed. The wake happens after the state flips to
// unlocked so a woken waiter's re-check always sees a lockable mutex,
// never a stale contended value it would wait on forever.
func (m *Mutex) Unlock() {
	if m.state.Load() == mutexLockedContended {
		m.state.Store(mutexUnlocked)
		m.state.Wake(1)
		return
	}
	m.state.Store(mutexUnlocked)
}

// LockTimeout is Lock with a bound on how long to wait; reports
// whether the mutex was acquired.
func (m *Mutex) LockTimeout(timeout time.Duration) bool {
	if m.state.CompareAndSwap(mutexUnlocked, mutexLockedUncontended) {
		return true
	}
	contended := false
	deadline := time.Now().Add(timeout)
	for {
		old := m.state.Load()
		if old == mutexUnlocked {
			target := uint32(mutexLockedUncontended)
			if contended {
				target = mutexLockedContended
			}
			if m.state.CompareAndSwap(mutexUnlocked, target) {
				return true
			}
			continue
		}
		if old != mutexLockedContended && !m.state.CompareAndSwap(old, mutexLockedContended) {
			continue
		}
		contended = true
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		m.state.Wait(mutexLockedContended, remaining)
		if time.Now().After(deadline) && m.state.Load() != mutexUnlocked {
			return false
		}
	}
}
