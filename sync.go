package fiberrt

import "github.com/coreflow/fiberrt/internal/syncprim"

// The four synchronization primitives exposed to task bodies, all
// built directly on the parking word rather than sync.Mutex/sync.Cond
// — see internal/syncprim for the implementation. Re-exported here by
// type alias so callers of this package never need to import an
// internal path to use them.
type (
	Mutex          = syncprim.Mutex
	Cond           = syncprim.Cond
	CountdownEvent = syncprim.CountdownEvent
	Session        = syncprim.Session
	SessionId      = syncprim.Id
)

// NewCond builds a Cond guarded by mu.
func NewCond(mu *Mutex) *Cond { return syncprim.NewCond(mu) }

// NewCountdownEvent builds a CountdownEvent requiring count CountDown
// calls before any Wait returns.
func NewCountdownEvent(count int32) (*CountdownEvent, error) {
	return syncprim.NewCountdownEvent(count)
}

// NewSession builds a fresh, live Session.
func NewSession() *Session { return syncprim.NewSession() }
