package syncprim

import (
	"errors"

	"github.com/coreflow/fiberrt/internal/park"
)

// ErrInvalidId is returned by Lock (and reported via Id.Valid) once a
// Session's version no longer matches the Id a caller is holding —
// either because UnlockAndDestroy ran, or because the Id was issued by
// a different Session value entirely.
var ErrInvalidId = errors.New("syncprim: invalid session id")

// Session is a per-key mutex addressed by a versioned Id rather than a
// bare pointer: many tasks may each independently decide the resource
// behind an id has gone bad, but only the Id holder that actually owns
// the lock should ever run teardown, and every other holder must fail
// fast afterward instead of blocking on a mutex that will never again
// be released by its rightful owner.
//
// Modeled directly on the Robin-Hood-free "ABA-free identifier" idea
// in original_source/melon/fiber/list_of_abafree_id.h: an id remembers
// the version it was issued against, and once that version moves on,
// Valid is false forever, even if a later Session is constructed at
// the same memory address.
type Session struct {
	mu        Mutex     // the per-key lock Lock/Unlock actually hold
	version   park.Word // bumped exactly once by UnlockAndDestroy
	destroyed park.Word // CAS 0->1 gate: only the first UnlockAndDestroy wins
	failed    park.Word // CAS 0->1 gate: only the first SetFailed wins
}

// NewSession builds a fresh, live Session.
func NewSession() *Session { return &Session{} }

// Id is a versioned reference to a Session, invalidated the instant
// UnlockAndDestroy runs even if a new Session is later built at the
// same address.
type Id struct {
	s       *Session
	version uint32
}

// Id snapshots the session's current version into a new Id, usable
// with Lock/Unlock/UnlockAndDestroy until the session is destroyed.
func (s *Session) Id() Id { return Id{s: s, version: s.version.Load()} }

// Valid reports whether id's session has not been destroyed since id
// was issued.
func (id Id) Valid() bool {
	return id.s != nil && id.s.version.Load() == id.version
}

// Lock acquires the session's mutex if id is still valid, re-checking
// after acquisition in case UnlockAndDestroy raced in while Lock was
// blocked waiting for the mutex — a Lock call that was queued behind
// the soon-to-be-destroyed holder simply fails once it is finally
// granted, rather than ever believing it holds a dead session's lock.
func (id Id) Lock() error {
	if !id.Valid() {
		return ErrInvalidId
	}
	id.s.mu.Lock()
	if !id.Valid() {
		id.s.mu.Unlock()
		return ErrInvalidId
	}
	return nil
}

// Unlock releases a lock acquired via a successful Lock call.
func (id Id) Unlock() { id.s.mu.Unlock() }

// UnlockAndDestroy releases id's held lock and permanently invalidates
// every Id ever issued by id's session in one step: the version is
// bumped exactly once (by whichever caller wins the race) before the
// mutex is released, so a waiter already blocked inside Lock is
// granted the mutex as usual but finds the bumped version on its
// post-acquire re-check and fails with ErrInvalidId instead of ever
// believing it holds a live session. Reports whether this call was the
// one that performed the destruction.
func (id Id) UnlockAndDestroy() bool {
	if !id.Valid() {
		return false
	}
	if !id.s.destroyed.CompareAndSwap(0, 1) {
		return false
	}
	id.s.version.Add(1)
	id.s.mu.Unlock()
	return true
}

// SetFailed runs teardown exactly once across however many Ids
// concurrently call it against the same session — the first-wins CAS
// gate the spec's on-error closure scheduling describes. Reports
// whether this call was the one that ran teardown.
func (id Id) SetFailed(teardown func()) bool {
	if !id.s.failed.CompareAndSwap(0, 1) {
		return false
	}
	if teardown != nil {
		teardown()
	}
	return true
}
