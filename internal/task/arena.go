package task

import (
	"context"
	"sync"

	"github.com/coreflow/fiberrt/internal/stack"
)

// Arena is a fixed-growth pool of Entity slots addressed by Id,
// grounded on PooledQuantumQueue's "externally managed, handle
// indexed" shape: entities are never moved in memory, and a released
// slot's Id becomes invalid the instant its version is bumped, even if
// a later Spawn reuses the same index.
type Arena struct {
	mu      sync.Mutex
	slots   []*Entity
	free    int32 // head of free list, -1 if none
	nextIdx int32
}

// NewArena builds an empty Arena.
func NewArena() *Arena {
	return &Arena{free: -1}
}

// Spawn allocates a new Entity, installs fn as its body, and returns
// its Id. The entity starts in StateNew; the caller (normally a
// scheduling group) transitions it to StateReady once enqueued.
func (a *Arena) Spawn(fn func(context.Context), stackH stack.Handle, attrs Attrs) Id {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx int32
	if a.free >= 0 {
		idx = a.free
		a.free = a.slots[idx].freeNext
	} else {
		a.slots = append(a.slots, &Entity{})
		idx = a.nextIdx
		a.nextIdx++
	}

	e := a.slots[idx]
	version := e.id.version + 1
	*e = Entity{
		id:         Id{idx: idx, version: version},
		fn:         fn,
		stackH:     stackH,
		attrs:      attrs,
		lastWorker: -1,
	}
	e.state.Store(uint32(StateNew))
	return e.id
}

// Lookup resolves id to its Entity, or nil if id is stale (the slot
// was freed and version no longer matches, or the index was never
// issued).
func (a *Arena) Lookup(id Id) *Entity {
	if id.idx < 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(id.idx) >= len(a.slots) {
		return nil
	}
	e := a.slots[id.idx]
	if e.id.version != id.version {
		return nil
	}
	return e
}

// Release returns id's slot to the free list. Callers must only do
// this after the entity has reached StateDone and its stack handle has
// already been released by the caller — Arena does not own stack
// lifecycle, only entity identity.
func (a *Arena) Release(id Id) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(id.idx) >= len(a.slots) {
		return
	}
	e := a.slots[id.idx]
	if e.id.version != id.version {
		return
	}
	e.id.version++ // invalidate any Id still referencing this slot
	e.freeNext = a.free
	a.free = id.idx
}

// Len reports how many entities are currently allocated (live, not
// necessarily Done).
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.slots)
	for i := a.free; i >= 0; i = a.slots[i].freeNext {
		n--
	}
	return n
}
