package group

import (
	"context"

	"github.com/coreflow/fiberrt/internal/task"
)

type currentKey struct{}

type current struct {
	entity *task.Entity
	group  *Group
}

// withCurrent embeds e's own identity and the group running it into
// ctx, the same ctx e.Run then passes to the task body — this is the
// "current task" accessor set on worker entry, done via context value
// injection rather than a goroutine-id registry, since every
// suspension point in this runtime (Yield, SleepFor/Until, primitive
// waits) already takes a context.Context and Go's own goroutine *is*
// the fiber, so there is no separate worker-entry point to hook a
// registry into that context propagation doesn't already reach.
func withCurrent(ctx context.Context, e *task.Entity, g *Group) context.Context {
	return context.WithValue(ctx, currentKey{}, current{entity: e, group: g})
}

// FromContext recovers the task entity and owning group a suspension
// point is being called from. ok is false outside of a running task
// body (e.g. a bare goroutine never spawned through this package).
func FromContext(ctx context.Context) (e *task.Entity, g *Group, ok bool) {
	c, ok := ctx.Value(currentKey{}).(current)
	if !ok {
		return nil, nil, false
	}
	return c.entity, c.group, true
}
