// Package fiberrt is an M:N cooperative fiber scheduling runtime: a
// fixed pool of OS threads (scheduling group workers) multiplexing a
// much larger number of lightweight, cooperatively-scheduled tasks.
//
// A task never gets preempted — it only yields at designated
// suspension points (Yield, SleepFor/SleepUntil, a synchronization
// primitive wait, an execution-queue pop, or its own completion) —
// and every wait in the runtime, all the way down, is built on one
// primitive: the parking word (internal/park), a futex-shaped
// compare-and-sleep/wake cell.
//
// Start a Runtime, Spawn tasks onto it, and use the primitives in
// fiber.go and syncprim to coordinate them:
//
//	rt, err := fiberrt.Start(fiberrt.WithGroups(1), fiberrt.WithWorkersPerGroup(4))
//	if err != nil { ... }
//	defer rt.Stop()
//
//	id, err := rt.Spawn(func(ctx context.Context) {
//		fiberrt.SleepFor(ctx, 10*time.Millisecond)
//	}, fiberrt.Attrs{})
//	rt.Join(id, 0)
//
// Go supplies the one primitive this domain otherwise has to hand-roll
// in C — a stackful, independently suspendable execution context — as
// the goroutine itself, so a task's body always runs on a real
// goroutine. What the runtime adds on top is everything else a fiber
// scheduler needs: identity and ABA-safe reuse, a bounded run-token
// pool that makes this genuinely M:N rather than 1:1, work-stealing
// ready queues, a hierarchical timer wheel, and the parking-word-based
// primitives every wait in the system funnels through.
package fiberrt
