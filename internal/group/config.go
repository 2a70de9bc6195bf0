package group

import "time"

// Config shapes one scheduling group's worker pool, ready-queue sizing
// and spin/park behavior.
type Config struct {
	// Workers is the number of OS-thread-pinned workers in the group,
	// and the number of run tokens bounding concurrently running
	// tasks. Must be in [1, 64].
	Workers int

	// QueueCapacity is each worker's local ring capacity; must be a
	// power of two. Bursts beyond it spill to the worker's overflow
	// deque.
	QueueCapacity int

	// SpinBudget is how many consecutive empty scan rounds a worker
	// retries, with one relax instruction after each, before parking.
	SpinBudget int

	// ParkTimeout bounds how long a parked worker sleeps before waking
	// to re-scan even with no explicit wake — a safety net against a
	// missed wakeup ever parking a worker forever.
	ParkTimeout time.Duration

	// TickInterval is how often the group's timer wheel is advanced.
	TickInterval time.Duration

	// StackPoolCapacity bounds how many stack regions per size class
	// this group may map in total; past that, Acquire fails with
	// stack.ErrExhausted until a region is released.
	StackPoolCapacity int
}

// DefaultConfig returns sane defaults for workers OS threads.
func DefaultConfig(workers int) Config {
	return Config{
		Workers:           workers,
		QueueCapacity:     256,
		SpinBudget:        256,
		ParkTimeout:       50 * time.Millisecond,
		TickInterval:      time.Millisecond,
		StackPoolCapacity: 4096,
	}
}
