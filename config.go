package fiberrt

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/coreflow/fiberrt/internal/group"
)

// GroupRole distinguishes a workload group (runs ordinary spawned
// tasks) from the system group (runs the runtime's own housekeeping —
// today, nothing needs one, but the split exists so a caller doesn't
// have to share worker capacity between user work and runtime
// internals if a future version needs to).
type GroupRole int

const (
	// RoleWorkload runs ordinary application tasks. Spawn's default
	// affinity when Attrs.Group is unset.
	RoleWorkload GroupRole = iota
	// RoleSystem is reserved for runtime-internal tasks.
	RoleSystem
)

// Config configures a Runtime at Start. The zero Config is invalid;
// build one via DefaultConfig and Options, or Start(opts...) which
// applies DefaultConfig implicitly.
type Config struct {
	// NumGroups is how many independent scheduling groups the runtime
	// runs. 1 is the common case; 2 splits workload tasks from system
	// tasks onto separate worker pools so a saturated workload group
	// never starves runtime housekeeping.
	NumGroups int

	// WorkersPerGroup is each group's worker count (and run-token
	// pool size). Overridden by the FIBERRT_WORKERS environment
	// variable if set and non-empty.
	WorkersPerGroup int

	// StackPoolCapacity bounds how many stack regions each size class
	// may map in total per group; once that many exist and none is
	// free, acquiring a region of that class fails with
	// stack.ErrExhausted. The byte size of each class (Small/Normal/
	// Large) is fixed by internal/stack's class enumeration, not
	// configurable here — only how many of each a group may hold.
	StackPoolCapacity int

	// QueueCapacity is each worker's local ready-queue capacity; must
	// be a power of two.
	QueueCapacity int

	// SpinBudget bounds how many empty scan rounds a worker hot-spins
	// before parking.
	SpinBudget int

	// ParkTimeout bounds how long a parked worker sleeps before
	// re-scanning even without an explicit wake.
	ParkTimeout time.Duration

	// TimerTick is how often each group's timer wheel advances.
	TimerTick time.Duration
}

// DefaultConfig returns one workload group sized to the host's CPU
// count, matching the teacher's own topology-derived sizing
// (utils.go's dedupe/ring sizing reads runtime.NumCPU the same way).
func DefaultConfig() Config {
	return Config{
		NumGroups:         1,
		WorkersPerGroup:   runtime.NumCPU(),
		StackPoolCapacity: 4096,
		QueueCapacity:     256,
		SpinBudget:        256,
		ParkTimeout:       50 * time.Millisecond,
		TimerTick:         time.Millisecond,
	}
}

// Option mutates a Config being built by Start.
type Option func(*Config)

// WithGroups sets NumGroups.
func WithGroups(n int) Option { return func(c *Config) { c.NumGroups = n } }

// WithWorkersPerGroup sets WorkersPerGroup.
func WithWorkersPerGroup(n int) Option { return func(c *Config) { c.WorkersPerGroup = n } }

// WithStackPoolCapacity sets StackPoolCapacity.
func WithStackPoolCapacity(n int) Option { return func(c *Config) { c.StackPoolCapacity = n } }

// WithQueueCapacity sets QueueCapacity.
func WithQueueCapacity(n int) Option { return func(c *Config) { c.QueueCapacity = n } }

// WithSpinBudget sets SpinBudget.
func WithSpinBudget(n int) Option { return func(c *Config) { c.SpinBudget = n } }

// WithParkTimeout sets ParkTimeout.
func WithParkTimeout(d time.Duration) Option { return func(c *Config) { c.ParkTimeout = d } }

// WithTimerTick sets TimerTick.
func WithTimerTick(d time.Duration) Option { return func(c *Config) { c.TimerTick = d } }

// applyEnv honors FIBERRT_WORKERS, the one environment-variable
// override this runtime recognizes — the gflags-style configuration
// layer the spec names as an external collaborator is deliberately not
// reimplemented here.
func applyEnv(c *Config) {
	if v, ok := os.LookupEnv("FIBERRT_WORKERS"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.WorkersPerGroup = n
		}
	}
}

func (c Config) groupConfig() group.Config {
	return group.Config{
		Workers:           c.WorkersPerGroup,
		QueueCapacity:     c.QueueCapacity,
		SpinBudget:        c.SpinBudget,
		ParkTimeout:       c.ParkTimeout,
		TickInterval:      c.TimerTick,
		StackPoolCapacity: c.StackPoolCapacity,
	}
}
