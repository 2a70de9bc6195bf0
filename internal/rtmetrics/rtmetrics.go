// Package rtmetrics is the runtime's metrics facade: a dependency-free
// set of atomic counters/gauges any component can bump without
// importing a metrics backend, plus an optional Sink a caller can
// attach to forward every bump into a real metrics stack.
//
// The var/metrics instrumentation libraries a production deployment
// would actually ship to are an external collaborator this runtime
// never depends on directly — only the facade lives in core; the
// bridge to a concrete backend (see bridge_armon.go) is opt-in.
package rtmetrics

import "sync/atomic"

// Sink receives every counter increment and gauge set this package
// records, labeled with a dotted key path in the style of
// github.com/armon/go-metrics and github.com/hashicorp/go-metrics.
type Sink interface {
	IncrCounter(key []string, val float32)
	SetGauge(key []string, val float32)
}

var (
	keySpawned        = []string{"fiberrt", "task", "spawned"}
	keyCompleted      = []string{"fiberrt", "task", "completed"}
	keyStolen         = []string{"fiberrt", "task", "stolen"}
	keyParked         = []string{"fiberrt", "worker", "parked"}
	keyTimersFired    = []string{"fiberrt", "timer", "fired"}
	keyTimersCanceled = []string{"fiberrt", "timer", "canceled"}
	keyExecQueueDepth = []string{"fiberrt", "execqueue", "depth"}
)

// Counters is a process- or group-wide set of runtime counters. The
// zero value is ready to use. Every method is safe for concurrent use.
type Counters struct {
	spawned        atomic.Int64
	completed      atomic.Int64
	stolen         atomic.Int64
	parked         atomic.Int64
	timersFired    atomic.Int64
	timersCanceled atomic.Int64
	execQueueDepth atomic.Int64

	sink atomic.Pointer[Sink]
}

// Attach installs a Sink every subsequent increment/gauge-set also
// forwards to. Passing nil detaches the current sink.
func (c *Counters) Attach(sink Sink) {
	if sink == nil {
		c.sink.Store(nil)
		return
	}
	c.sink.Store(&sink)
}

func (c *Counters) forwardCounter(key []string, delta int64) {
	if s := c.sink.Load(); s != nil {
		(*s).IncrCounter(key, float32(delta))
	}
}

func (c *Counters) forwardGauge(key []string, val int64) {
	if s := c.sink.Load(); s != nil {
		(*s).SetGauge(key, float32(val))
	}
}

// IncSpawned records one task having been spawned.
func (c *Counters) IncSpawned() {
	c.spawned.Add(1)
	c.forwardCounter(keySpawned, 1)
}

// IncCompleted records one task having reached StateDone.
func (c *Counters) IncCompleted() {
	c.completed.Add(1)
	c.forwardCounter(keyCompleted, 1)
}

// IncStolen records one task having been picked up by a thief rather
// than its owning worker.
func (c *Counters) IncStolen() {
	c.stolen.Add(1)
	c.forwardCounter(keyStolen, 1)
}

// IncParked records one worker transitioning into the parked state.
func (c *Counters) IncParked() {
	c.parked.Add(1)
	c.forwardCounter(keyParked, 1)
}

// IncTimersFired records one timer callback having fired.
func (c *Counters) IncTimersFired() {
	c.timersFired.Add(1)
	c.forwardCounter(keyTimersFired, 1)
}

// IncTimersCanceled records one timer having been canceled before
// firing.
func (c *Counters) IncTimersCanceled() {
	c.timersCanceled.Add(1)
	c.forwardCounter(keyTimersCanceled, 1)
}

// SetExecQueueDepth records an execution queue's current pending
// count as a gauge.
func (c *Counters) SetExecQueueDepth(depth int) {
	c.execQueueDepth.Store(int64(depth))
	c.forwardGauge(keyExecQueueDepth, int64(depth))
}

// Snapshot is a point-in-time copy of every counter, used for
// reporting (see cmd/fiberdemo) without holding a live reference into
// the runtime.
type Snapshot struct {
	Spawned        int64
	Completed      int64
	Stolen         int64
	Parked         int64
	TimersFired    int64
	TimersCanceled int64
	ExecQueueDepth int64
}

// Snapshot reads every counter's current value.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Spawned:        c.spawned.Load(),
		Completed:      c.completed.Load(),
		Stolen:         c.stolen.Load(),
		Parked:         c.parked.Load(),
		TimersFired:    c.timersFired.Load(),
		TimersCanceled: c.timersCanceled.Load(),
		ExecQueueDepth: c.execQueueDepth.Load(),
	}
}
