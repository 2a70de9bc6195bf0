// Command fiberdemo exercises every scheduling and synchronization
// scenario the runtime is built against, phase by phase, and reports a
// JSON summary at the end — a smaller, single-process stand-in for the
// teacher's phased bootstrap-then-run orchestration in main.go.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sugawarayuuta/sonnet"

	fiberrt "github.com/coreflow/fiberrt"
	"github.com/coreflow/fiberrt/internal/execqueue"
	"github.com/coreflow/fiberrt/internal/obs"
	"github.com/coreflow/fiberrt/internal/task"
	"github.com/coreflow/fiberrt/internal/timer"
)

var errOutOfOrder = errors.New("fiberdemo: execution queue delivered a producer's payloads out of order")
var errLoopersStuck = errors.New("fiberdemo: session loopers did not terminate after destroy")

func errCounterMismatch(got, want int) error {
	return fmt.Errorf("fiberdemo: counter = %d, want %d", got, want)
}

func errFiredMismatch(got, want int64) error {
	return fmt.Errorf("fiberdemo: fired = %d, want %d", got, want)
}

type scenarioResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Detail  string `json:"detail"`
	Elapsed string `json:"elapsed"`
}

func main() {
	rt, err := fiberrt.Start(fiberrt.WithGroups(2), fiberrt.WithWorkersPerGroup(4))
	if err != nil {
		obs.Fatal("fiberdemo: runtime start failed", err)
		os.Exit(1)
	}
	defer rt.Stop()

	shutdown := make(chan struct{})
	setupSignalHandling(rt, shutdown)

	results := []scenarioResult{
		run("spawn-join-single-completion", scenarioSpawnJoin(rt)),
		run("mutex-protected-counter", scenarioMutexCounter(rt)),
		run("sleep-canceled-by-stop", scenarioSleepCancel(rt)),
		run("execution-queue-fifo-per-producer", scenarioExecQueue(rt)),
		run("timer-wheel-cancel-half", scenarioTimers(rt)),
		run("session-loopers-survive-destroy", scenarioSession(rt)),
	}

	snapshot := rt.Metrics().Snapshot()
	out := struct {
		Scenarios []scenarioResult `json:"scenarios"`
		Metrics   interface{}      `json:"metrics"`
	}{Scenarios: results, Metrics: snapshot}

	enc, err := sonnet.MarshalIndent(out, "", "  ")
	if err != nil {
		obs.Fatal("fiberdemo: marshal summary failed", err)
		os.Exit(1)
	}
	os.Stdout.Write(enc)
	os.Stdout.Write([]byte("\n"))

	close(shutdown)
}

func run(name string, fn func() (string, error)) scenarioResult {
	start := time.Now()
	detail, err := fn()
	res := scenarioResult{Name: name, Elapsed: time.Since(start).String()}
	if err != nil {
		res.Passed = false
		res.Detail = err.Error()
		obs.Event("fiberdemo: scenario failed: "+name, err)
		return res
	}
	res.Passed = true
	res.Detail = detail
	return res
}

// scenarioSpawnJoin is S1: spawn(f); join yields exactly one completion.
func scenarioSpawnJoin(rt *fiberrt.Runtime) func() (string, error) {
	return func() (string, error) {
		var ran int32
		id, err := rt.Spawn(func(ctx context.Context) {
			atomic.AddInt32(&ran, 1)
		}, fiberrt.Attrs{Name: "s1"})
		if err != nil {
			return "", err
		}
		if !rt.Join(id, 2*time.Second) {
			return "", context.DeadlineExceeded
		}
		if got := atomic.LoadInt32(&ran); got != 1 {
			return "", errCounterMismatch(int(got), 1)
		}
		return "completions=1", nil
	}
}

// scenarioMutexCounter is S2: 4 workers, 1000 tasks incrementing a
// shared mutex-protected counter, final count must equal 1000.
func scenarioMutexCounter(rt *fiberrt.Runtime) func() (string, error) {
	return func() (string, error) {
		var mu fiberrt.Mutex
		var counter int
		const n = 1000
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			if _, err := rt.Spawn(func(ctx context.Context) {
				defer wg.Done()
				mu.Lock()
				counter++
				mu.Unlock()
			}, fiberrt.Attrs{Name: "s2"}); err != nil {
				return "", err
			}
		}
		wg.Wait()
		if counter != n {
			return "", errCounterMismatch(counter, n)
		}
		return "counter=1000", nil
	}
}

// scenarioSleepCancel is S3: sleep_for(100ms) plus a stop request at
// 10ms must return Canceled within roughly 20ms of the request.
func scenarioSleepCancel(rt *fiberrt.Runtime) func() (string, error) {
	return func() (string, error) {
		result := make(chan error, 1)
		started := make(chan struct{})
		id, err := rt.Spawn(func(ctx context.Context) {
			close(started)
			result <- fiberrt.SleepFor(ctx, 100*time.Millisecond)
		}, fiberrt.Attrs{Name: "s3"})
		if err != nil {
			return "", err
		}
		<-started
		time.Sleep(10 * time.Millisecond)
		stopAt := time.Now()
		rt.RequestStop(id)
		if err := <-result; err != fiberrt.ErrCanceled {
			return "", fmt.Errorf("fiberdemo: sleep returned %v, want %v", err, fiberrt.ErrCanceled)
		}
		if elapsed := time.Since(stopAt); elapsed > 20*time.Millisecond {
			return "", fmt.Errorf("fiberdemo: sleep canceled %v after the stop request, want within 20ms", elapsed)
		}
		rt.Join(id, time.Second)
		return "canceled", nil
	}
}

// scenarioExecQueue is S4: 8 producers each submit sequence 0..99, and
// each producer's own subsequence must be delivered in order.
func scenarioExecQueue(rt *fiberrt.Runtime) func() (string, error) {
	type payload struct {
		producer int
		seq      int
	}
	return func() (string, error) {
		const producers, perProducer = 8, 100
		lastSeq := make([]int, producers)
		for i := range lastSeq {
			lastSeq[i] = -1
		}
		var mismatch atomic.Bool
		var delivered atomic.Int64

		q := execqueue.Start(rt.Group(0), func(iter *execqueue.Iterator[payload]) error {
			for iter.Next() {
				p := iter.Value()
				if p.seq != lastSeq[p.producer]+1 {
					mismatch.Store(true)
				}
				lastSeq[p.producer] = p.seq
				delivered.Add(1)
			}
			return nil
		}, execqueue.Config{Capacity: producers * perProducer, Attrs: task.Attrs{Name: "s4-consumer"}})

		var wg sync.WaitGroup
		wg.Add(producers)
		for p := 0; p < producers; p++ {
			p := p
			go func() {
				defer wg.Done()
				for seq := 0; seq < perProducer; seq++ {
					if _, err := q.Execute(payload{producer: p, seq: seq}, execqueue.Options{}); err != nil {
						return
					}
				}
			}()
		}
		wg.Wait()
		q.Stop()
		q.Join(2 * time.Second)

		if mismatch.Load() {
			return "", errOutOfOrder
		}
		if got := delivered.Load(); got != producers*perProducer {
			return "", errCounterMismatch(int(got), producers*perProducer)
		}
		return "delivered=800", nil
	}
}

// scenarioTimers is S5: 10,000 timers over [1ms, 1s], half canceled at
// random; fired count must equal 10000 minus successful cancels.
func scenarioTimers(rt *fiberrt.Runtime) func() (string, error) {
	return func() (string, error) {
		const total = 10000
		g := rt.Group(0)
		var fired atomic.Int64
		var canceled int64
		rng := rand.New(rand.NewSource(1))

		type entry struct {
			cancelMe bool
		}
		entries := make([]entry, total)
		for i := range entries {
			entries[i].cancelMe = i%2 == 0
		}
		rng.Shuffle(total, func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })

		for i := 0; i < total; i++ {
			d := time.Duration(1+rng.Intn(999)) * time.Millisecond
			id, err := g.ScheduleAfter(d, func(context.Context) { fired.Add(1) }, task.Attrs{Name: "s5-timer"})
			if err != nil {
				return "", err
			}
			if entries[i].cancelMe {
				if g.CancelTimer(id) == timer.Canceled {
					canceled++
				}
			}
		}

		time.Sleep(1100 * time.Millisecond)
		want := int64(total) - canceled
		if fired.Load() != want {
			return "", errFiredMismatch(fired.Load(), want)
		}
		return "fired=" + itoa64(fired.Load()) + " canceled=" + itoa64(canceled), nil
	}
}

// scenarioSession is S6: 50 lock/unlock loopers plus an independent
// unlock_and_destroy, all loopers must terminate cleanly afterward.
func scenarioSession(rt *fiberrt.Runtime) func() (string, error) {
	return func() (string, error) {
		sess := fiberrt.NewSession()
		const loopers = 50
		var wg sync.WaitGroup
		wg.Add(loopers)
		for i := 0; i < loopers; i++ {
			id := sess.Id()
			if _, err := rt.Spawn(func(ctx context.Context) {
				defer wg.Done()
				for !fiberrt.StopRequested(ctx) {
					if err := id.Lock(); err != nil {
						return
					}
					id.Unlock()
				}
			}, fiberrt.Attrs{Name: "s6-looper"}); err != nil {
				return "", err
			}
		}

		time.Sleep(1 * time.Second)
		destroyer := sess.Id()
		destroyer.UnlockAndDestroy()

		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			return "", errLoopersStuck
		}
		return "loopers=50 terminated", nil
	}
}

func setupSignalHandling(rt *fiberrt.Runtime, shutdown <-chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			obs.Event("fiberdemo: received interrupt, shutting down", nil)
			rt.Stop()
			os.Exit(0)
		case <-shutdown:
		}
	}()
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
