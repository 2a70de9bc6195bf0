package syncprim

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMutexExcludesConcurrentAccess(t *testing.T) {
	var mu Mutex
	var counter int
	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()
	if counter != n {
		t.Fatalf("counter = %d, want %d", counter, n)
	}
}

func TestMutexTryLock(t *testing.T) {
	var mu Mutex
	if !mu.TryLock() {
		t.Fatal("TryLock on unlocked mutex failed")
	}
	if mu.TryLock() {
		t.Fatal("TryLock on held mutex succeeded")
	}
	mu.Unlock()
	if !mu.TryLock() {
		t.Fatal("TryLock after Unlock failed")
	}
}

func TestMutexLockTimeout(t *testing.T) {
	var mu Mutex
	mu.Lock()
	done := make(chan bool, 1)
	go func() { done <- mu.LockTimeout(20 * time.Millisecond) }()
	if <-done {
		t.Fatal("LockTimeout succeeded while mutex was held")
	}
	mu.Unlock()
}

func TestCondSignalWakesOneWaiter(t *testing.T) {
	var mu Mutex
	cond := NewCond(&mu)
	var ready int32
	woken := make(chan struct{})

	go func() {
		mu.Lock()
		atomic.StoreInt32(&ready, 1)
		cond.Wait()
		mu.Unlock()
		close(woken)
	}()

	for atomic.LoadInt32(&ready) == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond) // let the waiter actually park
	mu.Lock()
	cond.Signal()
	mu.Unlock()

	select {
	case <-woken:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestCondBroadcastWakesAll(t *testing.T) {
	var mu Mutex
	cond := NewCond(&mu)
	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			mu.Lock()
			cond.Wait()
			mu.Unlock()
		}()
	}
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	cond.Broadcast()
	mu.Unlock()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every waiter woke from Broadcast")
	}
}

func TestCountdownEventWaitsForAllSignals(t *testing.T) {
	e, err := NewCountdownEvent(3)
	if err != nil {
		t.Fatalf("NewCountdownEvent: %v", err)
	}
	done := make(chan struct{})
	go func() { e.Wait(); close(done) }()

	e.CountDown()
	e.CountDown()
	select {
	case <-done:
		t.Fatal("Wait returned before count reached zero")
	case <-time.After(20 * time.Millisecond):
	}
	e.CountDown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait never returned after final CountDown")
	}
}

func TestCountdownEventWaitTimeout(t *testing.T) {
	e, _ := NewCountdownEvent(1)
	if e.WaitTimeout(20 * time.Millisecond) {
		t.Fatal("WaitTimeout reported success before CountDown")
	}
	e.CountDown()
	if !e.WaitTimeout(time.Second) {
		t.Fatal("WaitTimeout reported failure after CountDown")
	}
}

func TestSessionSetFailedRunsOnce(t *testing.T) {
	s := NewSession()
	id := s.Id()
	var fails int32
	var wg sync.WaitGroup
	const n = 20
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id.SetFailed(func() { atomic.AddInt32(&fails, 1) })
		}()
	}
	wg.Wait()
	if fails != 1 {
		t.Fatalf("teardown ran %d times, want 1", fails)
	}
}

func TestSessionIdInvalidatedOnDestroy(t *testing.T) {
	s := NewSession()
	id := s.Id()
	if !id.Valid() {
		t.Fatal("fresh Id reported invalid")
	}
	if !id.UnlockAndDestroy() {
		t.Fatal("UnlockAndDestroy reported false on first call")
	}
	if id.Valid() {
		t.Fatal("Id remained valid after UnlockAndDestroy")
	}
	if err := id.Lock(); err != ErrInvalidId {
		t.Fatalf("Lock after destroy = %v, want ErrInvalidId", err)
	}
}

func TestSessionUnlockAndDestroyReleasesQueuedWaiter(t *testing.T) {
	s := NewSession()
	holder := s.Id()
	if err := holder.Lock(); err != nil {
		t.Fatalf("holder Lock: %v", err)
	}

	waiter := s.Id()
	waiterErr := make(chan error, 1)
	waiting := make(chan struct{})
	go func() {
		close(waiting)
		waiterErr <- waiter.Lock()
	}()

	<-waiting
	time.Sleep(20 * time.Millisecond) // let waiter actually park in Lock

	if !holder.UnlockAndDestroy() {
		t.Fatal("UnlockAndDestroy reported false")
	}

	select {
	case err := <-waiterErr:
		if err != ErrInvalidId {
			t.Fatalf("waiter Lock returned %v, want ErrInvalidId", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter blocked in Lock was never released by UnlockAndDestroy")
	}
}

func TestSessionLockExcludesConcurrentHolders(t *testing.T) {
	s := NewSession()
	id := s.Id()
	var counter int
	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := id.Lock(); err != nil {
				return
			}
			counter++
			id.Unlock()
		}()
	}
	wg.Wait()
	if counter != n {
		t.Fatalf("counter = %d, want %d", counter, n)
	}
}

func TestSessionLoopersTerminateCleanlyAfterDestroy(t *testing.T) {
	s := NewSession()
	id := s.Id()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	const loopers = 50
	for i := 0; i < loopers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if err := id.Lock(); err != nil {
					return
				}
				id.Unlock()
			}
		}()
	}
	time.Sleep(10 * time.Millisecond)
	destroyer := s.Id()
	if !destroyer.UnlockAndDestroy() {
		t.Fatal("UnlockAndDestroy reported false")
	}
	close(stop)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("looper tasks never terminated after destroy")
	}
	if err := id.Lock(); err != ErrInvalidId {
		t.Fatalf("Lock(id) after destroy = %v, want ErrInvalidId", err)
	}
}
