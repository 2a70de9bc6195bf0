package group

import (
	"context"
	"runtime"

	"github.com/coreflow/fiberrt/internal/park"
	"github.com/coreflow/fiberrt/internal/squeue"
)

// worker is one scheduling group member: a pinned OS thread running
// the SEARCHING/PUBLISH/WAIT loop, grounded on the teacher's
// PinnedConsumer: each empty scan round is followed by one relax
// instruction, and the worker parks only after a spin budget of such
// rounds is exhausted.
type worker struct {
	idx    int32
	group  *Group
	queue  *squeue.Queue
	picker *squeue.Picker
	wake   park.Word
	miss   int
}

func newWorker(idx int32, g *Group) *worker {
	return &worker{
		idx:    idx,
		group:  g,
		queue:  squeue.NewQueue(g.cfg.QueueCapacity),
		picker: squeue.NewPicker(idx, int32(g.cfg.Workers)),
	}
}

func (w *worker) run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		if w.group.stopped() {
			return
		}
		if item, ok := w.scan(); ok {
			w.group.dispatch(ctx, w.idx, item)
			w.miss = 0
			continue
		}

		// PUBLISH: announce idle before the final re-check, so a
		// spawn landing between our last scan and this publish is
		// never missed (publish-before-recheck, same discipline as
		// park.Word itself).
		w.group.parking.markIdle(w.idx)
		if item, ok := w.scan(); ok {
			w.group.parking.markBusy(w.idx)
			w.group.dispatch(ctx, w.idx, item)
			w.miss = 0
			continue
		}

		if w.group.stopped() {
			w.group.parking.markBusy(w.idx)
			return
		}

		if w.miss < w.group.cfg.SpinBudget {
			w.miss++
			park.Relax()
			w.group.parking.markBusy(w.idx)
			continue
		}

		w.wake.Wait(w.wake.Load(), w.group.cfg.ParkTimeout)
		w.group.parking.markBusy(w.idx)
		w.miss = 0
	}
}

// scan tries the worker's own queue, then steals from peers in rotated
// order.
func (w *worker) scan() (squeue.Item, bool) {
	if item, ok := w.queue.PopOwner(); ok {
		return item, true
	}
	for _, victim := range w.picker.Next() {
		peer := w.group.workers[victim]
		if item, ok := peer.queue.Steal(); ok {
			return item, true
		}
	}
	return 0, false
}
