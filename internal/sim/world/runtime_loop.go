package world

import (
	"context"
	"time"
)

// Run drives the tick loop until ctx is cancelled or Stop is called. Edits
// are applied at the tick in arrival order; reads are answered between ticks.
func (w *World) Run(ctx context.Context) error {
	defer close(w.done)

	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingEdits []editReq
	var pendingAdmin []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.blockReq:
			w.handleBlockReq(req)
		case req := <-w.chunkReq:
			w.handleChunkReq(req)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case req := <-w.inbox:
			pendingEdits = append(pendingEdits, req)
		case <-ticker.C:
			w.step(pendingEdits)
			w.handleAdminSnapshotRequests(pendingAdmin)
			pendingEdits = pendingEdits[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// StepOnce applies edits as one tick with the same ordering as Run. It is
// for replays and tests and must not be mixed with a running loop.
func (w *World) StepOnce(edits []Edit) (tick uint64, digest string) {
	reqs := make([]editReq, 0, len(edits))
	for _, e := range edits {
		reqs = append(reqs, editReq{Edit: e})
	}
	tick = w.tick.Load()
	w.step(reqs)
	return tick, w.stateDigest(tick)
}

// SkipTo moves an idle world forward to tick without applying anything, for
// replaying logs that only record ticks with edits. Like StepOnce it must not
// be mixed with a running loop.
func (w *World) SkipTo(tick uint64) {
	if tick <= w.tick.Load() {
		return
	}
	w.tick.Store(tick)
	w.storeMetrics(0)
}
