package world

import (
	"context"
	"errors"
)

type adminSnapshotReq struct {
	Resp chan adminSnapshotResp
}

type adminSnapshotResp struct {
	Tick uint64
	Err  string
}

// RequestSnapshot asks the world loop to hand a snapshot to the sink at the
// next tick boundary.
func (w *World) RequestSnapshot(ctx context.Context) (uint64, error) {
	if w == nil {
		return 0, errors.New("snapshot not available")
	}
	resp := make(chan adminSnapshotResp, 1)
	if err := send(ctx, w, w.admin, adminSnapshotReq{Resp: resp}); err != nil {
		return 0, err
	}
	r, err := await(ctx, w, resp)
	if err != nil {
		return 0, err
	}
	if r.Err != "" {
		return r.Tick, errors.New(r.Err)
	}
	return r.Tick, nil
}

func (w *World) handleAdminSnapshotRequests(reqs []adminSnapshotReq) {
	if len(reqs) == 0 {
		return
	}
	cur := w.tick.Load()
	snapTick := uint64(0)
	if cur > 0 {
		snapTick = cur - 1
	}

	errStr := ""
	if w.snapshotSink == nil {
		errStr = "snapshot sink not configured"
	} else {
		snap := w.ExportSnapshot(snapTick)
		select {
		case w.snapshotSink <- snap:
		default:
			errStr = "snapshot sink backpressure"
		}
	}

	resp := adminSnapshotResp{Tick: snapTick, Err: errStr}
	for _, r := range reqs {
		select {
		case r.Resp <- resp:
		default:
		}
	}
}
