package world

import (
	"time"

	"voxelstore.ai/internal/sim/world/terrain/coords"
)

func (w *World) step(edits []editReq) {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	recorded := make([]RecordedEdit, 0, len(edits))
	for _, req := range edits {
		res, ok := w.applyEdit(nowTick, req.Edit)
		if ok {
			recorded = append(recorded, RecordedEdit{Actor: req.Actor, Pos: posArray(req.Pos), Block: req.Block.Name})
		}
		if req.Resp != nil {
			select {
			case req.Resp <- editResp{Result: res, OK: ok}:
			default:
				// Caller gave up; never block the loop.
			}
		}
	}

	if w.tickLogger != nil && len(recorded) > 0 {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:     nowTick,
			Edits:    recorded,
			Columns:  w.vol.ColumnCount(),
			Sections: w.vol.SectionCount(),
			Digest:   w.stateDigest(nowTick),
		})
	}

	// Snapshot every N ticks, starting after tick 0.
	if w.snapshotSink != nil && nowTick != 0 && w.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
			snap := w.ExportSnapshot(nowTick)
			select {
			case w.snapshotSink <- snap:
			default:
				w.logger.Printf("world %s: snapshot sink backed up, dropping tick %d", w.cfg.ID, nowTick)
			}
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	w.tick.Add(1)
	w.storeMetrics(stepMS)
}

func (w *World) applyEdit(nowTick uint64, e Edit) (EditResult, bool) {
	if !coords.InWorldY(e.Pos.Y) {
		w.logger.Printf("world %s: dropping edit outside the world at %s", w.cfg.ID, e.Pos)
		return EditResult{Tick: nowTick}, false
	}
	from := w.vol.GetBlock(e.Pos)
	w.vol.SetBlock(e.Pos, e.Block)
	w.editsApplied++
	w.auditSetBlock(nowTick, e.Actor, e.Pos, from, e.Block, "")
	return EditResult{Tick: nowTick, From: from, To: e.Block}, true
}

func posArray(p coords.BlockPos) [3]int { return [3]int{p.X, p.Y, p.Z} }
