package world

import (
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/terrain/coords"
)

func (w *World) auditSetBlock(tick uint64, actor string, pos coords.BlockPos, from, to catalogs.Block, reason string) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:   tick,
		Actor:  actor,
		Action: "SET_BLOCK",
		Pos:    posArray(pos),
		From:   uint16(from.ID),
		To:     uint16(to.ID),
		Reason: reason,
	})
}
