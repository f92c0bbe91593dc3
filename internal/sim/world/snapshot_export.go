package world

import (
	"fmt"
	"log"

	"voxelstore.ai/internal/persistence/snapshot"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/terrain/store"
)

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		ProtocolVersion: w.cfg.ProtocolVersion,
		DefaultBlock:    w.vol.Default().Name,
		PaletteDigest:   w.blocks.PaletteDigest,
		Columns:         w.vol.ExportColumns(),
	}
}

// VolumeFromSnapshot rebuilds the volume stored in snap. A catalog whose
// palette digest differs from the one recorded is accepted with a warning.
func VolumeFromSnapshot(snap snapshot.SnapshotV1, blocks *catalogs.BlockCatalog, logger *log.Logger) (*store.Volume, error) {
	def, ok := blocks.ByName(snap.DefaultBlock)
	if !ok {
		return nil, fmt.Errorf("snapshot default block %q is not in the catalog", snap.DefaultBlock)
	}
	if logger != nil && snap.PaletteDigest != "" && snap.PaletteDigest != blocks.PaletteDigest {
		logger.Printf("snapshot %s@%d: block palette digest differs from the loaded catalog", snap.Header.WorldID, snap.Header.Tick)
	}
	return store.ImportColumns(blocks, def, logger, snap.Columns)
}

// NewFromSnapshot resumes a world at the tick after the snapshot.
func NewFromSnapshot(cfg WorldConfig, snap snapshot.SnapshotV1, blocks *catalogs.BlockCatalog, logger *log.Logger) (*World, error) {
	if snap.Header.WorldID != "" && snap.Header.WorldID != cfg.ID {
		return nil, fmt.Errorf("snapshot world %q does not match %q", snap.Header.WorldID, cfg.ID)
	}
	vol, err := VolumeFromSnapshot(snap, blocks, logger)
	if err != nil {
		return nil, err
	}
	w, err := New(cfg, vol, logger)
	if err != nil {
		return nil, err
	}
	w.tick.Store(snap.Header.Tick + 1)
	w.storeMetrics(0)
	return w, nil
}
