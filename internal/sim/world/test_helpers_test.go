package world

import (
	"io"
	"log"
	"testing"

	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/terrain/store"
)

func loadTestCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func newTestWorld(t *testing.T, cfg WorldConfig) *World {
	t.Helper()
	cats := loadTestCatalogs(t)
	logger := log.New(io.Discard, "", 0)
	vol := store.NewVolume(cats.Blocks, cats.Blocks.Air(), logger)
	w, err := New(cfg, vol, logger)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func mustBlock(t *testing.T, w *World, name string) catalogs.Block {
	t.Helper()
	b, ok := w.Catalog().ByName(name)
	if !ok {
		t.Fatalf("missing block %s", name)
	}
	return b
}

type recordingAudit struct{ entries []AuditEntry }

func (r *recordingAudit) WriteAudit(e AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

type recordingTicks struct{ entries []TickLogEntry }

func (r *recordingTicks) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}
