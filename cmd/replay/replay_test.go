package main

import (
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"

	persistlog "voxelstore.ai/internal/persistence/log"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/tuning"
	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/terrain/coords"
	"voxelstore.ai/internal/sim/world/terrain/store"
)

func newWorld(t *testing.T, cats *catalogs.Catalogs) *world.World {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	w, err := world.New(world.ConfigFromTuning("replay", tuning.Defaults()), store.NewVolume(cats.Blocks, cats.Blocks.Air(), logger), logger)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

// record runs a few ticks with gaps and returns the tick log dir.
func record(t *testing.T, cats *catalogs.Catalogs) string {
	t.Helper()
	worldDir := t.TempDir()
	tl := persistlog.NewTickLogger(worldDir)
	w := newWorld(t, cats)
	w.SetTickLogger(tl)

	stone, _ := cats.Blocks.ByName("STONE")
	dirt, _ := cats.Blocks.ByName("DIRT")
	air := cats.Blocks.Air()

	w.StepOnce([]world.Edit{{Actor: "a", Pos: coords.BlockPos{X: 0, Y: 100, Z: 0}, Block: stone}})
	w.StepOnce(nil)
	w.StepOnce(nil)
	w.StepOnce([]world.Edit{
		{Actor: "a", Pos: coords.BlockPos{X: -17, Y: 3, Z: 40}, Block: dirt},
		{Actor: "b", Pos: coords.BlockPos{X: 0, Y: 100, Z: 0}, Block: air},
	})
	w.SkipTo(500)
	w.StepOnce([]world.Edit{{Actor: "b", Pos: coords.BlockPos{X: 31, Y: 255, Z: -1}, Block: stone}})

	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return filepath.Join(worldDir, "ticks")
}

func TestReplayMatchesDigests(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	dir := record(t, cats)
	files, err := persistlog.ListFiles(dir, persistlog.TicksPrefix)
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}

	w := newWorld(t, cats)
	res, err := replay(w, cats.Blocks, files, 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Checked != 3 || res.Edits != 4 {
		t.Fatalf("res=%+v", res)
	}
	if w.CurrentTick() != 501 {
		t.Fatalf("tick=%d", w.CurrentTick())
	}
	if got := w.DebugVolume().GetBlock(coords.BlockPos{X: 31, Y: 255, Z: -1}); got.Name != "STONE" {
		t.Fatalf("block=%s", got.Name)
	}

	// to_tick stops before the last entry.
	w2 := newWorld(t, cats)
	res, err = replay(w2, cats.Blocks, files, 0, 10)
	if err != nil {
		t.Fatalf("replay to 10: %v", err)
	}
	if res.Checked != 2 || w2.CurrentTick() != 4 {
		t.Fatalf("res=%+v tick=%d", res, w2.CurrentTick())
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	dir := t.TempDir()
	jw := persistlog.NewHourlyJSONL(dir, persistlog.TicksPrefix, 0)
	if err := jw.Write(world.TickLogEntry{
		Tick:   0,
		Edits:  []world.RecordedEdit{{Actor: "a", Pos: [3]int{1, 2, 3}, Block: "STONE"}},
		Digest: "not-a-digest",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = jw.Close()

	files, _ := persistlog.ListFiles(dir, persistlog.TicksPrefix)
	_, err = replay(newWorld(t, cats), cats.Blocks, files, 0, 0)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 0") {
		t.Fatalf("err=%v", err)
	}
}
