package worldtest

import (
	"io"
	"log"
	"testing"

	"voxelstore.ai/internal/persistence/snapshot"
	"voxelstore.ai/internal/sim/catalogs"
	world "voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/terrain/coords"
	"voxelstore.ai/internal/sim/world/terrain/store"
)

// Harness drives a world through its exported API without a running loop:
// - Set() queues edits by block name
// - Step() applies the queue as one tick via StepOnce()
// - Block()/Chunk() read the volume between ticks
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	pending []world.Edit
	digests []string
}

func NewHarness(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	vol := store.NewVolume(cats.Blocks, cats.Blocks.Air(), logger)
	w, err := world.New(cfg, vol, logger)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, Cats: cats, W: w}
}

// NewHarnessFromSnapshot resumes a harness from a snapshot.
func NewHarnessFromSnapshot(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs, snap snapshot.SnapshotV1) *Harness {
	t.Helper()
	w, err := world.NewFromSnapshot(cfg, snap, cats.Blocks, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("world.NewFromSnapshot: %v", err)
	}
	return &Harness{T: t, Cats: cats, W: w}
}

func (h *Harness) Set(x, y, z int, block string) {
	h.T.Helper()
	b, ok := h.Cats.Blocks.Resolve(block)
	if !ok {
		h.T.Fatalf("unknown block %q", block)
	}
	h.pending = append(h.pending, world.Edit{Actor: "harness", Pos: coords.BlockPos{X: x, Y: y, Z: z}, Block: b})
}

// Step applies the queued edits and returns the state digest of the tick.
func (h *Harness) Step() string {
	_, digest := h.W.StepOnce(h.pending)
	h.pending = h.pending[:0]
	h.digests = append(h.digests, digest)
	return digest
}

func (h *Harness) StepN(n int) {
	for i := 0; i < n; i++ {
		h.Step()
	}
}

func (h *Harness) Digests() []string { return h.digests }

func (h *Harness) Block(x, y, z int) string {
	return h.W.DebugVolume().GetBlock(coords.BlockPos{X: x, Y: y, Z: z}).Name
}

func (h *Harness) Chunk(cx, cz int) (uint16, []byte) {
	return h.W.DebugVolume().GetChunkData(coords.ChunkKey{CX: cx, CZ: cz})
}
