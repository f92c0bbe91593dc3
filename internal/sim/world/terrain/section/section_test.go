package section

import (
	"math/rand"
	"testing"

	"voxelstore.ai/internal/sim/world/logic/ids"
)

func pos(i int) (x, y, z int) {
	return i % Width, i / (Width * Width), (i / Width) % Width
}

func TestNewSection(t *testing.T) {
	s := New(0)
	if s.BitsPerBlock() != 4 {
		t.Fatalf("bits=%d want 4", s.BitsPerBlock())
	}
	if s.WordCount() != 256 {
		t.Fatalf("words=%d want 256", s.WordCount())
	}
	p := s.Palette()
	if len(p) != 1 || p[0].ID != 0 || p[0].Count != Volume {
		t.Fatalf("unexpected palette: %+v", p)
	}
	for _, b := range s.blockLight {
		if b != 0xFF {
			t.Fatalf("block light not full")
		}
	}
}

func TestNewSectionNonZeroDefault(t *testing.T) {
	stone := ids.Make(1, 0)
	s := New(stone)
	if got := s.Get(15, 15, 15); got != stone {
		t.Fatalf("Get=%d want %d", got, stone)
	}
}

func TestSetGetEveryID(t *testing.T) {
	s := New(0)
	for id := 0; id <= int(ids.Max); id++ {
		x, y, z := pos(id % Volume)
		s.Set(x, y, z, ids.BlockID(id))
		if got := s.Get(x, y, z); got != ids.BlockID(id) {
			t.Fatalf("id %d at (%d,%d,%d): got %d", id, x, y, z, got)
		}
	}
	// The last pass over the grid wrote ids 4096*k+i for the final k.
	for i := 0; i < Volume; i++ {
		want := ids.BlockID(i + Volume)
		x, y, z := pos(i)
		if got := s.Get(x, y, z); got != want {
			t.Fatalf("slot %d: got %d want %d", i, got, want)
		}
	}
	if !s.Direct() {
		t.Fatalf("expected direct mode")
	}
}

func TestRandomWritesMatchShadow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := New(0)
	shadow := make([]ids.BlockID, Volume)
	prevBits := s.BitsPerBlock()

	for step := 0; step < 40000; step++ {
		i := rng.Intn(Volume)
		// Grow slowly so every width is visited.
		limit := 1 + step/100
		if limit > int(ids.Max) {
			limit = int(ids.Max)
		}
		id := ids.BlockID(rng.Intn(limit + 1))
		x, y, z := pos(i)
		s.Set(x, y, z, id)
		shadow[i] = id

		if s.BitsPerBlock() < prevBits {
			t.Fatalf("width decreased from %d to %d at step %d", prevBits, s.BitsPerBlock(), step)
		}
		if s.BitsPerBlock() != prevBits {
			prevBits = s.BitsPerBlock()
			for j := 0; j < Volume; j++ {
				jx, jy, jz := pos(j)
				if got := s.Get(jx, jy, jz); got != shadow[j] {
					t.Fatalf("after growth to %d, slot %d: got %d want %d", prevBits, j, got, shadow[j])
				}
			}
		}
	}
	for j := 0; j < Volume; j++ {
		jx, jy, jz := pos(j)
		if got := s.Get(jx, jy, jz); got != shadow[j] {
			t.Fatalf("slot %d: got %d want %d", j, got, shadow[j])
		}
	}
}

func TestWidthThresholds(t *testing.T) {
	cases := []struct {
		distinct int
		want     int
	}{
		{1, 4},
		{15, 4},
		{16, 5},
		{32, 6},
		{64, 7},
		{128, 8},
		{256, 13},
		{257, 13},
	}
	for _, c := range cases {
		s := New(0)
		// id 0 is the default, so writing ids 0..distinct-1 yields distinct palette entries.
		for id := 0; id < c.distinct; id++ {
			x, y, z := pos(id)
			s.Set(x, y, z, ids.BlockID(id))
		}
		if got := s.BitsPerBlock(); got != c.want {
			t.Fatalf("%d distinct ids: bits=%d want %d", c.distinct, got, c.want)
		}
		if got := s.WordCount(); got != Volume*c.want/64 {
			t.Fatalf("%d distinct ids: words=%d", c.distinct, got)
		}
	}
}

func TestDirectModeDropsPalette(t *testing.T) {
	s := New(0)
	for id := 0; id < 256; id++ {
		x, y, z := pos(id)
		s.Set(x, y, z, ids.BlockID(id))
	}
	if !s.Direct() || s.Palette() != nil {
		t.Fatalf("expected direct mode without palette, bits=%d", s.BitsPerBlock())
	}
	s.Set(0, 0, 0, ids.Max)
	if s.BitsPerBlock() != DirectBits {
		t.Fatalf("direct mode must be terminal")
	}
}

func TestPaletteCountsTrackOccupancy(t *testing.T) {
	s := New(0)
	s.Set(1, 2, 3, 16)
	s.Set(1, 2, 3, 32)
	s.Set(4, 5, 6, 32)
	s.Set(4, 5, 6, 32)

	counts := map[ids.BlockID]int{}
	total := 0
	for _, e := range s.Palette() {
		counts[e.ID] = e.Count
		total += e.Count
	}
	if total != Volume {
		t.Fatalf("palette counts sum to %d want %d", total, Volume)
	}
	if counts[0] != Volume-2 || counts[16] != 0 || counts[32] != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if s.PaletteLen() != 3 {
		t.Fatalf("palette must only grow, len=%d", s.PaletteLen())
	}
}

func TestOutOfRangePositionPanics(t *testing.T) {
	s := New(0)
	for _, p := range [][3]int{{16, 0, 0}, {0, 16, 0}, {0, 0, 16}, {-1, 0, 0}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for %v", p)
				}
			}()
			s.Get(p[0], p[1], p[2])
		}()
	}
}

func TestSetInvalidIDPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New(0).Set(0, 0, 0, ids.Max+1)
}
