package section

import (
	"testing"

	"voxelstore.ai/internal/sim/world/logic/ids"
)

func legacyArrays(blockAt func(i int) (byte, byte)) (blocks, meta []byte) {
	blocks = make([]byte, Volume)
	meta = make([]byte, Volume/2)
	for i := 0; i < Volume; i++ {
		b, m := blockAt(i)
		blocks[i] = b
		if i%2 == 0 {
			meta[i/2] |= m & 0x0F
		} else {
			meta[i/2] |= m << 4
		}
	}
	return blocks, meta
}

func TestLoadLegacyRejectsBadLengths(t *testing.T) {
	if _, ok := LoadLegacy(make([]byte, Volume-1), make([]byte, Volume/2)); ok {
		t.Fatalf("expected failure for short blocks")
	}
	if _, ok := LoadLegacy(make([]byte, Volume), make([]byte, Volume/2+1)); ok {
		t.Fatalf("expected failure for long metadata")
	}
}

func TestLoadLegacyPaletteOrderAndNibbles(t *testing.T) {
	blocks, meta := legacyArrays(func(i int) (byte, byte) {
		switch {
		case i == 0:
			return 35, 14 // red wool first
		case i == 1:
			return 35, 1 // odd slot uses the high nibble
		default:
			return 1, 0
		}
	})
	s, ok := LoadLegacy(blocks, meta)
	if !ok {
		t.Fatalf("LoadLegacy failed")
	}
	if s.BitsPerBlock() != 4 {
		t.Fatalf("bits=%d want 4", s.BitsPerBlock())
	}
	p := s.Palette()
	want := []PaletteEntry{
		{ID: ids.Make(35, 14), Count: 1},
		{ID: ids.Make(35, 1), Count: 1},
		{ID: ids.Make(1, 0), Count: Volume - 2},
	}
	if len(p) != len(want) {
		t.Fatalf("palette=%+v", p)
	}
	for i := range want {
		if p[i] != want[i] {
			t.Fatalf("palette[%d]=%+v want %+v", i, p[i], want[i])
		}
	}
	if got := s.Get(0, 0, 0); got != ids.Make(35, 14) {
		t.Fatalf("Get(0,0,0)=%s", got)
	}
	if got := s.Get(1, 0, 0); got != ids.Make(35, 1) {
		t.Fatalf("Get(1,0,0)=%s", got)
	}
	if got := s.Get(5, 9, 2); got != ids.Make(1, 0) {
		t.Fatalf("Get(5,9,2)=%s", got)
	}
}

func TestLoadLegacyWidthFromDistinctCount(t *testing.T) {
	cases := []struct {
		distinct int
		want     int
	}{
		{15, 4},
		{16, 5},
		{255, 8},
		{256, 13},
		{600, 13},
	}
	for _, c := range cases {
		blocks, meta := legacyArrays(func(i int) (byte, byte) {
			v := i % c.distinct
			return byte(v >> 4), byte(v & 0x0F)
		})
		s, ok := LoadLegacy(blocks, meta)
		if !ok {
			t.Fatalf("LoadLegacy failed")
		}
		if s.BitsPerBlock() != c.want {
			t.Fatalf("%d distinct: bits=%d want %d", c.distinct, s.BitsPerBlock(), c.want)
		}
		if c.want == DirectBits && s.Palette() != nil {
			t.Fatalf("direct section kept a palette")
		}
		for i := 0; i < Volume; i++ {
			x, y, z := pos(i)
			if got := s.Get(x, y, z); got != ids.BlockID(i%c.distinct) {
				t.Fatalf("%d distinct: slot %d got %d", c.distinct, i, got)
			}
		}
	}
}

func TestLoadLegacyLight(t *testing.T) {
	blocks, meta := legacyArrays(func(int) (byte, byte) { return 0, 0 })
	blockLight := make([]byte, LightLen)
	blockLight[3] = 0x12

	s, ok := LoadLegacyWithLight(blocks, meta, blockLight, make([]byte, 7))
	if !ok {
		t.Fatalf("LoadLegacyWithLight failed")
	}
	if s.blockLight[3] != 0x12 || s.blockLight[0] != 0 {
		t.Fatalf("block light not adopted")
	}
	for _, b := range s.skyLight {
		if b != 0xFF {
			t.Fatalf("sky light of wrong size must be regenerated as full")
		}
	}
	blockLight[3] = 0
	if s.blockLight[3] != 0x12 {
		t.Fatalf("block light must be copied")
	}
}

func TestLoadLegacyThenGrow(t *testing.T) {
	blocks, meta := legacyArrays(func(i int) (byte, byte) { return byte(i % 15), 0 })
	s, _ := LoadLegacy(blocks, meta)
	s.Set(0, 0, 0, ids.Make(200, 3))
	if s.BitsPerBlock() != 5 {
		t.Fatalf("bits=%d want 5", s.BitsPerBlock())
	}
	for i := 1; i < Volume; i++ {
		x, y, z := pos(i)
		if got := s.Get(x, y, z); got != ids.Make(i%15, 0) {
			t.Fatalf("slot %d: got %s", i, got)
		}
	}
}
