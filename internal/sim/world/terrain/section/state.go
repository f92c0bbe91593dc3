package section

import (
	"fmt"

	"voxelstore.ai/internal/sim/world/logic/ids"
)

// State is the raw storage of a section, used for snapshots. Restoring a
// State does not re-encode anything.
type State struct {
	BitsPerBlock int
	Palette      []PaletteEntry
	Words        []uint64
	BlockLight   []byte
	SkyLight     []byte
}

func (s *Section) State() State {
	st := State{
		BitsPerBlock: s.bits,
		Palette:      s.Palette(),
		Words:        make([]uint64, len(s.words)),
		BlockLight:   make([]byte, LightLen),
		SkyLight:     make([]byte, LightLen),
	}
	copy(st.Words, s.words)
	copy(st.BlockLight, s.blockLight)
	copy(st.SkyLight, s.skyLight)
	return st
}

// FromState validates and adopts a copy of st.
func FromState(st State) (*Section, error) {
	if !validBits(st.BitsPerBlock) {
		return nil, fmt.Errorf("invalid bits per block: %d", st.BitsPerBlock)
	}
	if want := wordCount(st.BitsPerBlock); len(st.Words) != want {
		return nil, fmt.Errorf("word count mismatch: got %d want %d", len(st.Words), want)
	}
	if len(st.BlockLight) != LightLen || len(st.SkyLight) != LightLen {
		return nil, fmt.Errorf("light length mismatch: block=%d sky=%d want %d", len(st.BlockLight), len(st.SkyLight), LightLen)
	}

	direct := st.BitsPerBlock == DirectBits
	switch {
	case direct && len(st.Palette) != 0:
		return nil, fmt.Errorf("direct section carries a palette of %d entries", len(st.Palette))
	case !direct && len(st.Palette) == 0:
		return nil, fmt.Errorf("indirect section without palette")
	case !direct && bitsForPalette(len(st.Palette)) > st.BitsPerBlock:
		return nil, fmt.Errorf("palette of %d entries does not fit %d bits", len(st.Palette), st.BitsPerBlock)
	}

	s := &Section{
		bits:       st.BitsPerBlock,
		words:      make([]uint64, len(st.Words)),
		blockLight: make([]byte, LightLen),
		skyLight:   make([]byte, LightLen),
	}
	copy(s.words, st.Words)
	copy(s.blockLight, st.BlockLight)
	copy(s.skyLight, st.SkyLight)
	if !direct {
		s.palette = make([]PaletteEntry, len(st.Palette))
		copy(s.palette, st.Palette)
	}

	for i := 0; i < Volume; i++ {
		v := readBits(s.words, i*s.bits, s.bits)
		if direct {
			if !ids.BlockID(v).Valid() {
				return nil, fmt.Errorf("slot %d holds invalid block id %d", i, v)
			}
			continue
		}
		if v >= uint64(len(s.palette)) {
			return nil, fmt.Errorf("slot %d holds palette index %d of %d", i, v, len(s.palette))
		}
	}
	return s, nil
}
