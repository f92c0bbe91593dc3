// Package section stores one 16x16x16 cube of block ids as a bit-packed array
// with an optional palette, in the layout the 1.12 chunk data packet expects.
package section

import (
	"fmt"

	"voxelstore.ai/internal/sim/world/logic/ids"
	"voxelstore.ai/internal/sim/world/terrain/coords"
)

const (
	Width  = coords.SectionWidth
	Height = coords.SectionHeight
	Volume = Width * Width * Height

	LightLen = Volume / 2

	MinBits         = 4
	MaxIndirectBits = 8
	DirectBits      = ids.Bits
)

// Section is not safe for concurrent use; its owning column is.
type Section struct {
	bits    int
	palette []PaletteEntry // nil in direct mode
	words   []uint64

	blockLight []byte
	skyLight   []byte
}

// New returns a section where every slot holds defaultID.
func New(defaultID ids.BlockID) *Section {
	checkID(defaultID)
	return &Section{
		bits:       MinBits,
		palette:    []PaletteEntry{{ID: defaultID, Count: Volume}},
		words:      make([]uint64, wordCount(MinBits)),
		blockLight: fullLight(),
		skyLight:   fullLight(),
	}
}

func (s *Section) Get(x, y, z int) ids.BlockID {
	return s.idAt(index(x, y, z))
}

func (s *Section) Set(x, y, z int, id ids.BlockID) {
	checkID(id)
	i := index(x, y, z)

	wasDirect := s.Direct()
	old := readBits(s.words, i*s.bits, s.bits)

	v := s.resolve(id)
	writeBits(s.words, i*s.bits, s.bits, v)

	// Palette indices survive growth, so old still names the replaced entry.
	if !wasDirect && !s.Direct() {
		s.palette[old].Count--
	}
}

func (s *Section) BitsPerBlock() int { return s.bits }
func (s *Section) Direct() bool      { return s.bits == DirectBits }
func (s *Section) WordCount() int    { return len(s.words) }
func (s *Section) PaletteLen() int   { return len(s.palette) }

// Palette returns a copy of the palette, or nil in direct mode.
func (s *Section) Palette() []PaletteEntry {
	if s.palette == nil {
		return nil
	}
	out := make([]PaletteEntry, len(s.palette))
	copy(out, s.palette)
	return out
}

func (s *Section) idAt(i int) ids.BlockID {
	v := readBits(s.words, i*s.bits, s.bits)
	if s.Direct() {
		return ids.BlockID(v)
	}
	if v >= uint64(len(s.palette)) {
		panic(fmt.Sprintf("section: slot %d holds palette index %d of %d", i, v, len(s.palette)))
	}
	return s.palette[v].ID
}

func index(x, y, z int) int {
	if x < 0 || x >= Width || y < 0 || y >= Height || z < 0 || z >= Width {
		panic(fmt.Sprintf("section: position out of range: (%d,%d,%d)", x, y, z))
	}
	return (y*Height+z)*Width + x
}

func checkID(id ids.BlockID) {
	if !id.Valid() {
		panic(fmt.Sprintf("section: block id %d exceeds %d bits", id, ids.Bits))
	}
}

func fullLight() []byte {
	b := make([]byte, LightLen)
	for i := range b {
		b[i] = 0xFF
	}
	return b
}
