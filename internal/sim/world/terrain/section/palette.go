package section

import "voxelstore.ai/internal/sim/world/logic/ids"

// PaletteEntry maps a compact slot value to a block id. Count tracks how many
// slots currently hold the entry; entries are never evicted.
type PaletteEntry struct {
	ID    ids.BlockID
	Count int
}

// bitsForPalette returns the narrowest width that can address n palette entries.
// Past 255 entries the section stores raw ids instead.
func bitsForPalette(n int) int {
	switch {
	case n <= 0x0F:
		return 4
	case n <= 0x1F:
		return 5
	case n <= 0x3F:
		return 6
	case n <= 0x7F:
		return 7
	case n <= 0xFF:
		return 8
	default:
		return DirectBits
	}
}

func validBits(bits int) bool {
	return (bits >= MinBits && bits <= MaxIndirectBits) || bits == DirectBits
}

// resolve returns the slot value for id, appending to the palette and widening
// the data array when the palette outgrows the current width.
func (s *Section) resolve(id ids.BlockID) uint64 {
	if s.Direct() {
		return uint64(id)
	}
	for i := range s.palette {
		if s.palette[i].ID == id {
			s.palette[i].Count++
			return uint64(i)
		}
	}

	idx := len(s.palette)
	s.palette = append(s.palette, PaletteEntry{ID: id, Count: 1})
	if bits := bitsForPalette(len(s.palette)); bits > s.bits {
		s.grow(bits)
	}
	if s.Direct() {
		return uint64(id)
	}
	return uint64(idx)
}

// grow re-encodes all slots at a wider width. Indirect to indirect keeps every
// palette index; indirect to direct replaces indices with raw ids and drops
// the palette.
func (s *Section) grow(bits int) {
	if bits <= s.bits || !validBits(bits) {
		panic("section: invalid growth")
	}
	words := make([]uint64, wordCount(bits))
	for i := 0; i < Volume; i++ {
		var v uint64
		if bits == DirectBits {
			v = uint64(s.idAt(i))
		} else {
			v = readBits(s.words, i*s.bits, s.bits)
		}
		writeBits(words, i*bits, bits, v)
	}
	s.words = words
	s.bits = bits
	if bits == DirectBits {
		s.palette = nil
	}
}
