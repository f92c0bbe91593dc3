package section

import "voxelstore.ai/internal/sim/world/logic/ids"

// LoadLegacy rebuilds a section from a byte-per-block id array and a
// nibble-per-block metadata array. It reports false when either array has the
// wrong length.
func LoadLegacy(blocks, meta []byte) (*Section, bool) {
	return LoadLegacyWithLight(blocks, meta, nil, nil)
}

// LoadLegacyWithLight is LoadLegacy that also adopts stored light arrays.
// Light arrays of the wrong size are replaced with full brightness.
func LoadLegacyWithLight(blocks, meta, blockLight, skyLight []byte) (*Section, bool) {
	if len(blocks) != Volume || len(meta) != Volume/2 {
		return nil, false
	}

	raw := make([]ids.BlockID, Volume)
	seen := make(map[ids.BlockID]int)
	var palette []PaletteEntry
	for i := range raw {
		nibble := meta[i/2]
		if i%2 == 0 {
			nibble &= 0x0F
		} else {
			nibble >>= 4
		}
		id := ids.BlockID(blocks[i])<<ids.MetaBits | ids.BlockID(nibble)
		raw[i] = id

		if p, ok := seen[id]; ok {
			palette[p].Count++
			continue
		}
		seen[id] = len(palette)
		palette = append(palette, PaletteEntry{ID: id, Count: 1})
	}

	bits := bitsForPalette(len(palette))
	s := &Section{
		bits:       bits,
		words:      make([]uint64, wordCount(bits)),
		blockLight: lightOrFull(blockLight),
		skyLight:   lightOrFull(skyLight),
	}
	if bits == DirectBits {
		for i, id := range raw {
			writeBits(s.words, i*bits, bits, uint64(id))
		}
		return s, true
	}
	s.palette = palette
	for i, id := range raw {
		writeBits(s.words, i*bits, bits, uint64(seen[id]))
	}
	return s, true
}

func lightOrFull(b []byte) []byte {
	if len(b) != LightLen {
		return fullLight()
	}
	out := make([]byte, LightLen)
	copy(out, b)
	return out
}
