package store

import (
	"encoding/hex"
	"fmt"
	"log"

	snapv1 "voxelstore.ai/internal/persistence/snapshot"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/logic/ids"
	"voxelstore.ai/internal/sim/world/terrain/column"
	"voxelstore.ai/internal/sim/world/terrain/coords"
	"voxelstore.ai/internal/sim/world/terrain/section"
)

// ExportColumns copies every loaded column, in LoadedChunkKeys order, into
// snapshot form.
func (v *Volume) ExportColumns() []snapv1.ColumnV1 {
	keys := v.LoadedChunkKeys()
	out := make([]snapv1.ColumnV1, 0, len(keys))
	for _, k := range keys {
		col := v.columns[k]
		digest := col.Digest()
		cv := snapv1.ColumnV1{
			CX:     k.CX,
			CZ:     k.CZ,
			Digest: hex.EncodeToString(digest[:]),
		}
		for y := 0; y < column.SectionCount; y++ {
			s := col.Section(y)
			if s == nil {
				continue
			}
			st := s.State()
			sv := snapv1.SectionV1{
				Y:            y,
				BitsPerBlock: st.BitsPerBlock,
				Words:        st.Words,
				BlockLight:   st.BlockLight,
				SkyLight:     st.SkyLight,
			}
			for _, e := range st.Palette {
				sv.Palette = append(sv.Palette, snapv1.PaletteEntryV1{ID: uint16(e.ID), Count: e.Count})
			}
			cv.Sections = append(cv.Sections, sv)
		}
		out = append(out, cv)
	}
	return out
}

// ImportColumns rebuilds a volume from snapshot columns. Each column digest,
// when present, must match the rebuilt column.
func ImportColumns(blocks *catalogs.BlockCatalog, def catalogs.Block, logger *log.Logger, cols []snapv1.ColumnV1) (*Volume, error) {
	v := NewVolume(blocks, def, logger)
	for _, cv := range cols {
		k := ChunkKey{CX: cv.CX, CZ: cv.CZ}
		if _, dup := v.columns[k]; dup {
			return nil, fmt.Errorf("snapshot column (%d,%d) repeated", k.CX, k.CZ)
		}
		col := column.New()
		for _, sv := range cv.Sections {
			if sv.Y < 0 || sv.Y >= coords.SectionCount {
				return nil, fmt.Errorf("snapshot column (%d,%d): section y=%d out of range", k.CX, k.CZ, sv.Y)
			}
			if col.Section(sv.Y) != nil {
				return nil, fmt.Errorf("snapshot column (%d,%d): section y=%d repeated", k.CX, k.CZ, sv.Y)
			}
			st := section.State{
				BitsPerBlock: sv.BitsPerBlock,
				Words:        sv.Words,
				BlockLight:   sv.BlockLight,
				SkyLight:     sv.SkyLight,
			}
			for _, e := range sv.Palette {
				id := ids.BlockID(e.ID)
				if !id.Valid() {
					return nil, fmt.Errorf("snapshot column (%d,%d): section y=%d: invalid palette id %d", k.CX, k.CZ, sv.Y, e.ID)
				}
				st.Palette = append(st.Palette, section.PaletteEntry{ID: id, Count: e.Count})
			}
			s, err := section.FromState(st)
			if err != nil {
				return nil, fmt.Errorf("snapshot column (%d,%d): section y=%d: %w", k.CX, k.CZ, sv.Y, err)
			}
			col.SetSection(sv.Y, s)
		}
		if cv.Digest != "" {
			digest := col.Digest()
			if got := hex.EncodeToString(digest[:]); got != cv.Digest {
				return nil, fmt.Errorf("snapshot column (%d,%d): digest mismatch: got %s want %s", k.CX, k.CZ, got, cv.Digest)
			}
		}
		v.columns[k] = col
	}
	return v, nil
}
