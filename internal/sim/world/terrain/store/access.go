package store

import (
	"sort"

	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/terrain/column"
	"voxelstore.ai/internal/sim/world/terrain/coords"
)

func (v *Volume) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(v.columns))
	for k := range v.columns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// GetBlock returns the default block for absent columns and for ids the
// catalog does not know.
func (v *Volume) GetBlock(pos coords.BlockPos) catalogs.Block {
	key := coords.BlockToColumn(pos.X, pos.Z)
	col := v.columns[key]
	if col == nil {
		return v.def
	}
	lx, lz := coords.ColumnLocal(pos, key)
	id := col.Get(v.def.ID, lx, pos.Y, lz)
	if id == v.def.ID {
		return v.def
	}
	b, ok := v.blocks.Lookup(id)
	if !ok {
		v.logger.Printf("store: unregistered block id %s at %s, reading as %s", id, pos, v.def.Name)
		return v.def
	}
	return b
}

// SetBlock panics when pos.Y is outside the column; callers check
// coords.InWorldY first.
func (v *Volume) SetBlock(pos coords.BlockPos, b catalogs.Block) {
	key := coords.BlockToColumn(pos.X, pos.Z)
	col := v.columns[key]
	if col == nil {
		if b.ID == v.def.ID {
			return
		}
		col = column.New()
		v.columns[key] = col
	}
	lx, lz := coords.ColumnLocal(pos, key)
	col.Set(v.def.ID, lx, pos.Y, lz, b.ID)
}

// GetChunkData returns the section mask and the column payload; an absent
// column serializes as biomes only.
func (v *Volume) GetChunkData(key ChunkKey) (uint16, []byte) {
	col := v.columns[key]
	if col == nil {
		return column.SerializeEmpty()
	}
	return col.Serialize()
}
