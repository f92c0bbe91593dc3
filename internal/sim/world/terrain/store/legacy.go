package store

import (
	"log"

	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/terrain/anvil"
	"voxelstore.ai/internal/sim/world/terrain/column"
)

// LoadFromLegacyStore builds a volume from a directory of Anvil region files.
// A missing directory yields an empty volume.
func LoadFromLegacyStore(dir string, blocks *catalogs.BlockCatalog, def catalogs.Block, logger *log.Logger) (*Volume, anvil.Stats, error) {
	v := NewVolume(blocks, def, logger)
	st, err := anvil.Load(dir, v.logger, func(key ChunkKey, col *column.Column) {
		v.columns[key] = col
	})
	if err != nil {
		return nil, st, err
	}
	v.logger.Printf("store: legacy load %s: regions=%d skipped=%d columns=%d sections=%d bad_chunks=%d bad_sections=%d",
		dir, st.RegionFiles, st.SkippedFiles, st.Columns, st.Sections, st.BadChunks, st.BadSections)
	return v, st, nil
}
