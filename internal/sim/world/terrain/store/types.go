// Package store is the sparse block volume: a map of columns keyed by chunk
// coordinates, read and written with typed blocks from the catalog.
package store

import (
	"io"
	"log"

	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/terrain/column"
	"voxelstore.ai/internal/sim/world/terrain/coords"
)

type ChunkKey = coords.ChunkKey

// Volume is not safe for concurrent use; the world loop owns it.
type Volume struct {
	blocks  *catalogs.BlockCatalog
	def     catalogs.Block
	logger  *log.Logger
	columns map[ChunkKey]*column.Column
}

func NewVolume(blocks *catalogs.BlockCatalog, def catalogs.Block, logger *log.Logger) *Volume {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Volume{
		blocks:  blocks,
		def:     def,
		logger:  logger,
		columns: map[ChunkKey]*column.Column{},
	}
}

func (v *Volume) Default() catalogs.Block            { return v.def }
func (v *Volume) Catalog() *catalogs.BlockCatalog    { return v.blocks }
func (v *Volume) ColumnCount() int                   { return len(v.columns) }
func (v *Volume) Column(key ChunkKey) *column.Column { return v.columns[key] }

// SectionCount is the number of allocated sections over all columns.
func (v *Volume) SectionCount() int {
	n := 0
	for _, c := range v.columns {
		n += c.SectionCount()
	}
	return n
}
