package coords

import (
	"fmt"

	"voxelstore.ai/internal/sim/world/logic/mathx"
)

const (
	SectionWidth  = 16
	SectionHeight = 16
	SectionCount  = 16
	ColumnHeight  = SectionHeight * SectionCount
)

type BlockPos struct {
	X, Y, Z int
}

func (p BlockPos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// ChunkKey addresses one column in the world.
type ChunkKey struct {
	CX int
	CZ int
}

func BlockToColumn(x, z int) ChunkKey {
	return ChunkKey{
		CX: mathx.FloorDiv(x, SectionWidth),
		CZ: mathx.FloorDiv(z, SectionWidth),
	}
}

// BlockToSection maps a column-local y to a section index and the y inside
// that section. ok is false when y is below the world or above the top section.
func BlockToSection(y int) (section, localY int, ok bool) {
	if y < 0 {
		return 0, 0, false
	}
	section = y / SectionHeight
	if section >= SectionCount {
		return 0, 0, false
	}
	return section, y - section*SectionHeight, true
}

// ColumnLocal returns the in-column x/z of a world position that lies in key.
func ColumnLocal(pos BlockPos, key ChunkKey) (x, z int) {
	return pos.X - key.CX*SectionWidth, pos.Z - key.CZ*SectionWidth
}

// InWorldY reports whether y falls inside some section of a column.
func InWorldY(y int) bool {
	return y >= 0 && y < ColumnHeight
}
