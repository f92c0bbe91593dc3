// Package column stacks up to sixteen sections into one vertical world column.
package column

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"voxelstore.ai/internal/sim/world/logic/ids"
	"voxelstore.ai/internal/sim/world/terrain/coords"
	"voxelstore.ai/internal/sim/world/terrain/section"
)

const (
	SectionCount = coords.SectionCount

	// BiomesLen is the per-column biome array; every entry is VoidBiome.
	BiomesLen = coords.SectionWidth * coords.SectionWidth
	VoidBiome = 127
)

// Column holds sections bottom (index 0) to top. A nil section is uniformly
// the default block.
type Column struct {
	sections [SectionCount]*section.Section

	dirty bool
	hash  [32]byte
}

func New() *Column {
	return &Column{dirty: true}
}

func (c *Column) Set(defaultID ids.BlockID, x, y, z int, id ids.BlockID) {
	checkXZ(x, z)
	sy, ly, ok := coords.BlockToSection(y)
	if !ok {
		panic(fmt.Sprintf("column: y=%d outside the column", y))
	}
	s := c.sections[sy]
	if s == nil {
		if id == defaultID {
			return
		}
		s = section.New(defaultID)
		c.sections[sy] = s
	}
	s.Set(x, ly, z, id)
	c.dirty = true
}

func (c *Column) Get(defaultID ids.BlockID, x, y, z int) ids.BlockID {
	checkXZ(x, z)
	sy, ly, ok := coords.BlockToSection(y)
	if !ok {
		return defaultID
	}
	s := c.sections[sy]
	if s == nil {
		return defaultID
	}
	return s.Get(x, ly, z)
}

// Section returns the section at index i, or nil when it is not materialized.
func (c *Column) Section(i int) *section.Section {
	return c.sections[i]
}

// SetSection installs (or with nil, removes) the section at index i.
func (c *Column) SetSection(i int, s *section.Section) {
	if i < 0 || i >= SectionCount {
		panic(fmt.Sprintf("column: section index %d out of range", i))
	}
	c.sections[i] = s
	c.dirty = true
}

func (c *Column) SectionCount() int {
	n := 0
	for _, s := range c.sections {
		if s != nil {
			n++
		}
	}
	return n
}

// Mask has bit i set iff section i is materialized.
func (c *Column) Mask() uint16 {
	var mask uint16
	for i, s := range c.sections {
		if s != nil {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// Serialize returns the presence mask and the chunk data payload: present
// sections in ascending order followed by the biome array.
func (c *Column) Serialize() (uint16, []byte) {
	var buf bytes.Buffer
	var mask uint16
	for i, s := range c.sections {
		if s == nil {
			continue
		}
		mask |= 1 << uint(i)
		_, _ = s.WriteTo(&buf)
	}
	writeBiomes(&buf)
	return mask, buf.Bytes()
}

// SerializeEmpty is the payload for a column that was never materialized.
func SerializeEmpty() (uint16, []byte) {
	var buf bytes.Buffer
	writeBiomes(&buf)
	return 0, buf.Bytes()
}

// Digest hashes the serialized column. It is cached until the next mutation.
func (c *Column) Digest() [32]byte {
	if c.dirty {
		_, data := c.Serialize()
		c.hash = sha256.Sum256(data)
		c.dirty = false
	}
	return c.hash
}

func writeBiomes(buf *bytes.Buffer) {
	for i := 0; i < BiomesLen; i++ {
		buf.WriteByte(VoidBiome)
	}
}

func checkXZ(x, z int) {
	if x < 0 || x >= coords.SectionWidth || z < 0 || z >= coords.SectionWidth {
		panic(fmt.Sprintf("column: x/z out of range: %d,%d", x, z))
	}
}
