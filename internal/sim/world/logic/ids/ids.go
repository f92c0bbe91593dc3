package ids

import (
	"fmt"
	"strconv"
	"strings"
)

// BlockID is a 13-bit block identifier: 9 bits of block type and 4 bits of
// metadata, packed as type<<4 | meta.
type BlockID uint16

const (
	MetaBits = 4
	TypeBits = 9
	Bits     = TypeBits + MetaBits

	MaxType = 1<<TypeBits - 1
	MaxMeta = 1<<MetaBits - 1
)

// Max is the largest valid BlockID.
const Max BlockID = 1<<Bits - 1

// Make packs a block type and metadata value. It panics when either is out of range.
func Make(typ, meta int) BlockID {
	if typ < 0 || typ > MaxType || meta < 0 || meta > MaxMeta {
		panic(fmt.Sprintf("ids: block type/meta out of range: %d:%d", typ, meta))
	}
	return BlockID(typ<<MetaBits | meta)
}

func (id BlockID) Type() int { return int(id >> MetaBits) }
func (id BlockID) Meta() int { return int(id & MaxMeta) }

func (id BlockID) Valid() bool { return id <= Max }

func (id BlockID) String() string {
	return strconv.Itoa(id.Type()) + ":" + strconv.Itoa(id.Meta())
}

// ParseBlockID accepts "type:meta" or a raw numeric id.
func ParseBlockID(s string) (BlockID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	typStr, metaStr, found := strings.Cut(s, ":")
	if !found {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil || n > uint64(Max) {
			return 0, false
		}
		return BlockID(n), true
	}
	typ, err1 := strconv.Atoi(typStr)
	meta, err2 := strconv.Atoi(metaStr)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	if typ < 0 || typ > MaxType || meta < 0 || meta > MaxMeta {
		return 0, false
	}
	return BlockID(typ<<MetaBits | meta), true
}
