package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"voxelstore.ai/internal/sim/world/logic/ids"
)

type Catalogs struct {
	Blocks *BlockCatalog
}

// Block is a typed block value: a registered name and its wire id.
type Block struct {
	Name string
	ID   ids.BlockID
}

func (b Block) String() string {
	return fmt.Sprintf("%s(%s)", b.Name, b.ID)
}

type BlockDef struct {
	ID    string `json:"id"`
	Type  int    `json:"type"`
	Meta  int    `json:"meta"`
	Solid bool   `json:"solid"`
	Shape string `json:"shape,omitempty"` // "CUBE","SLAB","STAIRS","FENCE","BARS","WALL","CARPET","NONE"
}

// BlockCatalog is the id <-> block table. It is built once and only read
// afterwards.
type BlockCatalog struct {
	Palette       []string
	Index         map[string]Block
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string

	byID map[ids.BlockID]Block
}

func Load(configDir string) (*Catalogs, error) {
	blocks, err := LoadBlocks(filepath.Join(configDir, "blocks.json"))
	if err != nil {
		return nil, err
	}
	return &Catalogs{Blocks: blocks}, nil
}

func LoadBlocks(path string) (*BlockCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	c, err := NewBlockCatalog(defs)
	if err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	c.DefsDigest = sha256Hex(raw)
	return c, nil
}

func NewBlockCatalog(defs []BlockDef) (*BlockCatalog, error) {
	c := &BlockCatalog{
		Defs:  map[string]BlockDef{},
		Index: map[string]Block{},
		byID:  map[ids.BlockID]Block{},
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("empty id")
		}
		if _, dup := c.Defs[d.ID]; dup {
			return nil, fmt.Errorf("duplicate block %s", d.ID)
		}
		if d.Type < 0 || d.Type > ids.MaxType || d.Meta < 0 || d.Meta > ids.MaxMeta {
			return nil, fmt.Errorf("block %s: type/meta out of range: %d:%d", d.ID, d.Type, d.Meta)
		}
		b := Block{Name: d.ID, ID: ids.Make(d.Type, d.Meta)}
		if prev, taken := c.byID[b.ID]; taken {
			return nil, fmt.Errorf("block %s: id %s already used by %s", d.ID, b.ID, prev.Name)
		}
		c.Defs[d.ID] = d
		c.Index[d.ID] = b
		c.byID[b.ID] = b
	}
	if _, ok := c.Defs["AIR"]; !ok {
		return nil, fmt.Errorf("missing AIR")
	}

	names := make([]string, 0, len(c.Defs))
	for name := range c.Defs {
		names = append(names, name)
	}
	sort.Strings(names)
	c.Palette = names
	palJSON, _ := json.Marshal(names)
	c.PaletteDigest = sha256Hex(palJSON)
	if c.DefsDigest == "" {
		defsJSON, _ := json.Marshal(defs)
		c.DefsDigest = sha256Hex(defsJSON)
	}
	return c, nil
}

// Lookup translates a raw id back to its registered block.
func (c *BlockCatalog) Lookup(id ids.BlockID) (Block, bool) {
	b, ok := c.byID[id]
	return b, ok
}

func (c *BlockCatalog) ByName(name string) (Block, bool) {
	b, ok := c.Index[name]
	return b, ok
}

// Resolve accepts a block name or a "type:meta" id that is registered.
func (c *BlockCatalog) Resolve(s string) (Block, bool) {
	if b, ok := c.Index[s]; ok {
		return b, true
	}
	id, ok := ids.ParseBlockID(s)
	if !ok {
		return Block{}, false
	}
	return c.Lookup(id)
}

func (c *BlockCatalog) Air() Block {
	return c.Index["AIR"]
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
