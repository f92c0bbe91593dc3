// Package anvil reads block sections out of a directory of Anvil region
// files (r.<x>.<z>.mca) in the pre-flattening id+metadata layout.
package anvil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/Tnze/go-mc/nbt"
	"github.com/Tnze/go-mc/save/region"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"voxelstore.ai/internal/sim/world/terrain/column"
	"voxelstore.ai/internal/sim/world/terrain/coords"
	"voxelstore.ai/internal/sim/world/terrain/section"
)

const (
	ChunksPerRegion = 32

	compressionGzip = 1
	compressionZlib = 2
	compressionNone = 3
)

var regionFilePattern = regexp.MustCompile(`^r\.(-?\d+)\.(-?\d+)\.mca$`)

type Stats struct {
	RegionFiles  int
	SkippedFiles int
	Columns      int
	Sections     int
	BadChunks    int
	BadSections  int
}

// Sink receives every column that has at least one valid section.
type Sink func(key coords.ChunkKey, col *column.Column)

type chunkNBT struct {
	Level levelNBT `nbt:"Level"`
}

type levelNBT struct {
	XPos     int32        `nbt:"xPos"`
	ZPos     int32        `nbt:"zPos"`
	Sections []sectionNBT `nbt:"Sections"`
}

type sectionNBT struct {
	Y          int8   `nbt:"Y"`
	Blocks     []byte `nbt:"Blocks"`
	Data       []byte `nbt:"Data"`
	BlockLight []byte `nbt:"BlockLight"`
	SkyLight   []byte `nbt:"SkyLight"`
}

// Load walks the region files in dir. A missing directory is an empty world.
// Unreadable files, chunks and sections are logged and skipped.
func Load(dir string, logger *log.Logger, sink Sink) (Stats, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	var st Stats

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return st, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".mca" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		m := regionFilePattern.FindStringSubmatch(name)
		if m == nil {
			logger.Printf("legacy: invalid region file name, skipping %s", name)
			st.SkippedFiles++
			continue
		}
		rx, errX := strconv.Atoi(m[1])
		rz, errZ := strconv.Atoi(m[2])
		if errX != nil || errZ != nil {
			logger.Printf("legacy: invalid region coordinates, skipping %s", name)
			st.SkippedFiles++
			continue
		}
		logger.Printf("legacy: loading region file %s", name)
		if err := loadRegion(filepath.Join(dir, name), rx, rz, logger, &st, sink); err != nil {
			logger.Printf("legacy: %s: %v", name, err)
			st.SkippedFiles++
			continue
		}
		st.RegionFiles++
	}
	return st, nil
}

func loadRegion(path string, rx, rz int, logger *log.Logger, st *Stats, sink Sink) error {
	r, err := region.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for lz := 0; lz < ChunksPerRegion; lz++ {
		for lx := 0; lx < ChunksPerRegion; lx++ {
			if !r.ExistSector(lx, lz) {
				continue
			}
			key := coords.ChunkKey{CX: rx*ChunksPerRegion + lx, CZ: rz*ChunksPerRegion + lz}
			data, err := r.ReadSector(lx, lz)
			if err != nil {
				logger.Printf("legacy: chunk (%d,%d): read sector: %v", key.CX, key.CZ, err)
				st.BadChunks++
				continue
			}
			col, err := decodeChunk(data, key, logger, st)
			if err != nil {
				logger.Printf("legacy: chunk (%d,%d): %v", key.CX, key.CZ, err)
				st.BadChunks++
				continue
			}
			if col == nil {
				continue
			}
			st.Columns++
			sink(key, col)
		}
	}
	return nil
}

func decodeChunk(data []byte, key coords.ChunkKey, logger *log.Logger, st *Stats) (*column.Column, error) {
	rd, err := decompress(data)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	var chunk chunkNBT
	if _, err := nbt.NewDecoder(rd).Decode(&chunk); err != nil {
		return nil, fmt.Errorf("decode nbt: %w", err)
	}

	col := column.New()
	for _, sec := range chunk.Level.Sections {
		y := int(sec.Y)
		if y < 0 || y >= coords.SectionCount {
			logger.Printf("legacy: chunk (%d,%d): section y=%d outside the column", key.CX, key.CZ, y)
			st.BadSections++
			continue
		}
		s, ok := section.LoadLegacyWithLight(sec.Blocks, sec.Data, sec.BlockLight, sec.SkyLight)
		if !ok {
			logger.Printf("legacy: chunk (%d,%d): malformed section y=%d (blocks=%d data=%d)", key.CX, key.CZ, y, len(sec.Blocks), len(sec.Data))
			st.BadSections++
			continue
		}
		if col.Section(y) == nil {
			st.Sections++
		}
		col.SetSection(y, s)
	}
	if col.SectionCount() == 0 {
		return nil, nil
	}
	return col, nil
}

func decompress(data []byte) (io.ReadCloser, error) {
	if len(data) == 0 {
		return nil, errors.New("empty sector")
	}
	body := bytes.NewReader(data[1:])
	switch data[0] {
	case compressionGzip:
		return gzip.NewReader(body)
	case compressionZlib:
		return zlib.NewReader(body)
	case compressionNone:
		return io.NopCloser(body), nil
	default:
		return nil, fmt.Errorf("unsupported compression type %d", data[0])
	}
}
