package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	persistlog "voxelstore.ai/internal/persistence/log"
	"voxelstore.ai/internal/persistence/snapshot"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/logic/ids"
)

func columnMask(col snapshot.ColumnV1) uint16 {
	var mask uint16
	for _, s := range col.Sections {
		mask |= 1 << uint(s.Y)
	}
	return mask
}

func printColumns(out io.Writer, blocks *catalogs.BlockCatalog, cols []snapshot.ColumnV1, withPalette bool) {
	for _, col := range cols {
		digest := col.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Fprintf(out, "column %d,%d mask=0x%04x sections=%d digest=%s\n", col.CX, col.CZ, columnMask(col), len(col.Sections), digest)
		for _, s := range col.Sections {
			kind := "palette"
			if len(s.Palette) == 0 {
				kind = "direct"
			}
			fmt.Fprintf(out, "  y=%-2d bits=%-2d %s=%d words=%d\n", s.Y, s.BitsPerBlock, kind, len(s.Palette), len(s.Words))
			if !withPalette {
				continue
			}
			for _, e := range s.Palette {
				name := "?"
				if b, ok := blocks.Lookup(ids.BlockID(e.ID)); ok {
					name = b.Name
				}
				fmt.Fprintf(out, "    %s %s x%d\n", ids.BlockID(e.ID), name, e.Count)
			}
		}
	}
}

// printAudit summarizes every audit-*.jsonl.zst file under dir: entry count,
// tick range and edits per actor.
func printAudit(out io.Writer, dir string) error {
	files, err := persistlog.ListFiles(dir, persistlog.AuditPrefix)
	if err != nil {
		return err
	}

	var total int
	var minTick, maxTick uint64
	perActor := map[string]int{}
	for _, path := range files {
		err := persistlog.ReadLines(path, func(line []byte) error {
			var e world.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if total == 0 || e.Tick < minTick {
				minTick = e.Tick
			}
			if e.Tick > maxTick {
				maxTick = e.Tick
			}
			total++
			perActor[e.Actor]++
			return nil
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "audit files=%d entries=%d", len(files), total)
	if total > 0 {
		fmt.Fprintf(out, " ticks=%d..%d", minTick, maxTick)
	}
	fmt.Fprintln(out)

	actors := make([]string, 0, len(perActor))
	for a := range perActor {
		actors = append(actors, a)
	}
	sort.Strings(actors)
	for _, a := range actors {
		fmt.Fprintf(out, "  %s %d\n", a, perActor[a])
	}
	return nil
}
