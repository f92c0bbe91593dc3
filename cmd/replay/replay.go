package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	persistlog "voxelstore.ai/internal/persistence/log"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/terrain/coords"
)

type result struct {
	Checked uint64
	Edits   int
}

var errDone = errors.New("done")

// replay re-applies logged edits on top of w and compares the state digest of
// every tick at or after verifyFrom. Ticks already covered by w are skipped.
func replay(w *world.World, blocks *catalogs.BlockCatalog, files []string, verifyFrom, toTick uint64) (result, error) {
	var res result
	for _, path := range files {
		err := persistlog.ReadLines(path, func(line []byte) error {
			var entry world.TickLogEntry
			if err := json.Unmarshal(line, &entry); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			if entry.Tick < w.CurrentTick() {
				return nil
			}
			if toTick != 0 && entry.Tick > toTick {
				return errDone
			}

			edits := make([]world.Edit, 0, len(entry.Edits))
			for _, re := range entry.Edits {
				b, ok := blocks.ByName(re.Block)
				if !ok {
					return fmt.Errorf("tick %d: block %q is not in the catalog", entry.Tick, re.Block)
				}
				edits = append(edits, world.Edit{
					Actor: re.Actor,
					Pos:   coords.BlockPos{X: re.Pos[0], Y: re.Pos[1], Z: re.Pos[2]},
					Block: b,
				})
			}

			w.SkipTo(entry.Tick)
			tick, gotDigest := w.StepOnce(edits)
			if tick != entry.Tick {
				return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d (file=%s)", tick, entry.Tick, filepath.Base(path))
			}
			res.Edits += len(edits)
			if tick >= verifyFrom {
				res.Checked++
				if gotDigest != entry.Digest {
					return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, gotDigest, entry.Digest)
				}
			}
			return nil
		})
		if errors.Is(err, errDone) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
