package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	persistlog "voxelstore.ai/internal/persistence/log"
	"voxelstore.ai/internal/persistence/snapshot"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/logic/ids"
	"voxelstore.ai/internal/sim/world/terrain/coords"
	"voxelstore.ai/internal/sim/world/terrain/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rollback":
			rollbackCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func rollbackCmd(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	configDir := fs.String("configs", "./configs", "config directory")
	worldID := fs.String("world", "", "world id")
	snapPath := fs.String("snapshot", "", "snapshot path to rollback from (optional; defaults to latest)")
	aabb := fs.String("aabb", "", "AABB filter: x1,y1,z1:x2,y2,z2 (required)")
	actor := fs.String("actor", "", "only undo edits by this actor (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "rollback changes since tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "rollback changes up to tick (inclusive, optional; defaults to snapshot tick)")
	outPath := fs.String("out", "", "output snapshot path (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	if strings.TrimSpace(*aabb) == "" {
		fmt.Fprintln(os.Stderr, "missing -aabb")
		os.Exit(2)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if snapshotToLoad == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run server until it writes one")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(snapshotToLoad)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	min, max, err := parseAABB(*aabb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -aabb:", err)
		os.Exit(2)
	}

	endTick := *toTick
	if endTick == 0 || endTick > snap.Header.Tick {
		endTick = snap.Header.Tick
	}

	filter := auditFilter{SinceTick: *sinceTick, ToTick: endTick, Min: min, Max: max, Actor: strings.TrimSpace(*actor)}
	recs, err := readAudit(filepath.Join(worldDir, "audit"), filter)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Println("no matching audit entries; nothing to rollback")
		return
	}

	logger := log.New(io.Discard, "", 0)
	applied, skipped, err := applyRollback(&snap, cats.Blocks, recs, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rollback:", err)
		os.Exit(1)
	}

	if strings.TrimSpace(*outPath) == "" {
		*outPath = filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.rollback.snap.zst", snap.Header.Tick))
	}
	if err := snapshot.WriteSnapshot(*outPath, snap); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}

	fmt.Printf("rollback ok: snapshot=%s tick=%d aabb=%s since=%d to=%d entries=%d applied=%d skipped=%d out=%s\n",
		filepath.Base(snapshotToLoad), snap.Header.Tick, *aabb, *sinceTick, endTick, len(recs), applied, skipped, *outPath)
}

type auditFilter struct {
	SinceTick uint64
	ToTick    uint64
	Min, Max  [3]int
	Actor     string
}

func (f auditFilter) match(e world.AuditEntry) bool {
	if e.Action != "SET_BLOCK" {
		return false
	}
	if e.Tick < f.SinceTick || e.Tick > f.ToTick {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	return withinAABB(e.Pos, f.Min, f.Max)
}

type auditRec struct {
	Seq   uint64
	Entry world.AuditEntry
}

func readAudit(dir string, f auditFilter) ([]auditRec, error) {
	files, err := persistlog.ListFiles(dir, persistlog.AuditPrefix)
	if err != nil {
		return nil, err
	}

	out := make([]auditRec, 0, 1024)
	var seq uint64
	for _, path := range files {
		name := filepath.Base(path)
		err := persistlog.ReadLines(path, func(line []byte) error {
			var e world.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", name, err)
			}
			seq++
			if f.match(e) {
				out = append(out, auditRec{Seq: seq, Entry: e})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// Reverse chronological apply: highest tick first; for same tick use reverse read order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entry.Tick != out[j].Entry.Tick {
			return out[i].Entry.Tick > out[j].Entry.Tick
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

// applyRollback writes each record's From block back into snap. Records whose
// From id is not in the catalog or whose y lies outside the column are
// skipped.
func applyRollback(snap *snapshot.SnapshotV1, blocks *catalogs.BlockCatalog, recs []auditRec, logger *log.Logger) (applied, skipped int, err error) {
	if snap == nil || len(recs) == 0 {
		return 0, 0, nil
	}
	def, ok := blocks.ByName(snap.DefaultBlock)
	if !ok {
		return 0, 0, fmt.Errorf("snapshot default block %q is not in the catalog", snap.DefaultBlock)
	}
	vol, err := store.ImportColumns(blocks, def, logger, snap.Columns)
	if err != nil {
		return 0, 0, err
	}

	for _, r := range recs {
		p := r.Entry.Pos
		if !coords.InWorldY(p[1]) {
			skipped++
			continue
		}
		b, ok := blocks.Lookup(ids.BlockID(r.Entry.From))
		if !ok {
			skipped++
			continue
		}
		vol.SetBlock(coords.BlockPos{X: p[0], Y: p[1], Z: p[2]}, b)
		applied++
	}
	snap.Columns = vol.ExportColumns()
	return applied, skipped, nil
}

func withinAABB(pos [3]int, min, max [3]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1] &&
		pos[2] >= min[2] && pos[2] <= max[2]
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 3; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
