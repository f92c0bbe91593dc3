package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"voxelstore.ai/internal/persistence/snapshot"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/terrain/store"
)

func main() {
	var (
		regionDir = flag.String("region_dir", "", "legacy Anvil region directory")
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		auditDir  = flag.String("audit", "", "audit dir containing audit-*.jsonl.zst (optional)")
		configDir = flag.String("configs", "./configs", "config directory")
		palette   = flag.Bool("palette", false, "print palette entries of every section")
	)
	flag.Parse()

	if (*regionDir == "") == (*snapPath == "") && *auditDir == "" {
		fmt.Fprintln(os.Stderr, "need exactly one of -region_dir or -snapshot, or -audit")
		os.Exit(2)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	switch {
	case *snapPath != "":
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d world=%s tick=%d default=%s columns=%d\n",
			snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.DefaultBlock, len(snap.Columns))
		printColumns(os.Stdout, cats.Blocks, snap.Columns, *palette)

	case *regionDir != "":
		logger := log.New(os.Stderr, "[inspect] ", 0)
		vol, stats, err := store.LoadFromLegacyStore(*regionDir, cats.Blocks, cats.Blocks.Air(), logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load region dir:", err)
			os.Exit(1)
		}
		fmt.Printf("region_dir=%s regions=%d skipped=%d columns=%d sections=%d bad_chunks=%d bad_sections=%d\n",
			*regionDir, stats.RegionFiles, stats.SkippedFiles, stats.Columns, stats.Sections, stats.BadChunks, stats.BadSections)
		printColumns(os.Stdout, cats.Blocks, vol.ExportColumns(), *palette)
	}

	if *auditDir != "" {
		if err := printAudit(os.Stdout, *auditDir); err != nil {
			fmt.Fprintln(os.Stderr, "audit:", err)
			os.Exit(1)
		}
	}
}
