package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "voxelstore.ai/internal/persistence/log"
	"voxelstore.ai/internal/persistence/snapshot"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/tuning"
	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/terrain/store"
	"voxelstore.ai/internal/transport/observer"
	"voxelstore.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		regionDir  = flag.String("region_dir", "", "legacy Anvil region directory to load (default: tuning region_dir)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (tick/audit + catalogs + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	// Optional: read-model index backend (does not affect the volume).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	legacyDir := strings.TrimSpace(*regionDir)
	if legacyDir == "" {
		legacyDir = tune.RegionDir
	}

	w, err := openWorld(world.ConfigFromTuning(*worldID, tune), tune, cats, snapshotToLoad, legacyDir, idx, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if tune.Audit.Ticks {
		tickLog := persistlog.NewTickLogger(worldDir)
		defer tickLog.Close()
		w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	} else if idx != nil {
		w.SetTickLogger(idx)
	}
	if tune.Audit.Edits {
		auditLog := persistlog.NewAuditLogger(worldDir)
		defer auditLog.Close()
		w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})
	} else if idx != nil {
		w.SetAuditLogger(idx)
	}

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				logger.Printf("snapshot tick=%d columns=%d -> %s", snap.Header.Tick, len(snap.Columns), filepath.Base(path))
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	wsSrv := ws.NewServer(w, logger, ws.Options{
		CompressChunks:       tune.CompressChunks,
		CompressionThreshold: tune.CompressionThreshold,
		ReadLimitBytes:       int64(tune.WSReadLimitBytes),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(w, wsSrv, idx))

	enableAdminHTTP := envBool("VS_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("VS_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", stateHandler(w))
		mux.HandleFunc("/admin/v1/snapshot", snapshotHandler(w))

		obsSrv := observer.NewServer(w, logger)
		obsSrv.Sessions = wsSrv.Sessions
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (VS_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (VS_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s tick=%d", *addr, *worldID, w.CurrentTick())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// openWorld resumes from a snapshot when one is given, else loads the legacy
// region directory when one is configured, else starts empty.
func openWorld(cfg world.WorldConfig, tune tuning.Tuning, cats *catalogs.Catalogs, snapPath, legacyDir string, idx runtimeIndex, logger *log.Logger) (*world.World, error) {
	if snapPath != "" {
		snap, err := snapshot.ReadSnapshot(snapPath)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		w, err := world.NewFromSnapshot(cfg, snap, cats.Blocks, logger)
		if err != nil {
			return nil, fmt.Errorf("import snapshot: %w", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapPath), w.CurrentTick())
		return w, nil
	}

	def, ok := cats.Blocks.ByName(tune.DefaultBlock)
	if !ok {
		return nil, fmt.Errorf("default block %q is not in the catalog", tune.DefaultBlock)
	}
	if legacyDir == "" {
		return world.New(cfg, store.NewVolume(cats.Blocks, def, logger), logger)
	}

	vol, stats, err := store.LoadFromLegacyStore(legacyDir, cats.Blocks, def, logger)
	if err != nil {
		return nil, fmt.Errorf("load legacy store: %w", err)
	}
	if idx != nil {
		idx.RecordLegacyLoad(legacyDir, stats)
	}
	return world.New(cfg, vol, logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
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
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
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

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
