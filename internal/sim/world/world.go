package world

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"voxelstore.ai/internal/persistence/snapshot"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/terrain/coords"
	"voxelstore.ai/internal/sim/world/terrain/store"
)

// World owns one block volume. The volume is only touched from the Run
// goroutine (or StepOnce when Run is not active); other goroutines go through
// the request channels.
type World struct {
	cfg    WorldConfig
	blocks *catalogs.BlockCatalog
	vol    *store.Volume
	logger *log.Logger

	tick atomic.Uint64

	inbox    chan editReq
	blockReq chan blockReq
	chunkReq chan chunkReq
	admin    chan adminSnapshotReq
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Optional loggers (may be nil). Implemented in internal/persistence/log.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing happens off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	editsApplied  uint64
	chunkRequests uint64
	metrics       atomic.Value
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick     uint64         `json:"tick"`
	Edits    []RecordedEdit `json:"edits,omitempty"`
	Columns  int            `json:"columns"`
	Sections int            `json:"sections"`
	Digest   string         `json:"digest"`
}

type RecordedEdit struct {
	Actor string `json:"actor"`
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Actor  string `json:"actor"`
	Action string `json:"action"` // "SET_BLOCK"
	Pos    [3]int `json:"pos"`
	From   uint16 `json:"from"`
	To     uint16 `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// Edit is a validated block write waiting for the next tick.
type Edit struct {
	Actor string
	Pos   coords.BlockPos
	Block catalogs.Block
}

type EditResult struct {
	Tick uint64
	From catalogs.Block
	To   catalogs.Block
}

type ChunkData struct {
	Key  coords.ChunkKey
	Mask uint16
	Data []byte
}

func New(cfg WorldConfig, vol *store.Volume, logger *log.Logger) (*World, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if vol == nil || vol.Catalog() == nil {
		return nil, fmt.Errorf("world %s: volume with a block catalog is required", cfg.ID)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	queue := cfg.EditQueueSize
	if queue <= 0 {
		queue = 1024
	}
	w := &World{
		cfg:      cfg,
		blocks:   vol.Catalog(),
		vol:      vol,
		logger:   logger,
		inbox:    make(chan editReq, queue),
		blockReq: make(chan blockReq, 64),
		chunkReq: make(chan chunkReq, 64),
		admin:    make(chan adminSnapshotReq, 8),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	w.storeMetrics(0)
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ID() string                      { return w.cfg.ID }
func (w *World) Config() WorldConfig             { return w.cfg }
func (w *World) Catalog() *catalogs.BlockCatalog { return w.blocks }
func (w *World) CurrentTick() uint64             { return w.tick.Load() }
func (w *World) DefaultBlock() catalogs.Block    { return w.vol.Default() }
