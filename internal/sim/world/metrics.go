package world

// WorldMetrics is a read-only view of the world loop, published once per tick
// and safe to read from HTTP handlers.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Columns       int    `json:"columns"`
	Sections      int    `json:"sections"`
	EditsApplied  uint64 `json:"edits_applied"`
	ChunkRequests uint64 `json:"chunk_requests"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox  int `json:"inbox"`
	Blocks int `json:"blocks"`
	Chunks int `json:"chunks"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

func (w *World) storeMetrics(stepMS float64) {
	w.metrics.Store(WorldMetrics{
		Tick:          w.tick.Load(),
		Columns:       w.vol.ColumnCount(),
		Sections:      w.vol.SectionCount(),
		EditsApplied:  w.editsApplied,
		ChunkRequests: w.chunkRequests,
		QueueDepths: QueueDepths{
			Inbox:  len(w.inbox),
			Blocks: len(w.blockReq),
			Chunks: len(w.chunkReq),
		},
		StepMS: stepMS,
	})
}
