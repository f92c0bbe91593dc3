package observerproto

// Version is the observer protocol version (separate from the client WS protocol).
const Version = "0.2"

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change the rate.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EveryTicks      int    `json:"every_ticks"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	DefaultBlock    string      `json:"default_block"`
	BlockPalette    []string    `json:"block_palette"`
	PaletteDigest   string      `json:"palette_digest"`
}

type WorldParams struct {
	TickRateHz         int    `json:"tick_rate_hz"`
	GameProtocol       int    `json:"game_protocol"`
	SectionSize        [3]int `json:"section_size"`
	SectionsPerColumn  int    `json:"sections_per_column"`
	SnapshotEveryTicks int    `json:"snapshot_every_ticks"`
}

// Server -> Client. Sent at most once per subscribed interval, only when the
// tick advanced.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Columns       int    `json:"columns"`
	Sections      int    `json:"sections"`
	EditsApplied  uint64 `json:"edits_applied"`
	ChunkRequests uint64 `json:"chunk_requests"`

	QueueInbox  int     `json:"queue_inbox"`
	QueueBlocks int     `json:"queue_blocks"`
	QueueChunks int     `json:"queue_chunks"`
	StepMS      float64 `json:"step_ms"`

	Sessions int64 `json:"sessions"`
}
