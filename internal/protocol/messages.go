package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	CompressChunks bool `json:"compress_chunks,omitempty"`
	MaxQueue       int  `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldID         string      `json:"world_id"`
	GameProtocol    int         `json:"game_protocol"`
	Tick            uint64      `json:"tick"`
	TickRateHz      int         `json:"tick_rate_hz"`
	DefaultBlock    string      `json:"default_block"`
	BlockPalette    DigestRef   `json:"block_palette"`
	Compression     Compression `json:"compression"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// Compression describes the framing of binary chunk replies. Disabled means
// plain length-prefixed packets.
type Compression struct {
	Enabled   bool `json:"enabled"`
	Threshold int  `json:"threshold"`
}

// GET_CHUNK (client -> server). Answered with one binary frame.
type GetChunkMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	CX              int    `json:"cx"`
	CZ              int    `json:"cz"`
}

// GET_BLOCK (client -> server). Answered with BLOCK.
type GetBlockMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Pos             [3]int `json:"pos"`
}

// SET_BLOCK (client -> server). Block is a catalog name or "type:meta".
// Answered with ACK once the tick applied it.
type SetBlockMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Pos             [3]int `json:"pos"`
	Block           string `json:"block"`
}

// BLOCK (server -> client)
type BlockMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	Pos             [3]int `json:"pos"`
	Block           string `json:"block"`
	BlockID         string `json:"block_id"`
}

// ACK (server -> client)
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	Tick            uint64 `json:"tick"`
	From            string `json:"from"`
	To              string `json:"to"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(ref, code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Ref: ref, Code: code, Message: message}
}
