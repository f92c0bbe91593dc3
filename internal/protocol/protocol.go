package protocol

import "encoding/json"

const Version = "1.0"

// GameProtocol is the Minecraft protocol number of the binary chunk frames
// (1.12.2).
const GameProtocol = 340

// Message types.
const (
	TypeHello    = "HELLO"
	TypeWelcome  = "WELCOME"
	TypeGetChunk = "GET_CHUNK"
	TypeGetBlock = "GET_BLOCK"
	TypeSetBlock = "SET_BLOCK"
	TypeBlock    = "BLOCK"
	TypeAck      = "ACK"
	TypeError    = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ID              string `json:"id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
