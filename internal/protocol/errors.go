package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// World state.
	ErrWorldBusy    = "E_WORLD_BUSY"
	ErrWorldStopped = "E_WORLD_STOPPED"

	// Request layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrUnknownBlock  = "E_UNKNOWN_BLOCK"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrWorldBusy:       {},
	ErrWorldStopped:    {},
	ErrBadRequest:      {},
	ErrInvalidTarget:   {},
	ErrUnknownBlock:    {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
