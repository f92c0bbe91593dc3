package world

import "errors"

var (
	ErrOutOfWorld   = errors.New("position outside the world")
	ErrUnknownBlock = errors.New("unknown block")
	ErrStopped      = errors.New("world stopped")
)
