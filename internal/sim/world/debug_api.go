package world

import "voxelstore.ai/internal/sim/world/terrain/store"

// DebugVolume exposes the volume to tests that drive the world with StepOnce.
// It must not be used while Run is active.
func (w *World) DebugVolume() *store.Volume { return w.vol }
