package world

import (
	"fmt"

	"voxelstore.ai/internal/sim/tuning"
)

type WorldConfig struct {
	ID                 string
	ProtocolVersion    int
	TickRateHz         int
	SnapshotEveryTicks int
	EditQueueSize      int
}

func ConfigFromTuning(id string, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                 id,
		ProtocolVersion:    t.ProtocolVersion,
		TickRateHz:         t.TickRateHz,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		EditQueueSize:      t.EditQueueSize,
	}
}

func (c WorldConfig) validate() error {
	if c.ID == "" {
		return fmt.Errorf("world id is required")
	}
	if c.TickRateHz <= 0 {
		return fmt.Errorf("tick rate must be > 0, got %d", c.TickRateHz)
	}
	if c.SnapshotEveryTicks < 0 {
		return fmt.Errorf("snapshot interval must be >= 0, got %d", c.SnapshotEveryTicks)
	}
	return nil
}
