package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion int `yaml:"protocol_version"`

	TickRateHz         int    `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks"`
	EditQueueSize      int    `yaml:"edit_queue_size"`
	DefaultBlock       string `yaml:"default_block"`
	RegionDir          string `yaml:"region_dir"`

	CompressChunks       bool `yaml:"compress_chunks"`
	CompressionThreshold int  `yaml:"compression_threshold"`
	WSReadLimitBytes     int  `yaml:"ws_read_limit_bytes"`

	Audit Audit `yaml:"audit"`
}

type Audit struct {
	Edits bool `yaml:"edits"`
	Ticks bool `yaml:"ticks"`
}

// Defaults matches configs/tuning.yaml.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:      340,
		TickRateHz:           20,
		SnapshotEveryTicks:   6000,
		EditQueueSize:        1024,
		DefaultBlock:         "AIR",
		CompressionThreshold: 256,
		WSReadLimitBytes:     64 * 1024,
		Audit:                Audit{Edits: true, Ticks: true},
	}
}

// Load reads path over Defaults; keys missing from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.ProtocolVersion <= 0:
		return fmt.Errorf("protocol_version must be > 0")
	case t.TickRateHz <= 0 || t.TickRateHz > 1000:
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	case t.SnapshotEveryTicks < 0:
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	case t.EditQueueSize <= 0:
		return fmt.Errorf("edit_queue_size must be > 0")
	case t.DefaultBlock == "":
		return fmt.Errorf("default_block is required")
	case t.CompressionThreshold < 0:
		return fmt.Errorf("compression_threshold must be >= 0")
	case t.WSReadLimitBytes <= 0:
		return fmt.Errorf("ws_read_limit_bytes must be > 0")
	}
	return nil
}
