package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRepoTuning(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("configs/tuning.yaml drifted from Defaults():\n got %+v\nwant %+v", got, Defaults())
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: 5\naudit:\n  ticks: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TickRateHz != 5 || got.Audit.Ticks || !got.Audit.Edits {
		t.Fatalf("unexpected tuning: %+v", got)
	}
	if got.ProtocolVersion != 340 || got.DefaultBlock != "AIR" {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Tuning){
		"tick rate":      func(t *Tuning) { t.TickRateHz = 0 },
		"snapshot":       func(t *Tuning) { t.SnapshotEveryTicks = -1 },
		"queue":          func(t *Tuning) { t.EditQueueSize = 0 },
		"default block":  func(t *Tuning) { t.DefaultBlock = "" },
		"protocol":       func(t *Tuning) { t.ProtocolVersion = 0 },
		"read limit":     func(t *Tuning) { t.WSReadLimitBytes = 0 },
		"zlib threshold": func(t *Tuning) { t.CompressionThreshold = -1 },
	}
	for name, mutate := range cases {
		tu := Defaults()
		mutate(&tu)
		if err := tu.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
