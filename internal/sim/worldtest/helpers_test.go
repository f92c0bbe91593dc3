package worldtest

import (
	"testing"

	"voxelstore.ai/internal/sim/catalogs"
	world "voxelstore.ai/internal/sim/world"
)

func loadCats(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func testConfig() world.WorldConfig {
	return world.WorldConfig{ID: "test", ProtocolVersion: 340, TickRateHz: 20, SnapshotEveryTicks: 0}
}

// buildHouse places a small hollow stone box with a glass window at the origin.
func buildHouse(h *Harness) {
	for x := 0; x < 5; x++ {
		for z := 0; z < 5; z++ {
			for y := 64; y < 68; y++ {
				edge := x == 0 || x == 4 || z == 0 || z == 4 || y == 64 || y == 67
				if edge {
					h.Set(x, y, z, "STONE")
				}
			}
		}
	}
	h.Set(2, 65, 0, "GLASS")
}
