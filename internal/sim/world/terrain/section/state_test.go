package section

import (
	"bytes"
	"testing"

	"voxelstore.ai/internal/sim/world/logic/ids"
)

func TestStateRoundTrip(t *testing.T) {
	s := New(0)
	for id := 0; id < 40; id++ {
		x, y, z := pos(id * 3)
		s.Set(x, y, z, ids.BlockID(id+1))
	}
	got, err := FromState(s.State())
	if err != nil {
		t.Fatalf("FromState: %v", err)
	}
	if !bytes.Equal(got.Bytes(), s.Bytes()) {
		t.Fatalf("restored section serializes differently")
	}
	got.Set(0, 0, 0, 1234)
	if s.Get(0, 0, 0) == 1234 {
		t.Fatalf("restored section shares storage with the original")
	}
}

func TestFromStateRejectsInconsistentShapes(t *testing.T) {
	good := New(0).State()

	badWidth := good
	badWidth.BitsPerBlock = 9
	if _, err := FromState(badWidth); err == nil {
		t.Fatalf("expected error for width 9")
	}

	badWords := good
	badWords.Words = make([]uint64, 10)
	if _, err := FromState(badWords); err == nil {
		t.Fatalf("expected error for word count")
	}

	noPalette := good
	noPalette.Palette = nil
	if _, err := FromState(noPalette); err == nil {
		t.Fatalf("expected error for missing palette")
	}

	dangling := New(0).State()
	dangling.Words[0] = 5 // slot 0 -> palette index 5 of 1
	if _, err := FromState(dangling); err == nil {
		t.Fatalf("expected error for dangling palette index")
	}

	badLight := good
	badLight.SkyLight = nil
	if _, err := FromState(badLight); err == nil {
		t.Fatalf("expected error for light length")
	}
}
