package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxelstore.ai/internal/sim/world"
)

// readAll reads every hourly file in dir in name order; a test running
// across an hour boundary sees two files.
func readAll(t *testing.T, dir string, fn func(line []byte) error) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Fatalf("no log files in %s", dir)
	}
	for _, m := range matches {
		if err := ReadLines(m, fn); err != nil {
			t.Fatalf("ReadLines %s: %v", m, err)
		}
	}
}

func TestAuditLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	entries := []world.AuditEntry{
		{Tick: 1, Actor: "a", Action: "SET_BLOCK", Pos: [3]int{0, 100, 0}, From: 0, To: 16},
		{Tick: 2, Actor: "b", Action: "SET_BLOCK", Pos: [3]int{-1, 5, -1}, From: 16, To: 574},
	}
	for _, e := range entries {
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("WriteAudit: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got []world.AuditEntry
	readAll(t, filepath.Join(dir, "audit"), func(line []byte) error {
		var e world.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		got = append(got, e)
		return nil
	})
	if len(got) != len(entries) {
		t.Fatalf("got %d entries", len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d: got %+v want %+v", i, got[i], entries[i])
		}
	}
}

func TestTickLoggerAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		l := NewTickLogger(dir)
		if err := l.WriteTick(world.TickLogEntry{Tick: uint64(i), Columns: 1, Digest: "d"}); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	n := 0
	readAll(t, filepath.Join(dir, "ticks"), func([]byte) error { n++; return nil })
	if n != 2 {
		t.Fatalf("expected 2 lines across frames, got %d", n)
	}
	if err := ReadLines(filepath.Join(dir, "nope.jsonl.zst"), func([]byte) error { return nil }); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func countLines(t *testing.T, dir, prefix string) int {
	t.Helper()
	files, err := ListFiles(dir, prefix)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	n := 0
	for _, f := range files {
		if err := ReadLines(f, func([]byte) error { n++; return nil }); err != nil {
			t.Fatalf("ReadLines %s: %v", f, err)
		}
	}
	return n
}

func TestLinesOnDiskBeforeClose(t *testing.T) {
	dir := t.TempDir()
	w := NewHourlyJSONL(dir, AuditPrefix, 0)
	defer w.Close()
	for i := 0; i < 3; i++ {
		if err := w.Write(world.AuditEntry{Tick: uint64(i), Actor: "a", Action: "SET_BLOCK"}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if n := countLines(t, dir, AuditPrefix); n != 3 {
		t.Fatalf("got %d lines before Close", n)
	}
}

func TestSealAfterInterval(t *testing.T) {
	dir := t.TempDir()
	w := NewHourlyJSONL(dir, TicksPrefix, 20*time.Millisecond)
	defer w.Close()
	if err := w.Write(world.TickLogEntry{Tick: 7, Digest: "d"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	sealed := func() bool {
		n := 0
		files, _ := ListFiles(dir, TicksPrefix)
		for _, f := range files {
			if err := ReadLines(f, func([]byte) error { n++; return nil }); err != nil {
				return false
			}
		}
		return n == 1
	}
	deadline := time.Now().Add(5 * time.Second)
	for !sealed() {
		if time.Now().After(deadline) {
			t.Fatalf("line never sealed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := w.Write(world.TickLogEntry{Tick: 8, Digest: "d"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := countLines(t, dir, TicksPrefix); n != 2 {
		t.Fatalf("got %d lines after Flush", n)
	}
}

func TestRotatesByHour(t *testing.T) {
	dir := t.TempDir()
	w := NewHourlyJSONL(dir, TicksPrefix, time.Hour)
	clock := time.Date(2026, 3, 1, 10, 59, 59, 0, time.UTC)
	w.now = func() time.Time { return clock }

	_ = w.Write(world.TickLogEntry{Tick: 1})
	clock = clock.Add(2 * time.Second)
	_ = w.Write(world.TickLogEntry{Tick: 2})
	_ = w.Write(world.TickLogEntry{Tick: 3})
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Write(world.TickLogEntry{Tick: 4}); err == nil {
		t.Fatalf("expected error after Close")
	}

	files, err := ListFiles(dir, TicksPrefix)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "ticks-2026-03-01-10.jsonl.zst"),
		filepath.Join(dir, "ticks-2026-03-01-11.jsonl.zst"),
	}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("files=%v", files)
	}
	var counts []int
	for _, f := range files {
		n := 0
		_ = ReadLines(f, func([]byte) error { n++; return nil })
		counts = append(counts, n)
	}
	if counts[0] != 1 || counts[1] != 2 {
		t.Fatalf("lines per hour %v", counts)
	}
}

func TestListFilesFiltersPrefix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"audit-2026-01-01-02.jsonl.zst", "audit-2026-01-01-01.jsonl.zst", "ticks-2026-01-01-01.jsonl.zst", "audit-notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := ListFiles(dir, AuditPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "audit-2026-01-01-01.jsonl.zst" {
		t.Fatalf("files=%v", files)
	}
}
