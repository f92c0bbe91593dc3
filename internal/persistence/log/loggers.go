// Package log persists tick summaries and block-edit audit entries as hourly
// JSON-lines files. Each file is a run of zstd frames, so it stays readable
// while it is being appended to.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelstore.ai/internal/sim/world"
)

const (
	TicksPrefix = "ticks"
	AuditPrefix = "audit"

	// DefaultSealEvery bounds how long a written line can sit in an open frame.
	DefaultSealEvery = time.Second

	fileExt    = ".jsonl.zst"
	hourLayout = "2006-01-02-15"
)

var errClosed = errors.New("log: writer closed")

// HourlyJSONL appends JSON lines to <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
// Lines collect in one zstd frame until it is sealed: sealEvery after its
// first line, on rotation, or on Close. A zero sealEvery seals every line.
type HourlyJSONL struct {
	dir       string
	prefix    string
	sealEvery time.Duration
	now       func() time.Time

	mu      sync.Mutex
	hour    string
	f       *os.File
	enc     *zstd.Encoder
	pending int
	timer   *time.Timer
	closed  bool
}

func NewHourlyJSONL(dir, prefix string, sealEvery time.Duration) *HourlyJSONL {
	return &HourlyJSONL{dir: dir, prefix: prefix, sealEvery: sealEvery, now: time.Now}
}

func (w *HourlyJSONL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errClosed
	}
	if hour := w.now().UTC().Format(hourLayout); hour != w.hour {
		if err := w.openLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.enc.Write(line); err != nil {
		return err
	}
	w.pending++

	if w.sealEvery <= 0 {
		return w.sealLocked()
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.sealEvery, w.sealOnTimer)
	}
	return nil
}

// Flush seals the open frame so every line written so far is on disk.
func (w *HourlyJSONL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sealLocked()
}

func (w *HourlyJSONL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.sealLocked()
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	w.enc = nil
	return err
}

func (w *HourlyJSONL) sealOnTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timer = nil
	_ = w.sealLocked()
}

func (w *HourlyJSONL) sealLocked() error {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.enc == nil || w.pending == 0 {
		return nil
	}
	w.pending = 0
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("log: seal %s: %w", w.f.Name(), err)
	}
	w.enc.Reset(w.f)
	return nil
}

func (w *HourlyJSONL) openLocked(hour string) error {
	if err := w.sealLocked(); err != nil {
		return err
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.dir, w.prefix+"-"+hour+fileExt), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if w.enc == nil {
		// One encoder per writer, reset onto each new file.
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		if err != nil {
			_ = f.Close()
			return err
		}
		w.enc = enc
	} else {
		w.enc.Reset(f)
	}
	w.f = f
	w.hour = hour
	return nil
}

// ListFiles returns the log files of prefix in dir, oldest hour first.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, fileExt) {
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// ReadLines calls fn with every non-empty line of a file written by
// HourlyJSONL, across all of its frames.
func ReadLines(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// TickLogger writes one line per tick that applied edits.
type TickLogger struct{ w *HourlyJSONL }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{w: NewHourlyJSONL(filepath.Join(worldDir, TicksPrefix), TicksPrefix, DefaultSealEvery)}
}

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.w.Write(v) }
func (l *TickLogger) Flush() error                         { return l.w.Flush() }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// AuditLogger writes one line per applied block edit.
type AuditLogger struct{ w *HourlyJSONL }

func NewAuditLogger(worldDir string) *AuditLogger {
	return &AuditLogger{w: NewHourlyJSONL(filepath.Join(worldDir, AuditPrefix), AuditPrefix, DefaultSealEvery)}
}

func (l *AuditLogger) WriteAudit(v world.AuditEntry) error { return l.w.Write(v) }
func (l *AuditLogger) Flush() error                        { return l.w.Flush() }
func (l *AuditLogger) Close() error                        { return l.w.Close() }
