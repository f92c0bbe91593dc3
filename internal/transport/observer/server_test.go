package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelstore.ai/internal/observerproto"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/tuning"
	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/terrain/store"
)

func newWorld(t *testing.T) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	vol := store.NewVolume(cats.Blocks, cats.Blocks.Air(), logger)
	w, err := world.New(world.ConfigFromTuning("observer_test", tuning.Defaults()), vol, logger)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:5000":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", addr, got, want)
		}
	}
}

func TestBootstrap(t *testing.T) {
	w := newWorld(t)
	s := NewServer(w, log.New(io.Discard, "", 0))

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/observer/bootstrap", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec := httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp observerproto.BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.WorldID != "observer_test" || resp.DefaultBlock != "AIR" {
		t.Fatalf("resp: %+v", resp)
	}
	if resp.WorldParams.SectionsPerColumn != 16 || resp.WorldParams.SectionSize != [3]int{16, 16, 16} {
		t.Fatalf("params: %+v", resp.WorldParams)
	}
	if len(resp.BlockPalette) != len(w.Catalog().Palette) {
		t.Fatalf("palette len %d", len(resp.BlockPalette))
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/v1/observer/bootstrap", nil)
	req.RemoteAddr = "192.168.1.20:4000"
	rec = httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote status %d", rec.Code)
	}
}

func TestTickStream(t *testing.T) {
	w := newWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	s := NewServer(w, log.New(io.Discard, "", 0))
	s.Sessions = func() int64 { return 3 }
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub, _ := json.Marshal(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, EveryTicks: 1})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		t.Fatalf("write: %v", err)
	}

	var prev uint64
	for i := 0; i < 3; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg observerproto.TickMsg
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Type != "TICK" || msg.Sessions != 3 {
			t.Fatalf("msg: %+v", msg)
		}
		if i > 0 && msg.Tick <= prev {
			t.Fatalf("tick did not advance: %d after %d", msg.Tick, prev)
		}
		prev = msg.Tick
	}
}
