package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelstore.ai/internal/protocol"
	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/tuning"
	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/terrain/store"
)

func startServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	srv, _, _ := startWorldServer(t, opts)
	return srv
}

// startWorldServer also returns the world and a channel closed when its Run
// loop has returned.
func startWorldServer(t *testing.T, opts Options) (*httptest.Server, *world.World, <-chan struct{}) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	vol := store.NewVolume(cats.Blocks, cats.Blocks.Air(), logger)
	w, err := world.New(world.ConfigFromTuning("ws_test", tuning.Defaults()), vol, logger)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = w.Run(ctx)
	}()

	srv := httptest.NewServer(NewServer(w, logger, opts).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, w, runDone
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, _ := json.Marshal(v)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return kind, b
}

func recvJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	kind, b := recv(t, conn)
	if kind != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", kind)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
}

func hello(t *testing.T, conn *websocket.Conn, compress bool) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "test",
		Capabilities:    protocol.HelloCapabilities{CompressChunks: compress},
	})
	var welcome protocol.WelcomeMsg
	recvJSON(t, conn, &welcome)
	if welcome.Type != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %+v", welcome)
	}
	return welcome
}

func TestHandshake(t *testing.T) {
	srv := startServer(t, Options{CompressChunks: true, CompressionThreshold: 256})

	welcome := hello(t, dial(t, srv), true)
	if welcome.SessionID == "" || welcome.WorldID != "ws_test" {
		t.Fatalf("welcome ids: %+v", welcome)
	}
	if welcome.GameProtocol != protocol.GameProtocol || welcome.DefaultBlock != "AIR" {
		t.Fatalf("welcome params: %+v", welcome)
	}
	if !welcome.Compression.Enabled || welcome.Compression.Threshold != 256 {
		t.Fatalf("compression: %+v", welcome.Compression)
	}
	if welcome.BlockPalette.Count == 0 || welcome.BlockPalette.Digest == "" {
		t.Fatalf("palette: %+v", welcome.BlockPalette)
	}

	other := hello(t, dial(t, srv), false)
	if other.SessionID == welcome.SessionID {
		t.Fatalf("session ids must differ")
	}
	if other.Compression.Enabled {
		t.Fatalf("client without compression got %+v", other.Compression)
	}
}

func TestHandshakeRejectsNonHello(t *testing.T) {
	srv := startServer(t, Options{})
	conn := dial(t, srv)
	send(t, conn, protocol.GetBlockMsg{Type: protocol.TypeGetBlock, ProtocolVersion: protocol.Version})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestSetGetBlockAndChunk(t *testing.T) {
	srv := startServer(t, Options{CompressChunks: true, CompressionThreshold: 64})
	conn := dial(t, srv)
	hello(t, conn, true)

	send(t, conn, protocol.SetBlockMsg{
		Type:            protocol.TypeSetBlock,
		ProtocolVersion: protocol.Version,
		ID:              "s1",
		Pos:             [3]int{0, 100, 0},
		Block:           "STONE",
	})
	var ack protocol.AckMsg
	recvJSON(t, conn, &ack)
	if ack.Type != protocol.TypeAck || ack.Ref != "s1" || ack.From != "AIR" || ack.To != "STONE" {
		t.Fatalf("ack: %+v", ack)
	}

	send(t, conn, protocol.GetBlockMsg{
		Type:            protocol.TypeGetBlock,
		ProtocolVersion: protocol.Version,
		ID:              "g1",
		Pos:             [3]int{0, 100, 0},
	})
	var block protocol.BlockMsg
	recvJSON(t, conn, &block)
	if block.Block != "STONE" || block.BlockID != "1:0" || block.Ref != "g1" {
		t.Fatalf("block: %+v", block)
	}

	send(t, conn, protocol.GetChunkMsg{Type: protocol.TypeGetChunk, ProtocolVersion: protocol.Version, CX: 0, CZ: 0})
	kind, frame := recv(t, conn)
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected binary frame, got %d", kind)
	}
	id, payload, err := protocol.DecodeFrame(frame, true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != protocol.ChunkDataPacketID {
		t.Fatalf("packet id %#x", id)
	}
	// x, z, ground-up flag, then the bitmask VarInt: 64 fits in one byte.
	if len(payload) < 10 || payload[9] != 1<<6 {
		t.Fatalf("mask byte %v", payload[:10])
	}
}

func TestRequestErrors(t *testing.T) {
	srv := startServer(t, Options{})
	conn := dial(t, srv)
	hello(t, conn, false)

	cases := []struct {
		name string
		msg  any
		code string
	}{
		{"unknown_block", protocol.SetBlockMsg{Type: protocol.TypeSetBlock, ProtocolVersion: protocol.Version, ID: "a", Pos: [3]int{0, 1, 0}, Block: "NOT_A_BLOCK"}, protocol.ErrUnknownBlock},
		{"out_of_world", protocol.SetBlockMsg{Type: protocol.TypeSetBlock, ProtocolVersion: protocol.Version, ID: "b", Pos: [3]int{0, 256, 0}, Block: "STONE"}, protocol.ErrInvalidTarget},
		{"bad_version", protocol.GetBlockMsg{Type: protocol.TypeGetBlock, ProtocolVersion: "0.9", ID: "c"}, protocol.ErrProtoVersion},
		{"unknown_type", protocol.BaseMessage{Type: "TELEPORT", ProtocolVersion: protocol.Version, ID: "d"}, protocol.ErrProtoBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			send(t, conn, tc.msg)
			var e protocol.ErrorMsg
			recvJSON(t, conn, &e)
			if e.Type != protocol.TypeError || e.Code != tc.code {
				t.Fatalf("got %+v want code %s", e, tc.code)
			}
		})
	}

	// The session survives request errors.
	send(t, conn, protocol.GetBlockMsg{Type: protocol.TypeGetBlock, ProtocolVersion: protocol.Version, Pos: [3]int{5, 5, 5}})
	var block protocol.BlockMsg
	recvJSON(t, conn, &block)
	if block.Block != "AIR" {
		t.Fatalf("block: %+v", block)
	}
}

func TestWorldStoppedReachesClient(t *testing.T) {
	srv, w, runDone := startWorldServer(t, Options{})
	conn := dial(t, srv)
	hello(t, conn, false)

	w.Stop()
	<-runDone

	send(t, conn, protocol.GetBlockMsg{Type: protocol.TypeGetBlock, ProtocolVersion: protocol.Version, ID: "late", Pos: [3]int{0, 1, 0}})
	var e protocol.ErrorMsg
	recvJSON(t, conn, &e)
	if e.Code != protocol.ErrWorldStopped || e.Ref != "late" {
		t.Fatalf("got %+v", e)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
}
