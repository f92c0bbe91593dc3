package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"

	"voxelstore.ai/internal/protocol"
	"voxelstore.ai/internal/sim/world/terrain/coords"
)

type botConfig struct {
	Name     string
	Requests int
	Radius   int
	Blocks   []string
	Compress bool
	Seed     int64
	Pause    time.Duration
}

type stats struct {
	Sets       int
	Gets       int
	Chunks     int
	Errors     int
	Mismatches int
	ChunkBytes int
	Elapsed    time.Duration
}

// run drives one session with a random mix of SET_BLOCK, GET_BLOCK and
// GET_CHUNK. The server answers in order, so each request waits for its
// reply. GET_BLOCK replies are checked against the bot's own writes, which
// only holds while it is the sole writer.
func run(conn *websocket.Conn, cfg botConfig, stop <-chan struct{}, logger *log.Logger) (stats, error) {
	var st stats
	start := time.Now()
	defer func() { st.Elapsed = time.Since(start) }()

	if len(cfg.Blocks) == 0 {
		return st, fmt.Errorf("no blocks to place")
	}
	if cfg.Radius <= 0 {
		cfg.Radius = 1
	}

	welcome, err := handshake(conn, cfg)
	if err != nil {
		return st, err
	}
	logger.Printf("WELCOME session=%s world=%s tick=%d default=%s palette=%d compression=%v",
		welcome.SessionID, welcome.WorldID, welcome.Tick, welcome.DefaultBlock, welcome.BlockPalette.Count, welcome.Compression.Enabled)

	r := rand.New(rand.NewSource(cfg.Seed))
	written := map[[3]int]string{}

	for i := 0; cfg.Requests <= 0 || i < cfg.Requests; i++ {
		select {
		case <-stop:
			return st, nil
		default:
		}

		pos := [3]int{r.Intn(2*cfg.Radius+1) - cfg.Radius, r.Intn(coords.ColumnHeight), r.Intn(2*cfg.Radius+1) - cfg.Radius}
		id := fmt.Sprintf("r%d", i)

		switch n := r.Intn(10); {
		case n < 6:
			msg := protocol.SetBlockMsg{Type: protocol.TypeSetBlock, ProtocolVersion: protocol.Version, ID: id, Pos: pos, Block: cfg.Blocks[r.Intn(len(cfg.Blocks))]}
			var ack protocol.AckMsg
			ok, err := roundTrip(conn, msg, &ack)
			if err != nil {
				return st, err
			}
			if !ok {
				st.Errors++
				continue
			}
			st.Sets++
			written[pos] = ack.To

		case n < 9:
			// Prefer positions this bot wrote so the reply can be checked.
			for p := range written {
				if r.Intn(2) == 0 {
					pos = p
					break
				}
			}
			msg := protocol.GetBlockMsg{Type: protocol.TypeGetBlock, ProtocolVersion: protocol.Version, ID: id, Pos: pos}
			var b protocol.BlockMsg
			ok, err := roundTrip(conn, msg, &b)
			if err != nil {
				return st, err
			}
			if !ok {
				st.Errors++
				continue
			}
			st.Gets++
			if want, seen := written[pos]; seen && want != b.Block {
				st.Mismatches++
				logger.Printf("mismatch at %v: wrote %s, read %s", pos, want, b.Block)
			}

		default:
			key := coords.BlockToColumn(pos[0], pos[2])
			msg := protocol.GetChunkMsg{Type: protocol.TypeGetChunk, ProtocolVersion: protocol.Version, ID: id, CX: key.CX, CZ: key.CZ}
			if err := conn.WriteJSON(msg); err != nil {
				return st, err
			}
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return st, err
			}
			if kind != websocket.BinaryMessage {
				st.Errors++
				continue
			}
			pid, _, err := protocol.DecodeFrame(data, welcome.Compression.Enabled)
			if err != nil {
				return st, fmt.Errorf("chunk %d,%d: %w", key.CX, key.CZ, err)
			}
			if pid != protocol.ChunkDataPacketID {
				return st, fmt.Errorf("chunk %d,%d: unexpected packet id %#x", key.CX, key.CZ, pid)
			}
			st.Chunks++
			st.ChunkBytes += len(data)
		}

		if cfg.Pause > 0 {
			time.Sleep(cfg.Pause)
		}
	}
	return st, nil
}

func handshake(conn *websocket.Conn, cfg botConfig) (protocol.WelcomeMsg, error) {
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      cfg.Name,
		Capabilities: protocol.HelloCapabilities{
			CompressChunks: cfg.Compress,
			MaxQueue:       8,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		return protocol.WelcomeMsg{}, fmt.Errorf("send HELLO: %w", err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		return welcome, fmt.Errorf("read WELCOME: %w", err)
	}
	if welcome.Type != protocol.TypeWelcome {
		return welcome, fmt.Errorf("expected WELCOME, got %q", welcome.Type)
	}
	return welcome, nil
}

// roundTrip sends req and decodes the reply into out. It reports false when
// the server answered with ERROR.
func roundTrip(conn *websocket.Conn, req any, out any) (bool, error) {
	if err := conn.WriteJSON(req); err != nil {
		return false, err
	}
	_, b, err := conn.ReadMessage()
	if err != nil {
		return false, err
	}
	base, err := protocol.DecodeBase(b)
	if err != nil {
		return false, err
	}
	if base.Type == protocol.TypeError {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}
