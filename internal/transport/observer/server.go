package observer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelstore.ai/internal/observerproto"
	"voxelstore.ai/internal/protocol"
	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/terrain/coords"
)

type Server struct {
	world *world.World
	log   *log.Logger

	// Sessions reports connected client sessions; may be nil.
	Sessions func() int64

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.world.Config()
		blocks := s.world.Catalog()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         cfg.ID,
			Tick:            s.world.CurrentTick(),
			WorldParams: observerproto.WorldParams{
				TickRateHz:         cfg.TickRateHz,
				GameProtocol:       protocol.GameProtocol,
				SectionSize:        [3]int{coords.SectionWidth, coords.SectionHeight, coords.SectionWidth},
				SectionsPerColumn:  coords.SectionCount,
				SnapshotEveryTicks: cfg.SnapshotEveryTicks,
			},
			DefaultBlock:  s.world.DefaultBlock().Name,
			BlockPalette:  blocks.Palette,
			PaletteDigest: blocks.PaletteDigest,
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad subscribe"), time.Now().Add(time.Second))
			return
		}
		if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}
		normalizeSubscribe(&sub)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		every := make(chan int, 1)
		every <- sub.EveryTicks

		// Writer goroutine: polls the published metrics at the tick rate.
		writeErr := make(chan error, 1)
		go func() {
			writeErr <- s.stream(ctx, conn, every)
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var sub observerproto.SubscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil {
				continue
			}
			if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
				continue
			}
			normalizeSubscribe(&sub)
			select {
			case every <- sub.EveryTicks:
			default:
				// Drop updates under load; the client may resend.
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case err := <-writeErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.Printf("observer: stream ended: %v", err)
			}
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn, every <-chan int) error {
	interval := time.Second / time.Duration(s.world.Config().TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n := 1
	var lastSent uint64
	sent := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n = <-every:
		case <-ticker.C:
			m := s.world.Metrics()
			if sent && m.Tick < lastSent+uint64(n) {
				continue
			}
			msg := observerproto.TickMsg{
				Type:            "TICK",
				ProtocolVersion: observerproto.Version,
				Tick:            m.Tick,
				Columns:         m.Columns,
				Sections:        m.Sections,
				EditsApplied:    m.EditsApplied,
				ChunkRequests:   m.ChunkRequests,
				QueueInbox:      m.QueueDepths.Inbox,
				QueueBlocks:     m.QueueDepths.Blocks,
				QueueChunks:     m.QueueDepths.Chunks,
				StepMS:          m.StepMS,
			}
			if s.Sessions != nil {
				msg.Sessions = s.Sessions()
			}
			b, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return err
			}
			lastSent, sent = m.Tick, true
		}
	}
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.EveryTicks <= 0 {
		sub.EveryTicks = 1
	}
	if sub.EveryTicks > 6000 {
		sub.EveryTicks = 6000
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
