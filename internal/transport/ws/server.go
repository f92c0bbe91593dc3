package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelstore.ai/internal/protocol"
	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/sim/world/terrain/coords"
)

type Options struct {
	CompressChunks       bool
	CompressionThreshold int
	ReadLimitBytes       int64
}

type Server struct {
	world *world.World
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader
	sessions atomic.Int64
}

type frame struct {
	kind int
	data []byte
}

func NewServer(w *world.World, logger *log.Logger, opts Options) *Server {
	if opts.ReadLimitBytes <= 0 {
		opts.ReadLimitBytes = 64 * 1024
	}
	s := &Server{
		world: w,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// Sessions is the number of connections past the handshake.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(s.opts.ReadLimitBytes)

		sess, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.sessions.Add(1)
		defer s.sessions.Add(-1)
		s.log.Printf("ws: session %s connected from %s (compress=%v)", sess.id, r.RemoteAddr, sess.compress)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. It exits once out is closed and drained.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case f, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(f.kind, f.data); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. Requests are served in arrival order.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if !s.serve(ctx, sess, msg) {
				break
			}
		}

		// Only the reader enqueues, so out can be closed here; the writer
		// flushes what is left before the close frame goes out.
		close(sess.out)
		<-writerDone
		if sess.closeCode != 0 {
			closeWith(conn, sess.closeCode, sess.closeReason)
		}
		s.log.Printf("ws: session %s closed", sess.id)
	}
}

type session struct {
	id       string
	compress bool
	out      chan frame

	// Set when the server ends the session; sent after out is drained.
	closeCode   int
	closeReason string
}

func (s *Server) handshake(conn *websocket.Conn) (*session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return nil, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "bad HELLO")
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return nil, false
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	sess := &session{
		id:       uuid.NewString(),
		compress: s.opts.CompressChunks && hello.Capabilities.CompressChunks,
		out:      make(chan frame, maxQ),
	}

	cfg := s.world.Config()
	blocks := s.world.Catalog()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		WorldID:         cfg.ID,
		GameProtocol:    protocol.GameProtocol,
		Tick:            s.world.CurrentTick(),
		TickRateHz:      cfg.TickRateHz,
		DefaultBlock:    s.world.DefaultBlock().Name,
		BlockPalette:    protocol.DigestRef{Digest: blocks.PaletteDigest, Count: len(blocks.Palette)},
		Compression:     protocol.Compression{Enabled: sess.compress},
	}
	if sess.compress {
		welcome.Compression.Threshold = s.opts.CompressionThreshold
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil, false
	}
	return sess, true
}

// serve handles one client message. It returns false when the connection
// should be dropped.
func (s *Server) serve(ctx context.Context, sess *session, msg []byte) bool {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return s.reply(ctx, sess, protocol.NewError("", protocol.ErrProtoBadRequest, "invalid json"))
	}
	if base.ProtocolVersion != protocol.Version {
		return s.reply(ctx, sess, protocol.NewError(base.ID, protocol.ErrProtoVersion, fmt.Sprintf("protocol_version %q not supported", base.ProtocolVersion)))
	}

	switch base.Type {
	case protocol.TypeGetChunk:
		var m protocol.GetChunkMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return s.reply(ctx, sess, protocol.NewError(base.ID, protocol.ErrBadRequest, err.Error()))
		}
		if !fitsInt32(m.CX) || !fitsInt32(m.CZ) {
			return s.reply(ctx, sess, protocol.NewError(m.ID, protocol.ErrInvalidTarget, "chunk coordinate out of range"))
		}
		cd, err := s.world.ChunkData(ctx, coords.ChunkKey{CX: m.CX, CZ: m.CZ})
		if err != nil {
			return s.replyErr(ctx, sess, m.ID, err)
		}
		pkt := protocol.ChunkDataPacket(int32(m.CX), int32(m.CZ), cd.Mask, cd.Data)
		b, err := protocol.EncodeFrame(pkt, sess.compress, s.opts.CompressionThreshold)
		if err != nil {
			return s.replyErr(ctx, sess, m.ID, err)
		}
		return s.enqueue(ctx, sess, frame{kind: websocket.BinaryMessage, data: b})

	case protocol.TypeGetBlock:
		var m protocol.GetBlockMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return s.reply(ctx, sess, protocol.NewError(base.ID, protocol.ErrBadRequest, err.Error()))
		}
		pos := coords.BlockPos{X: m.Pos[0], Y: m.Pos[1], Z: m.Pos[2]}
		b, err := s.world.GetBlock(ctx, pos)
		if err != nil {
			return s.replyErr(ctx, sess, m.ID, err)
		}
		return s.reply(ctx, sess, protocol.BlockMsg{
			Type:            protocol.TypeBlock,
			ProtocolVersion: protocol.Version,
			Ref:             m.ID,
			Pos:             m.Pos,
			Block:           b.Name,
			BlockID:         b.ID.String(),
		})

	case protocol.TypeSetBlock:
		var m protocol.SetBlockMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return s.reply(ctx, sess, protocol.NewError(base.ID, protocol.ErrBadRequest, err.Error()))
		}
		pos := coords.BlockPos{X: m.Pos[0], Y: m.Pos[1], Z: m.Pos[2]}
		res, err := s.world.SetBlock(ctx, sess.id, pos, m.Block)
		if err != nil {
			return s.replyErr(ctx, sess, m.ID, err)
		}
		return s.reply(ctx, sess, protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			Ref:             m.ID,
			Tick:            res.Tick,
			From:            res.From.Name,
			To:              res.To.Name,
		})

	default:
		return s.reply(ctx, sess, protocol.NewError(base.ID, protocol.ErrProtoBadRequest, fmt.Sprintf("unknown message type %q", base.Type)))
	}
}

func (s *Server) replyErr(ctx context.Context, sess *session, ref string, err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, world.ErrOutOfWorld):
		return s.reply(ctx, sess, protocol.NewError(ref, protocol.ErrInvalidTarget, err.Error()))
	case errors.Is(err, world.ErrUnknownBlock):
		return s.reply(ctx, sess, protocol.NewError(ref, protocol.ErrUnknownBlock, err.Error()))
	case errors.Is(err, world.ErrStopped):
		sess.closeCode, sess.closeReason = websocket.CloseGoingAway, "world stopped"
		s.reply(ctx, sess, protocol.NewError(ref, protocol.ErrWorldStopped, "world stopped"))
		return false
	default:
		s.log.Printf("ws: session %s: %v", sess.id, err)
		return s.reply(ctx, sess, protocol.NewError(ref, protocol.ErrInternal, "internal error"))
	}
}

func (s *Server) reply(ctx context.Context, sess *session, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Printf("ws: marshal %T: %v", v, err)
		return false
	}
	return s.enqueue(ctx, sess, frame{kind: websocket.TextMessage, data: b})
}

func (s *Server) enqueue(ctx context.Context, sess *session, f frame) bool {
	select {
	case sess.out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func fitsInt32(v int) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
