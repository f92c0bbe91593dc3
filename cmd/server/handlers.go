package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"voxelstore.ai/internal/sim/world"
	"voxelstore.ai/internal/transport/ws"
)

func metricsHandler(w *world.World, wsSrv *ws.Server, idx runtimeIndex) http.HandlerFunc {
	worldID := w.ID()
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()
		tick := w.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP voxelstore_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE voxelstore_world_tick gauge\n")
		fmt.Fprintf(rw, "voxelstore_world_tick{world=%q} %d\n", worldID, tick)

		fmt.Fprintf(rw, "# HELP voxelstore_world_columns Loaded column count.\n")
		fmt.Fprintf(rw, "# TYPE voxelstore_world_columns gauge\n")
		fmt.Fprintf(rw, "voxelstore_world_columns{world=%q} %d\n", worldID, m.Columns)

		fmt.Fprintf(rw, "# HELP voxelstore_world_sections Allocated section count.\n")
		fmt.Fprintf(rw, "# TYPE voxelstore_world_sections gauge\n")
		fmt.Fprintf(rw, "voxelstore_world_sections{world=%q} %d\n", worldID, m.Sections)

		fmt.Fprintf(rw, "# HELP voxelstore_world_edits_total Block edits applied.\n")
		fmt.Fprintf(rw, "# TYPE voxelstore_world_edits_total counter\n")
		fmt.Fprintf(rw, "voxelstore_world_edits_total{world=%q} %d\n", worldID, m.EditsApplied)

		fmt.Fprintf(rw, "# HELP voxelstore_world_chunk_requests_total Chunk data requests served.\n")
		fmt.Fprintf(rw, "# TYPE voxelstore_world_chunk_requests_total counter\n")
		fmt.Fprintf(rw, "voxelstore_world_chunk_requests_total{world=%q} %d\n", worldID, m.ChunkRequests)

		fmt.Fprintf(rw, "# HELP voxelstore_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE voxelstore_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "voxelstore_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "voxelstore_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "blocks", m.QueueDepths.Blocks)
		fmt.Fprintf(rw, "voxelstore_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "chunks", m.QueueDepths.Chunks)

		fmt.Fprintf(rw, "# HELP voxelstore_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE voxelstore_world_step_ms gauge\n")
		fmt.Fprintf(rw, "voxelstore_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)

		if wsSrv != nil {
			fmt.Fprintf(rw, "# HELP voxelstore_ws_sessions Connected websocket sessions.\n")
			fmt.Fprintf(rw, "# TYPE voxelstore_ws_sessions gauge\n")
			fmt.Fprintf(rw, "voxelstore_ws_sessions{world=%q} %d\n", worldID, wsSrv.Sessions())
		}
		if idx != nil {
			fmt.Fprintf(rw, "# HELP voxelstore_index_dropped_total Index writes dropped because the queue was full.\n")
			fmt.Fprintf(rw, "# TYPE voxelstore_index_dropped_total counter\n")
			fmt.Fprintf(rw, "voxelstore_index_dropped_total{world=%q} %d\n", worldID, idx.Dropped())
		}
	}
}

func stateHandler(w *world.World) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			WorldID string             `json:"world_id"`
			Tick    uint64             `json:"tick"`
			Metrics world.WorldMetrics `json:"metrics"`
		}{
			WorldID: w.ID(),
			Tick:    w.CurrentTick(),
			Metrics: w.Metrics(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func snapshotHandler(w *world.World) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		tick, err := w.RequestSnapshot(ctx)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
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
