package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "client name")
		requests = flag.Int("n", 1000, "requests to send (0 = until interrupted)")
		radius   = flag.Int("radius", 32, "x/z radius around the origin to edit")
		blocks   = flag.String("blocks", "STONE,DIRT,GRASS,AIR", "comma-separated blocks to place")
		compress = flag.Bool("compress", true, "ask for compressed chunk frames")
		seed     = flag.Int64("seed", 0, "random seed (0 = time based)")
		pause    = flag.Duration("pause", 0, "delay between requests")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		close(stop)
	}()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	cfg := botConfig{
		Name:     *name,
		Requests: *requests,
		Radius:   *radius,
		Blocks:   splitList(*blocks),
		Compress: *compress,
		Seed:     *seed,
		Pause:    *pause,
	}
	st, err := run(conn, cfg, stop, logger)
	logger.Printf("done sets=%d gets=%d chunks=%d errors=%d mismatches=%d chunk_bytes=%d elapsed=%s",
		st.Sets, st.Gets, st.Chunks, st.Errors, st.Mismatches, st.ChunkBytes, st.Elapsed.Round(time.Millisecond))
	if err != nil {
		logger.Fatalf("run: %v", err)
	}
	if st.Mismatches > 0 {
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
