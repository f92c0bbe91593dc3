package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	actor := fs.String("actor", "", "actor filter (audits)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}
	if err := runQuery(os.Stdout, db, q, *limit, strings.TrimSpace(*actor)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-limit N] [-actor A] snapshots|ticks|audits|legacy_loads|catalogs")
		os.Exit(1)
	}
}

func runQuery(out io.Writer, db *sql.DB, q string, limit int, actor string) error {
	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,world_id,path,columns,sections FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64  `json:"tick"`
				WorldID  string `json:"world_id"`
				Path     string `json:"path"`
				Columns  int    `json:"columns"`
				Sections int    `json:"sections"`
			}
			if err := rows.Scan(&r.Tick, &r.WorldID, &r.Path, &r.Columns, &r.Sections); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "ticks":
		rows, err := db.Query(`SELECT tick,digest,edits,columns,sections FROM ticks ORDER BY tick DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64  `json:"tick"`
				Digest   string `json:"digest"`
				Edits    int    `json:"edits"`
				Columns  int    `json:"columns"`
				Sections int    `json:"sections"`
			}
			if err := rows.Scan(&r.Tick, &r.Digest, &r.Edits, &r.Columns, &r.Sections); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "audits":
		query := `SELECT tick,seq,actor,action,x,y,z,from_block,to_block,COALESCE(reason,'') FROM audits ORDER BY tick DESC, seq DESC LIMIT ?`
		args := []any{limit}
		if actor != "" {
			query = `SELECT tick,seq,actor,action,x,y,z,from_block,to_block,COALESCE(reason,'') FROM audits WHERE actor=? ORDER BY tick DESC, seq DESC LIMIT ?`
			args = []any{actor, limit}
		}
		rows, err := db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick   int64  `json:"tick"`
				Seq    int64  `json:"seq"`
				Actor  string `json:"actor"`
				Action string `json:"action"`
				Pos    [3]int `json:"pos"`
				From   int    `json:"from"`
				To     int    `json:"to"`
				Reason string `json:"reason,omitempty"`
			}
			if err := rows.Scan(&r.Tick, &r.Seq, &r.Actor, &r.Action, &r.Pos[0], &r.Pos[1], &r.Pos[2], &r.From, &r.To, &r.Reason); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "legacy_loads":
		rows, err := db.Query(`SELECT dir,region_files,skipped_files,columns,sections,bad_chunks,bad_sections,recorded_at FROM legacy_loads ORDER BY id DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Dir          string `json:"dir"`
				RegionFiles  int    `json:"region_files"`
				SkippedFiles int    `json:"skipped_files"`
				Columns      int    `json:"columns"`
				Sections     int    `json:"sections"`
				BadChunks    int    `json:"bad_chunks"`
				BadSections  int    `json:"bad_sections"`
				RecordedAt   string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Dir, &r.RegionFiles, &r.SkippedFiles, &r.Columns, &r.Sections, &r.BadChunks, &r.BadSections, &r.RecordedAt); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query: %s", q)
	}
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
