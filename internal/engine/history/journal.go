// Package history keeps an append-only SQLite journal of refresh cycles.
// It is an operator audit log; snapshots are never restored from it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go_ytpulse/internal/engine"
	_ "modernc.org/sqlite"
)

// Entry is one journaled cycle.
type Entry struct {
	ID         int64     `json:"id"`
	ChannelID  string    `json:"channel_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	State      string    `json:"state"`
	Videos     int       `json:"videos"`
	Error      string    `json:"error,omitempty"`
}

// Journal records engine.CycleRecord values.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("history: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS refresh_cycles (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id  TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		state       TEXT NOT NULL,
		videos      INTEGER NOT NULL DEFAULT 0,
		error       TEXT
	)`)
	return err
}

// RecordCycle implements engine.CycleRecorder.
func (j *Journal) RecordCycle(ctx context.Context, rec engine.CycleRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO refresh_cycles (channel_id, started_at, finished_at, state, videos, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ChannelID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(rec.State), rec.Videos, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A limit outside [1,100] means 20.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, channel_id, started_at, finished_at, state, videos, COALESCE(error, '')
		 FROM refresh_cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var started, finished string
		if err := rows.Scan(&e.ID, &e.ChannelID, &started, &finished, &e.State, &e.Videos, &e.Error); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		e.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
