package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/crystal-mush/riftcore/pkg/events"
)

// ReplayEntry is one recorded notification. GameMS is match time in
// milliseconds on the simulation's system clock, which runs through pauses.
type ReplayEntry struct {
	Seq    int64          `json:"seq"`
	GameMS int64          `json:"game_ms"`
	Type   string         `json:"type"`
	Client string         `json:"client,omitempty"`
	Team   int            `json:"team,omitempty"`
	Source uint32         `json:"source,omitempty"`
	Text   string         `json:"text,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// replayBuffer bounds rows waiting for the writer goroutine.
const replayBuffer = 4096

type replayRow struct {
	gameMS int64
	typ    string
	client string
	team   int
	source uint32
	text   string
	data   string
}

// ReplayLog is a global event bus subscriber that records every outbound
// notification to SQLite so a match can be audited or replayed. Receive
// only queues the row; a writer goroutine does the inserts, so the
// simulation never waits on disk. Rows that do not fit in the buffer are
// dropped and counted.
type ReplayLog struct {
	db    *sql.DB
	path  string
	match string
	clock func() time.Duration
	rows  chan replayRow
	done  chan struct{}

	mu      sync.Mutex
	flushed *sync.Cond
	closed  bool
	queued  uint64
	written uint64
	dropped uint64
}

// OpenReplayLog opens a SQLite database, sets WAL mode, creates the
// replay table and starts the writer.
func OpenReplayLog(path, match string) (*ReplayLog, error) {
	return openReplayLog(path, match, replayBuffer)
}

func openReplayLog(path, match string, buffer int) (*ReplayLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		`CREATE TABLE IF NOT EXISTS replay (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			match TEXT NOT NULL,
			game_ms INTEGER NOT NULL,
			type TEXT NOT NULL,
			client TEXT NOT NULL DEFAULT '',
			team INTEGER NOT NULL DEFAULT 0,
			source INTEGER NOT NULL DEFAULT 0,
			text TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL DEFAULT ''
		)`,
		"CREATE INDEX IF NOT EXISTS idx_replay_match ON replay(match, seq)",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("replay: init %s: %w", path, err)
		}
	}
	r := &ReplayLog{
		db:    db,
		path:  path,
		match: match,
		rows:  make(chan replayRow, buffer),
		done:  make(chan struct{}),
	}
	r.flushed = sync.NewCond(&r.mu)
	go r.writer()
	return r, nil
}

// SetClock sets the source of row timestamps. Call it before subscribing.
func (r *ReplayLog) SetClock(clock func() time.Duration) {
	r.clock = clock
}

// Receive implements events.Subscriber. Global subscribers see each
// notification once, so every row is one notification.
func (r *ReplayLog) Receive(ev events.Event) {
	row := replayRow{
		typ:    ev.Type.String(),
		client: string(ev.Client),
		team:   int(ev.Team),
		source: uint32(ev.Source),
		text:   ev.Text,
	}
	if r.clock != nil {
		row.gameMS = r.clock().Milliseconds()
	}
	if ev.Data != nil {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			log.Printf("REPLAY: encode %s: %v", ev.Type, err)
			return
		}
		row.data = string(data)
	} else if ev.Raw != nil {
		data, _ := json.Marshal(map[string]any{"raw": ev.Raw})
		row.data = string(data)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.rows <- row:
		r.queued++
	default:
		r.dropped++
		if r.dropped%1000 == 1 {
			log.Printf("REPLAY: writer behind, %d rows dropped so far", r.dropped)
		}
	}
}

func (r *ReplayLog) writer() {
	defer close(r.done)
	for row := range r.rows {
		_, err := r.db.Exec(
			"INSERT INTO replay (match, game_ms, type, client, team, source, text, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			r.match, row.gameMS, row.typ, row.client, row.team, row.source, row.text, row.data,
		)
		if err != nil {
			log.Printf("REPLAY: insert error: %v", err)
		}
		r.mu.Lock()
		r.written++
		r.flushed.Broadcast()
		r.mu.Unlock()
	}
}

// Flush waits until every row queued so far has been written.
func (r *ReplayLog) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := r.queued
	for r.written < target {
		r.flushed.Wait()
	}
}

// Dropped returns how many rows were discarded because the writer fell behind.
func (r *ReplayLog) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Closed implements events.Subscriber.
func (r *ReplayLog) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Recent returns up to limit entries for this match, oldest first. Rows
// still queued when it is called are written first.
func (r *ReplayLog) Recent(ctx context.Context, limit int) ([]ReplayEntry, error) {
	r.Flush()
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, game_ms, type, client, team, source, text, data FROM (
			SELECT * FROM replay WHERE match = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, r.match, limit)
	if err != nil {
		return nil, fmt.Errorf("replay: query: %w", err)
	}
	defer rows.Close()

	var out []ReplayEntry
	for rows.Next() {
		var e ReplayEntry
		var data string
		if err := rows.Scan(&e.Seq, &e.GameMS, &e.Type, &e.Client, &e.Team, &e.Source, &e.Text, &data); err != nil {
			return nil, fmt.Errorf("replay: scan: %w", err)
		}
		if data != "" {
			if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
				return nil, fmt.Errorf("replay: decode row %d: %w", e.Seq, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of rows recorded for this match, after writing
// any that are still queued.
func (r *ReplayLog) Count() (int, error) {
	r.Flush()
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM replay WHERE match = ?", r.match).Scan(&n)
	return n, err
}

// Path returns the filesystem path of the SQLite database.
func (r *ReplayLog) Path() string { return r.path }

// Close stops recording, writes every queued row and closes the database.
func (r *ReplayLog) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.rows)
	r.mu.Unlock()

	<-r.done
	return r.db.Close()
}
