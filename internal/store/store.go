// Package store provides a SQLite-backed transcript log of chat turns.
// Transcripts exist for operators reviewing what customers asked and which
// knowledge entries were matched; they are never read back into prompts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Turn is one answered chat request.
type Turn struct {
	// ID is a random UUID assigned by Append when empty.
	ID string `json:"id"`
	// RequestID correlates the turn with HTTP logs. May be empty.
	RequestID string `json:"requestId,omitempty"`
	// Query is the user's question.
	Query string `json:"query"`
	// Reply is the text returned to the user.
	Reply string `json:"reply"`
	// Source is "model" or "fallback".
	Source string `json:"source"`
	// Rule names the fallback rule that answered, empty for model answers.
	Rule string `json:"rule,omitempty"`
	// Succeeded mirrors the succeeded flag returned to the client.
	Succeeded bool `json:"succeeded"`
	// Matches are the ids of the knowledge entries used as context.
	Matches []string `json:"matches"`
	// Duration is the end-to-end handling time.
	Duration time.Duration `json:"duration"`
	// CreatedAt is set by Append when zero.
	CreatedAt time.Time `json:"createdAt"`
}

// TranscriptStore persists chat turns. Implementations must be safe for
// concurrent use.
type TranscriptStore interface {
	// Append persists a turn and returns it with ID and CreatedAt filled in.
	Append(ctx context.Context, t Turn) (Turn, error)
	// Recent returns the most recent n turns ordered oldest-first.
	// If fewer than n turns exist, all are returned.
	Recent(ctx context.Context, n int) ([]Turn, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a TranscriptStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the transcript database.
// It resolves to ~/.kbchat/transcripts.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".kbchat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "transcripts.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS transcripts (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT    NOT NULL UNIQUE,
    request_id   TEXT    NOT NULL DEFAULT '',
    query        TEXT    NOT NULL,
    reply        TEXT    NOT NULL,
    source       TEXT    NOT NULL CHECK(source IN ('model','fallback')),
    rule         TEXT    NOT NULL DEFAULT '',
    succeeded    INTEGER NOT NULL,
    matches      TEXT    NOT NULL,  -- JSON array of knowledge entry ids
    duration_ms  INTEGER NOT NULL,
    created_at   INTEGER NOT NULL   -- Unix timestamp (milliseconds)
);
CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists a single turn.
func (s *SQLiteStore) Append(ctx context.Context, t Turn) (Turn, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Matches == nil {
		t.Matches = []string{}
	}
	matches, err := json.Marshal(t.Matches)
	if err != nil {
		return Turn{}, fmt.Errorf("store: append: encode matches: %w", err)
	}

	const q = `
INSERT INTO transcripts (id, request_id, query, reply, source, rule, succeeded, matches, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		t.ID, t.RequestID, t.Query, t.Reply, t.Source, t.Rule,
		t.Succeeded, string(matches), t.Duration.Milliseconds(), t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Turn{}, fmt.Errorf("store: append: %w", err)
	}
	return t, nil
}

// Recent returns the most recent n turns, ordered oldest-first. Uses a
// subquery to select the tail then re-order it.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Turn, error) {
	const q = `
SELECT id, request_id, query, reply, source, rule, succeeded, matches, duration_ms, created_at FROM (
    SELECT *
    FROM   transcripts
    ORDER  BY created_at DESC, seq DESC
    LIMIT  ?
) ORDER BY created_at ASC, seq ASC`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t          Turn
			matches    string
			durationMs int64
			ts         int64
		)
		if err := rows.Scan(&t.ID, &t.RequestID, &t.Query, &t.Reply, &t.Source, &t.Rule,
			&t.Succeeded, &matches, &durationMs, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		if err := json.Unmarshal([]byte(matches), &t.Matches); err != nil {
			return nil, fmt.Errorf("store: recent decode matches for %s: %w", t.ID, err)
		}
		t.Duration = time.Duration(durationMs) * time.Millisecond
		t.CreatedAt = time.UnixMilli(ts)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return turns, nil
}

// PingContext verifies the database is reachable.
func (s *SQLiteStore) PingContext(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
