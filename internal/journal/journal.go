// Package journal persists the change-event audit trail to a local
// SQLite database. The in-memory version ring is capped and volatile;
// the journal is the durable record of what changed, when, and by whom.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/specloom/specloom/internal/specstore"
)

// schema contains the DDL executed on first open. Using IF NOT EXISTS
// makes it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS events (
    id          TEXT PRIMARY KEY,
    type        TEXT NOT NULL,
    author      TEXT NOT NULL DEFAULT '',
    affected    TEXT NOT NULL DEFAULT '[]',
    diff        TEXT NOT NULL DEFAULT '{}',
    occurred_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_occurred ON events(occurred_at);
`

// Entry is one journaled change event.
type Entry struct {
	ID         string
	Type       string
	Author     string
	Affected   []string
	Diff       map[string]any
	OccurredAt time.Time
}

// Journal records change events in a SQLite database in WAL mode.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath, enables WAL
// mode and busy timeout, and creates the schema if needed.
func Open(ctx context.Context, dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	// One connection: SQLite supports a single writer, and a single pooled
	// connection keeps the PRAGMA setup consistent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends one change event. The event's spec snapshot is not
// persisted, only its identity, scope, and diff.
func (j *Journal) Record(ctx context.Context, ev specstore.ChangeEvent) error {
	affected, err := json.Marshal(ev.AffectedFeatureIDs)
	if err != nil {
		return fmt.Errorf("journal: marshal affected ids: %w", err)
	}
	diff := ev.Diff
	if diff == nil {
		diff = map[string]any{}
	}
	diffJSON, err := json.Marshal(diff)
	if err != nil {
		return fmt.Errorf("journal: marshal diff: %w", err)
	}

	const q = `INSERT INTO events (id, type, author, affected, diff, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := j.db.ExecContext(ctx, q,
		ev.ID, string(ev.Type), ev.Author, string(affected), string(diffJSON),
		ev.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("journal: record event %s: %w", ev.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const q = `SELECT id, type, author, affected, diff, occurred_at
		FROM events ORDER BY occurred_at DESC, id LIMIT ?`
	return j.queryEntries(ctx, q, limit)
}

// ByFeature returns every entry whose affected set contains the feature,
// oldest first.
func (j *Journal) ByFeature(ctx context.Context, featureID string) ([]Entry, error) {
	// The affected column holds a JSON array; a quoted-substring match is
	// enough since feature IDs contain no quotes.
	const q = `SELECT id, type, author, affected, diff, occurred_at
		FROM events WHERE affected LIKE ? ORDER BY occurred_at, id`
	return j.queryEntries(ctx, q, `%"`+featureID+`"%`)
}

// queryEntries is a shared helper for scanning event rows.
func (j *Journal) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var affected, diff, ts string
		if err := rows.Scan(&e.ID, &e.Type, &e.Author, &affected, &diff, &ts); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(affected), &e.Affected); err != nil {
			return nil, fmt.Errorf("journal: decode affected ids: %w", err)
		}
		if err := json.Unmarshal([]byte(diff), &e.Diff); err != nil {
			return nil, fmt.Errorf("journal: decode diff: %w", err)
		}
		e.OccurredAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("journal: parse event timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate events: %w", err)
	}
	return entries, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
