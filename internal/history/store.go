// Package history keeps a local SQLite log of past calls: who connected,
// when, and the summary text fetched afterwards. It is best-effort metadata
// only; realtime events are never stored or replayed from here.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Call is one row in the local call log.
type Call struct {
	ID          int64
	RoomName    string
	Identity    string
	CallerPhone string
	DisplayName string
	StartedAt   time.Time
	EndedAt     *time.Time
	SummaryText string
}

// Store is the local call-log database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	roomName TEXT NOT NULL,
	identity TEXT NOT NULL,
	callerPhone TEXT NOT NULL,
	displayName TEXT NOT NULL,
	startedAt REAL NOT NULL,
	endedAt REAL,
	summaryText TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_calls_startedAt ON calls(startedAt DESC);
`

// Open opens (creating if needed) the call log at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordStart inserts a row for a freshly connected call and returns its id.
func (s *Store) RecordStart(call Call) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO calls (roomName, identity, callerPhone, displayName, startedAt)
		VALUES (?, ?, ?, ?, ?)
	`, call.RoomName, call.Identity, call.CallerPhone, call.DisplayName, unixFromTime(call.StartedAt))
	if err != nil {
		return 0, fmt.Errorf("insert call: %w", err)
	}
	return res.LastInsertId()
}

// RecordEnd marks a call finished and stores the summary text shown for it.
func (s *Store) RecordEnd(id int64, endedAt time.Time, summaryText string) error {
	_, err := s.db.Exec(`
		UPDATE calls SET endedAt = ?, summaryText = ? WHERE id = ?
	`, unixFromTime(endedAt), summaryText, id)
	if err != nil {
		return fmt.Errorf("update call: %w", err)
	}
	return nil
}

// Recent returns the most recently started calls, newest first.
func (s *Store) Recent(limit int) ([]Call, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, roomName, identity, callerPhone, displayName, startedAt, endedAt, summaryText
		FROM calls
		ORDER BY startedAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var c Call
		var startedAt float64
		var endedAt sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.RoomName, &c.Identity, &c.CallerPhone,
			&c.DisplayName, &startedAt, &endedAt, &c.SummaryText); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		c.StartedAt = timeFromUnix(startedAt)
		if endedAt.Valid {
			t := timeFromUnix(endedAt.Float64)
			c.EndedAt = &t
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
