package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store using SQLite. The session record is a
// singleton row: there is exactly one session per installation, so Save
// upserts row id 1 and Load reads it back.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed session store.
// The db parameter should be an open SQLite connection with the
// session_record migration applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save upserts the session record.
func (s *SQLiteStore) Save(ctx context.Context, record Record) error {
	record = record.normalized()

	topics, err := json.Marshal(record.Topics)
	if err != nil {
		return fmt.Errorf("encoding topics: %w", err)
	}

	var lastConnected any
	if !record.LastConnected.IsZero() {
		lastConnected = record.LastConnected.UTC().Format(time.RFC3339Nano)
	}

	query := `
		INSERT INTO session_record (id, host, port, topics, last_connected, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			host = excluded.host,
			port = excluded.port,
			topics = excluded.topics,
			last_connected = excluded.last_connected,
			updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, record.Host, record.Port, string(topics), lastConnected); err != nil {
		return fmt.Errorf("saving session record: %w", err)
	}
	return nil
}

// Load reads the session record. A missing record returns (nil, nil).
func (s *SQLiteStore) Load(ctx context.Context) (*Record, error) {
	query := `
		SELECT host, port, topics, last_connected
		FROM session_record
		WHERE id = 1`

	var (
		record        Record
		topicsJSON    string
		lastConnected sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query).Scan(
		&record.Host, &record.Port, &topicsJSON, &lastConnected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session record: %w", err)
	}

	if topicsJSON != "" {
		if err := json.Unmarshal([]byte(topicsJSON), &record.Topics); err != nil {
			return nil, fmt.Errorf("decoding topics: %w", err)
		}
	}
	if lastConnected.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastConnected.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_connected: %w", err)
		}
		record.LastConnected = t
	}

	return &record, nil
}
