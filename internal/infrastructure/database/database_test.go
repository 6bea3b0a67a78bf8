package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB opens a throwaway database under t.TempDir and closes it when
// the test finishes.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "homelink.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestOpenCreatesFileAndDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state", "homelink.db")

	db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file missing: %v", err)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "homelink.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() after nil DB error = %v", err)
	}
}

func TestExecAndQuery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE publish_queue (
			id INTEGER PRIMARY KEY,
			topic TEXT NOT NULL,
			payload TEXT
		) STRICT
	`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	res, err := db.ExecContext(ctx,
		"INSERT INTO publish_queue (topic, payload) VALUES (?, ?)",
		"status/lamp-1", "on")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id, _ := res.LastInsertId(); id != 1 {
		t.Errorf("LastInsertId() = %d, want 1", id)
	}

	var topic string
	err = db.QueryRowContext(ctx,
		"SELECT topic FROM publish_queue WHERE id = ?", 1).Scan(&topic)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if topic != "status/lamp-1" {
		t.Errorf("topic = %q, want status/lamp-1", topic)
	}
}

func TestTransactions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx,
		"CREATE TABLE publish_queue (id INTEGER PRIMARY KEY, topic TEXT NOT NULL) STRICT",
	); err != nil {
		t.Fatalf("create table: %v", err)
	}

	insert := func(t *testing.T, topic string, commit bool) {
		t.Helper()
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO publish_queue (topic) VALUES (?)", topic); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if commit {
			err = tx.Commit()
		} else {
			err = tx.Rollback()
		}
		if err != nil {
			t.Fatalf("finish tx: %v", err)
		}
	}

	insert(t, "committed/topic", true)
	insert(t, "discarded/topic", false)

	rowCount := func(t *testing.T, topic string) int {
		t.Helper()
		var n int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM publish_queue WHERE topic = ?", topic).Scan(&n)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		return n
	}

	if got := rowCount(t, "committed/topic"); got != 1 {
		t.Errorf("committed rows = %d, want 1", got)
	}
	if got := rowCount(t, "discarded/topic"); got != 0 {
		t.Errorf("rolled-back rows = %d, want 0", got)
	}
}

func TestSingleWriterPool(t *testing.T) {
	db := openTestDB(t)

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}
