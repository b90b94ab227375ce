package db

import (
	"path/filepath"
	"strings"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("Expected busy_timeout=5000, got %d", busyTimeout)
	}

	var synchronous int
	if err := db.QueryRow("PRAGMA synchronous").Scan(&synchronous); err != nil {
		t.Fatalf("Failed to query synchronous: %v", err)
	}
	if synchronous != 1 { // NORMAL
		t.Errorf("Expected synchronous=1 (NORMAL), got %d", synchronous)
	}

	var tempStore int
	if err := db.QueryRow("PRAGMA temp_store").Scan(&tempStore); err != nil {
		t.Fatalf("Failed to query temp_store: %v", err)
	}
	if tempStore != 2 { // MEMORY
		t.Errorf("Expected temp_store=2 (MEMORY), got %d", tempStore)
	}
}

func TestPragmasAppliedOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	db1, err := NewDB(path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	db1.Close()

	db2, err := OpenDB(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	var journalMode string
	if err := db2.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}
	if db2.Path() != path {
		t.Errorf("Path() = %q, want %q", db2.Path(), path)
	}
}

func TestDSN(t *testing.T) {
	got := dsn("/tmp/x.db")
	if !strings.HasPrefix(got, "file:/tmp/x.db?") {
		t.Errorf("dsn = %q, want file: prefix with query", got)
	}
	if strings.Count(got, "_pragma=") != len(pragmas) {
		t.Errorf("dsn = %q, want %d pragmas", got, len(pragmas))
	}

	got = dsn("/tmp/x.db?mode=rwc")
	if !strings.Contains(got, "?mode=rwc&_pragma=") {
		t.Errorf("dsn with existing query = %q", got)
	}
}

func TestOpenDB_BadPath(t *testing.T) {
	_, err := OpenDB(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	if err == nil {
		t.Fatal("expected error opening database in a missing directory")
	}
}
