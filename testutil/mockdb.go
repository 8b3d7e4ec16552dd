package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryCursorDB creates an in-memory cursorDiskKV database for
// tests that exercise the raw key-value query helpers directly, without
// going through a file-backed fixture.
func CreateInMemoryCursorDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to create in-memory database: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cursorDiskKV (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		db.Close()
		t.Fatalf("failed to create cursorDiskKV table: %v", err)
	}
	return db
}

// InsertCursorKV inserts a raw cursorDiskKV row, for tests that want to
// exercise a single malformed or edge-case key/value pair directly.
func InsertCursorKV(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	if _, err := db.Exec("INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)", key, value); err != nil {
		t.Fatalf("failed to insert cursorDiskKV row: %v", err)
	}
}
