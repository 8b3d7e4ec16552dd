package testutil

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// CursorBubbleFixture is one message bubble to seed into a state.vscdb
// fixture, keyed by chatID:bubbleID in cursorDiskKV.
type CursorBubbleFixture struct {
	ChatID    string
	BubbleID  string
	Text      string
	Timestamp int64
	Type      int // 1=user, 2=assistant
}

// CursorComposerFixture is one conversation header to seed into a
// state.vscdb fixture, referencing its bubbles by id.
type CursorComposerFixture struct {
	ComposerID    string
	Name          string
	BubbleIDs     []string
	CreatedAt     int64
	LastUpdatedAt int64
}

// CreateCursorStateDB creates a state.vscdb fixture at dbPath with the
// cursorDiskKV key-value shape Cursor's connector reads: bubbles under
// "bubbleId:<chatId>:<bubbleId>" and composers under
// "composerData:<composerId>", the latter referencing the former via
// fullConversationHeadersOnly.
func CreateCursorStateDB(t *testing.T, dbPath string, bubbles []CursorBubbleFixture, composers []CursorComposerFixture) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cursorDiskKV (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		t.Fatalf("failed to create cursorDiskKV table: %v", err)
	}

	insertSQL := "INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)"
	for _, b := range bubbles {
		payload := map[string]interface{}{
			"bubbleId":  b.BubbleID,
			"chatId":    b.ChatID,
			"text":      b.Text,
			"timestamp": b.Timestamp,
			"type":      b.Type,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal bubble: %v", err)
		}
		key := "bubbleId:" + b.ChatID + ":" + b.BubbleID
		if _, err := db.Exec(insertSQL, key, string(data)); err != nil {
			t.Fatalf("failed to insert bubble: %v", err)
		}
	}

	for _, c := range composers {
		headers := make([]map[string]interface{}, 0, len(c.BubbleIDs))
		for _, id := range c.BubbleIDs {
			headers = append(headers, map[string]interface{}{"bubbleId": id, "type": 1})
		}
		payload := map[string]interface{}{
			"composerId":                  c.ComposerID,
			"name":                        c.Name,
			"fullConversationHeadersOnly": headers,
			"createdAt":                   c.CreatedAt,
			"lastUpdatedAt":               c.LastUpdatedAt,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal composer: %v", err)
		}
		key := "composerData:" + c.ComposerID
		if _, err := db.Exec(insertSQL, key, string(data)); err != nil {
			t.Fatalf("failed to insert composer: %v", err)
		}
	}
}

// CreateWorkspaceFixture creates a workspaceStorage/<hash>/workspace.json
// fixture under basePath, the shape detectCursorWorkspaces reads to
// recover a composer's originating project folder.
func CreateWorkspaceFixture(t *testing.T, basePath, workspaceHash, folder string) {
	t.Helper()
	workspaceDir := filepath.Join(basePath, "workspaceStorage", workspaceHash)
	if err := os.MkdirAll(workspaceDir, 0755); err != nil {
		t.Fatalf("failed to create workspace directory: %v", err)
	}

	data, err := json.Marshal(map[string]string{"folder": folder})
	if err != nil {
		t.Fatalf("failed to marshal workspace.json: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspaceDir, "workspace.json"), data, 0644); err != nil {
		t.Fatalf("failed to write workspace.json: %v", err)
	}
}

// CreateMockCursorBase builds a full Cursor "User" base directory fixture:
// globalStorage/state.vscdb with the given bubbles/composers, plus one
// workspaceStorage entry pointing at folder. Returns the base path, the
// value Cursor's Detect/Scan treat as sc.ScanRoots[i].
func CreateMockCursorBase(t *testing.T, bubbles []CursorBubbleFixture, composers []CursorComposerFixture, folder string) string {
	t.Helper()
	base := CreateTempDir(t)

	dbPath := filepath.Join(base, "globalStorage", "state.vscdb")
	CreateCursorStateDB(t, dbPath, bubbles, composers)

	CreateWorkspaceFixture(t, base, "workspace-hash-123", folder)

	return base
}
