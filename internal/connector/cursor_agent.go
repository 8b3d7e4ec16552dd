package connector

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/cass-search/cass/internal/model"
)

// CursorAgent reads the cursor-agent CLI's storage: one store.db SQLite
// file per chat under ~/.config/cursor/chats/ (preferred) or
// ~/.cursor/chats/, each holding a generic key-value "blobs" table whose
// values are JSON-encoded message records.
type CursorAgent struct{}

func NewCursorAgent() *CursorAgent { return &CursorAgent{} }

func (c *CursorAgent) Slug() string { return "cursor_agent" }

func (c *CursorAgent) storageRoot() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	for _, candidate := range []string{
		filepath.Join(home, ".config", "cursor", "chats"),
		filepath.Join(home, ".cursor", "chats"),
	} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (c *CursorAgent) Detect() (Detection, error) {
	root, ok := c.storageRoot()
	if !ok {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{root}, Confidence: 0.85}, nil
}

func (c *CursorAgent) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
	return func(yield func(ScannedConversation) bool) {
		for _, root := range sc.ScanRoots {
			storeDBs := findStoreDBs(root)
			for _, path := range storeDBs {
				if info, err := os.Stat(path); err == nil && sc.SinceMillis > 0 {
					if info.ModTime().UnixMilli() < sc.SinceMillis {
						continue
					}
				}
				sconv, ok := c.scanStoreDB(sc, path, warn)
				if ok && len(sconv.Messages) > 0 {
					if !yield(sconv) {
						return
					}
				}
			}
		}
	}
}

func findStoreDBs(root string) []string {
	var out []string
	entries, err := os.ReadDir(root)
	if err != nil {
		return out
	}
	for _, e := range entries {
		full := filepath.Join(root, e.Name())
		if e.IsDir() {
			out = append(out, findStoreDBs(full)...)
			continue
		}
		if e.Name() == "store.db" {
			out = append(out, full)
		}
	}
	return out
}

type cursorAgentBlob struct {
	Role      string `json:"role"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

func (c *CursorAgent) scanStoreDB(sc ScanContext, path string, warn func(Warning)) (ScannedConversation, bool) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
		return ScannedConversation{}, false
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
		return ScannedConversation{}, false
	}

	pairs, err := readBlobsTable(db)
	if err != nil {
		warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
		return ScannedConversation{}, false
	}

	rewritten, original, changed := model.ApplyPathRewrites(sc.PathRewrites, c.Slug(), path)
	conv := model.Conversation{
		Agent:      c.Slug(),
		Provenance: sc.Provenance,
		ExternalID: filepath.Base(filepath.Dir(path)),
		SourcePath: rewritten,
	}
	if changed {
		conv.Metadata = map[string]string{"workspace_original": original}
	}

	var messages []model.Message
	idx := 0
	for key, value := range pairs {
		blob, text, ok := parseCursorAgentBlob(key, value)
		if !ok || text == "" {
			continue
		}
		ts := model.NormalizeTimestampMagnitude(blob.Timestamp)
		role := NormalizeRole(firstNonEmpty(blob.Role, blob.Type))
		messages = append(messages, model.Message{
			Idx:         idx,
			Role:        role,
			Content:     text,
			CreatedAt:   ts,
			ContentHash: model.ContentHash(role, text, ts),
		})
		idx++
	}
	conv.MessageCount = len(messages)
	return ScannedConversation{Conversation: conv, Messages: messages}, true
}

func readBlobsTable(db *sql.DB) (map[string]string, error) {
	var exists bool
	if err := db.QueryRow(`SELECT EXISTS (SELECT name FROM sqlite_master WHERE type='table' AND name='blobs')`).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check blobs table: %w", err)
	}
	if !exists {
		return map[string]string{}, nil
	}

	columns, err := blobsColumns(db)
	if err != nil || len(columns) < 2 {
		return map[string]string{}, err
	}

	keyCol, valCol := columns[0], columns[1]
	if contains(columns, "key") && contains(columns, "value") {
		keyCol, valCol = "key", "value"
	} else if contains(columns, "id") && contains(columns, "data") {
		keyCol, valCol = "id", "data"
	}

	rows, err := db.Query(fmt.Sprintf("SELECT %s, %s FROM blobs WHERE %s IS NOT NULL", keyCol, valCol, valCol))
	if err != nil {
		return nil, fmt.Errorf("query blobs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		if value.Valid {
			out[key] = value.String
		}
	}
	return out, rows.Err()
}

func blobsColumns(db *sql.DB) ([]string, error) {
	rows, err := db.Query("PRAGMA table_info(blobs)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			continue
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// parseCursorAgentBlob decodes a blob value as JSON, falling back to the
// CLI's legacy "text$<uuid>" plain-text format when JSON decoding fails.
func parseCursorAgentBlob(key, value string) (cursorAgentBlob, string, bool) {
	var blob cursorAgentBlob
	if err := json.Unmarshal([]byte(value), &blob); err == nil {
		text := firstNonEmpty(blob.Text, blob.Content)
		if text != "" {
			return blob, text, true
		}
	}
	if strings.HasPrefix(key, "text$") {
		return cursorAgentBlob{Role: "user"}, value, true
	}
	return cursorAgentBlob{}, "", false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
