package connector

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// cursorBubble is a message bubble as stored in Cursor's cursorDiskKV table
// under key "bubbleId:<chatId>:<bubbleId>".
type cursorBubble struct {
	BubbleID   string           `json:"bubbleId"`
	ChatID     string           `json:"chatId"`
	Text       string           `json:"text,omitempty"`
	RichText   string           `json:"richText,omitempty"`
	CodeBlocks []cursorCodeBlok `json:"codeBlocks,omitempty"`
	Timestamp  int64            `json:"timestamp"`
	Type       int              `json:"type"` // 1=user, 2=assistant
}

type cursorCodeBlok struct {
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
}

// cursorComposer is a conversation header as stored under key
// "composerData:<composerId>".
type cursorComposer struct {
	ComposerID                  string                `json:"composerId"`
	Name                        string                `json:"name,omitempty"`
	FullConversationHeadersOnly []cursorConvoHeader   `json:"fullConversationHeadersOnly,omitempty"`
	LastUpdatedAt               int64                 `json:"lastUpdatedAt,omitempty"`
	CreatedAt                   int64                 `json:"createdAt,omitempty"`
}

type cursorConvoHeader struct {
	BubbleID string `json:"bubbleId"`
	Type     int    `json:"type"`
}

func openCursorDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open cursor db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cursor db: %w", err)
	}
	return db, nil
}

func queryCursorDiskKV(db *sql.DB, pattern string) (map[string]string, error) {
	rows, err := db.Query("SELECT key, value FROM cursorDiskKV WHERE key LIKE ? AND value IS NOT NULL", pattern)
	if err != nil {
		return nil, fmt.Errorf("query cursorDiskKV: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		if value.Valid {
			out[key] = value.String
		}
	}
	return out, rows.Err()
}

func loadCursorBubbles(db *sql.DB) (map[string]*cursorBubble, error) {
	pairs, err := queryCursorDiskKV(db, "bubbleId:%")
	if err != nil {
		return nil, err
	}
	bubbles := make(map[string]*cursorBubble, len(pairs))
	for key, value := range pairs {
		parts := strings.SplitN(strings.TrimPrefix(key, "bubbleId:"), ":", 2)
		if len(parts) != 2 {
			continue
		}
		var b cursorBubble
		if err := json.Unmarshal([]byte(value), &b); err != nil {
			continue
		}
		b.ChatID, b.BubbleID = parts[0], parts[1]
		bubbles[b.BubbleID] = &b
	}
	return bubbles, nil
}

func loadCursorComposers(db *sql.DB) ([]*cursorComposer, error) {
	pairs, err := queryCursorDiskKV(db, "composerData:%")
	if err != nil {
		return nil, err
	}
	composers := make([]*cursorComposer, 0, len(pairs))
	for key, value := range pairs {
		id := strings.TrimPrefix(key, "composerData:")
		var c cursorComposer
		if err := json.Unmarshal([]byte(value), &c); err != nil {
			continue
		}
		c.ComposerID = id
		composers = append(composers, &c)
	}
	return composers, nil
}
