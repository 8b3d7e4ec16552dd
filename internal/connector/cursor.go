package connector

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/cass-search/cass/internal/model"
)

// Cursor reads Cursor IDE's modern globalStorage format: a single SQLite
// key-value store (state.vscdb, table cursorDiskKV) holding message
// "bubbles" and conversation "composers" keyed by id.
type Cursor struct{}

func NewCursor() *Cursor { return &Cursor{} }

func (c *Cursor) Slug() string { return "cursor" }

func (c *Cursor) cursorBasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library/Application Support/Cursor/User"), nil
	case "linux":
		return filepath.Join(home, ".config/Cursor/User"), nil
	default:
		return "", fmt.Errorf("unsupported OS for cursor connector: %s", runtime.GOOS)
	}
}

func (c *Cursor) Detect() (Detection, error) {
	base, err := c.cursorBasePath()
	if err != nil {
		return Detection{Present: false}, nil
	}
	dbPath := filepath.Join(base, "globalStorage", "state.vscdb")
	if _, err := os.Stat(dbPath); err != nil {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{base}, Confidence: 0.9}, nil
}

func (c *Cursor) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
	return func(yield func(ScannedConversation) bool) {
		for _, base := range sc.ScanRoots {
			dbPath := filepath.Join(base, "globalStorage", "state.vscdb")
			db, err := openCursorDB(dbPath)
			if err != nil {
				warn(Warning{Kind: "source_unreadable", Path: dbPath, Err: err})
				continue
			}

			bubbles, err := loadCursorBubbles(db)
			if err != nil {
				warn(Warning{Kind: "source_unreadable", Path: dbPath, Err: err})
				db.Close()
				continue
			}
			composers, err := loadCursorComposers(db)
			if err != nil {
				warn(Warning{Kind: "source_unreadable", Path: dbPath, Err: err})
				db.Close()
				continue
			}
			workspaces := detectCursorWorkspaces(base)
			db.Close()

			for _, composer := range composers {
				if sc.SinceMillis > 0 && composer.LastUpdatedAt > 0 &&
					model.NormalizeTimestampMagnitude(composer.LastUpdatedAt) < sc.SinceMillis {
					continue
				}
				sconv, ok := c.reconstruct(sc, dbPath, composer, bubbles, workspaces)
				if ok && len(sconv.Messages) > 0 {
					if !yield(sconv) {
						return
					}
				}
			}
		}
	}
}

func (c *Cursor) reconstruct(sc ScanContext, dbPath string, composer *cursorComposer, bubbles map[string]*cursorBubble, workspaces map[string]cursorWorkspace) (ScannedConversation, bool) {
	rewritten, original, changed := model.ApplyPathRewrites(sc.PathRewrites, c.Slug(), dbPath)

	conv := model.Conversation{
		Agent:      c.Slug(),
		Provenance: sc.Provenance,
		ExternalID: composer.ComposerID,
		Title:      composer.Name,
		SourcePath: rewritten,
		StartedAt:  model.NormalizeTimestampMagnitude(composer.CreatedAt),
		EndedAt:    model.NormalizeTimestampMagnitude(composer.LastUpdatedAt),
	}
	if changed {
		conv.Metadata = map[string]string{"workspace_original": original}
	}
	if ws := inferCursorWorkspace(workspaces); ws != "" {
		if conv.Metadata == nil {
			conv.Metadata = map[string]string{}
		}
		conv.Metadata["workspace"] = ws
	}

	type ordered struct {
		msg model.Message
		ts  int64
	}
	var collected []ordered

	for _, header := range composer.FullConversationHeadersOnly {
		bubble, ok := bubbles[header.BubbleID]
		if !ok {
			continue
		}
		text := extractCursorBubbleText(bubble)
		if text == "" {
			continue
		}
		ts := model.NormalizeTimestampMagnitude(bubble.Timestamp)
		role := NormalizeRoleFromType(bubble.Type)
		collected = append(collected, ordered{
			msg: model.Message{
				Role:        role,
				Content:     text,
				CreatedAt:   ts,
				ContentHash: model.ContentHash(role, text, ts),
			},
			ts: ts,
		})
	}

	sort.SliceStable(collected, func(i, j int) bool { return collected[i].ts < collected[j].ts })

	messages := make([]model.Message, 0, len(collected))
	for i, o := range collected {
		o.msg.Idx = i
		messages = append(messages, o.msg)
	}
	conv.MessageCount = len(messages)
	return ScannedConversation{Conversation: conv, Messages: messages}, true
}

func inferCursorWorkspace(workspaces map[string]cursorWorkspace) string {
	for _, ws := range workspaces {
		if ws.Path != "" {
			return ws.Path
		}
	}
	return ""
}
