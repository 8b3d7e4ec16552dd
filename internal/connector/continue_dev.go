package connector

import (
	"encoding/json"
	"iter"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/model"
)

// ContinueDev reads Continue's session store: one JSON document per
// session under ~/.continue/sessions/<id>.json, shaped
// {sessionId, title, workspaceDirectory, history: [{message: {role,
// content}, ...}]}.
type ContinueDev struct{}

func NewContinueDev() *ContinueDev { return &ContinueDev{} }

func (c *ContinueDev) Slug() string { return "continue_dev" }

func (c *ContinueDev) Detect() (Detection, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Detection{}, err
	}
	root := filepath.Join(home, ".continue", "sessions")
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{root}, Confidence: 0.85}, nil
}

type continueSession struct {
	SessionID          string              `json:"sessionId"`
	Title              string              `json:"title"`
	WorkspaceDirectory string              `json:"workspaceDirectory"`
	History            []continueHistEntry `json:"history"`
}

type continueHistEntry struct {
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

func (c *ContinueDev) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
	return func(yield func(ScannedConversation) bool) {
		for _, root := range sc.ScanRoots {
			files, err := walkFilesWithExt(root, ".json")
			if err != nil {
				warn(Warning{Kind: "source_unreadable", Path: root, Err: err})
				continue
			}
			for _, path := range files {
				if info, err := os.Stat(path); err == nil && sc.SinceMillis > 0 {
					if info.ModTime().UnixMilli() < sc.SinceMillis {
						continue
					}
				}
				sconv, ok := c.scanFile(sc, path, warn)
				if ok && len(sconv.Messages) > 0 {
					if !yield(sconv) {
						return
					}
				}
			}
		}
	}
}

func (c *ContinueDev) scanFile(sc ScanContext, path string, warn func(Warning)) (ScannedConversation, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
		return ScannedConversation{}, false
	}
	var doc continueSession
	if err := json.Unmarshal(data, &doc); err != nil {
		warn(Warning{Kind: "parse_skip", Path: path, Err: err})
		return ScannedConversation{}, false
	}

	rewritten, original, changed := model.ApplyPathRewrites(sc.PathRewrites, c.Slug(), path)
	extID := doc.SessionID
	if extID == "" {
		extID = StableExternalID(path)
	}
	conv := model.Conversation{
		Agent:      c.Slug(),
		Provenance: sc.Provenance,
		ExternalID: extID,
		Title:      doc.Title,
		SourcePath: rewritten,
	}
	if changed {
		conv.Metadata = map[string]string{"workspace_original": original}
	} else if doc.WorkspaceDirectory != "" {
		conv.Metadata = map[string]string{"workspace": doc.WorkspaceDirectory}
	}

	var messages []model.Message
	idx := 0
	for _, entry := range doc.History {
		content := flattenContent(entry.Message.Content)
		if content == "" {
			continue
		}
		role := NormalizeRole(entry.Message.Role)
		messages = append(messages, model.Message{
			Idx:         idx,
			Role:        role,
			Content:     content,
			ContentHash: model.ContentHash(role, content, 0),
		})
		idx++
	}
	conv.MessageCount = len(messages)
	return ScannedConversation{Conversation: conv, Messages: messages}, true
}
