package connector

import (
	"encoding/json"
	"iter"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/model"
)

// Codex reads OpenAI Codex CLI session logs: a JSONL stream whose first
// record is a session_meta header ({id, cwd, originator, cli_version,
// timestamp}) followed by event records ({timestamp, type, role,
// content}). Grounded on the SessionSummary/SessionMeta/Event shape
// observed across the retrieved Codex/Claude session-log parsers.
type Codex struct{}

func NewCodex() *Codex { return &Codex{} }

func (c *Codex) Slug() string { return "codex" }

func (c *Codex) Detect() (Detection, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Detection{}, err
	}
	root := filepath.Join(home, ".codex", "sessions")
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{root}, Confidence: 0.95}, nil
}

type codexRecord struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	// session_meta fields, present when Type == "session_meta"
	ID         string `json:"id"`
	CWD        string `json:"cwd"`
	Originator string `json:"originator"`
	CLIVersion string `json:"cli_version"`
	// event fields
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

func (c *Codex) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
	return func(yield func(ScannedConversation) bool) {
		for _, root := range sc.ScanRoots {
			files, err := walkFilesWithExt(root, ".jsonl")
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
				if sconv, ok := c.scanFile(sc, path, warn); ok && len(sconv.Messages) > 0 {
					if !yield(sconv) {
						return
					}
				}
			}
		}
	}
}

func (c *Codex) scanFile(sc ScanContext, path string, warn func(Warning)) (ScannedConversation, bool) {
	rewritten, original, changed := model.ApplyPathRewrites(sc.PathRewrites, c.Slug(), path)
	conv := model.Conversation{
		Agent:      c.Slug(),
		Provenance: sc.Provenance,
		ExternalID: filepath.Base(path),
		SourcePath: rewritten,
	}
	if changed {
		conv.Metadata = map[string]string{"workspace_original": original}
	}

	var messages []model.Message
	idx := 0
	err := forEachJSONLine(path, func(lineNo int, line []byte) bool {
		var rec codexRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			warn(Warning{Kind: "parse_skip", Path: path, Err: err})
			return true
		}
		if rec.Type == "session_meta" {
			if rec.ID != "" {
				conv.ExternalID = rec.ID
			}
			if rec.CWD != "" {
				if conv.Metadata == nil {
					conv.Metadata = map[string]string{}
				}
				conv.Metadata["cwd"] = rec.CWD
				conv.Metadata["originator"] = rec.Originator
				conv.Metadata["cli_version"] = rec.CLIVersion
			}
			return true
		}
		if rec.Role == "" && rec.Content == nil {
			return true
		}
		content := flattenContent(rec.Content)
		if content == "" {
			return true
		}
		ts, _ := model.ParseTimestampField(rec.Timestamp)
		role := NormalizeRole(rec.Role)
		messages = append(messages, model.Message{
			Idx:         idx,
			Role:        role,
			Content:     content,
			CreatedAt:   ts,
			ContentHash: model.ContentHash(role, content, ts),
		})
		idx++
		if ts > 0 {
			if conv.StartedAt == 0 || ts < conv.StartedAt {
				conv.StartedAt = ts
			}
			if ts > conv.EndedAt {
				conv.EndedAt = ts
			}
		}
		return true
	})
	if err != nil {
		warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
		return ScannedConversation{}, false
	}
	conv.MessageCount = len(messages)
	return ScannedConversation{Conversation: conv, Messages: messages}, true
}
