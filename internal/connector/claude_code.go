package connector

import (
	"encoding/json"
	"iter"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/model"
)

// ClaudeCode reads Claude Code's session transcripts: one JSONL file per
// session under ~/.claude/projects/<project>/*.jsonl, each line a
// {type, message: {role, content}, timestamp, sessionId, cwd} record.
type ClaudeCode struct{}

func NewClaudeCode() *ClaudeCode { return &ClaudeCode{} }

func (c *ClaudeCode) Slug() string { return "claude_code" }

func (c *ClaudeCode) Detect() (Detection, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Detection{}, err
	}
	root := filepath.Join(home, ".claude", "projects")
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{root}, Confidence: 0.95}, nil
}

type claudeCodeLine struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	SessionID string          `json:"sessionId"`
	CWD       string          `json:"cwd"`
	Message   *claudeCodeMsg  `json:"message"`
}

type claudeCodeMsg struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Model   string          `json:"model"`
}

func (c *ClaudeCode) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
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

func (c *ClaudeCode) scanFile(sc ScanContext, path string, warn func(Warning)) (ScannedConversation, bool) {
	rewritten, original, changed := model.ApplyPathRewrites(sc.PathRewrites, c.Slug(), path)
	sourcePath := rewritten
	_ = changed

	conv := model.Conversation{
		Agent:      c.Slug(),
		Provenance: sc.Provenance,
		ExternalID: filepath.Base(path),
		SourcePath: sourcePath,
	}
	if changed {
		conv.Metadata = map[string]string{"workspace_original": original}
	}

	var messages []model.Message
	idx := 0
	err := forEachJSONLine(path, func(lineNo int, line []byte) bool {
		var rec claudeCodeLine
		if err := json.Unmarshal(line, &rec); err != nil {
			warn(Warning{Kind: "parse_skip", Path: path, Err: err})
			return true
		}
		if rec.SessionID != "" {
			conv.ExternalID = rec.SessionID
		}
		if rec.CWD != "" && conv.Metadata == nil {
			conv.Metadata = map[string]string{"cwd": rec.CWD}
		} else if rec.CWD != "" {
			conv.Metadata["cwd"] = rec.CWD
		}
		if rec.Message == nil {
			return true
		}
		content := flattenContent(rec.Message.Content)
		if content == "" {
			return true
		}
		ts, _ := model.ParseTimestampField(rec.Timestamp)
		role := NormalizeRole(rec.Message.Role)
		msg := model.Message{
			Idx:         idx,
			Role:        role,
			Content:     content,
			CreatedAt:   ts,
			Model:       rec.Message.Model,
			ContentHash: model.ContentHash(role, content, ts),
		}
		messages = append(messages, msg)
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

// flattenContent accepts either a plain string content field or Anthropic's
// content-block array shape, flattening tool_use blocks into searchable
// prose per the connector contract.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var blocks []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	out := ""
	for _, block := range blocks {
		var typ string
		json.Unmarshal(block["type"], &typ)
		switch typ {
		case "text":
			var text string
			json.Unmarshal(block["text"], &text)
			out += text + "\n"
		case "tool_use":
			var name string
			json.Unmarshal(block["name"], &name)
			var input map[string]interface{}
			json.Unmarshal(block["input"], &input)
			params := map[string]string{}
			for k, v := range input {
				params[k] = toDisplayString(v)
			}
			out += FlattenToolUse(name, params) + "\n"
		case "tool_result":
			var content json.RawMessage
			if v, ok := block["content"]; ok {
				content = v
			}
			out += flattenContent(content) + "\n"
		}
	}
	return trimNewlines(out)
}

func toDisplayString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func trimNewlines(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
