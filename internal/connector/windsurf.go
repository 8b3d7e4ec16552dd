package connector

import (
	"encoding/json"
	"iter"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/model"
)

// Windsurf reads Windsurf's Cascade session logs: a JSONL stream under
// ~/.codeium/windsurf/sessions/*.jsonl, each line
// {role, content, ts, workspace}.
type Windsurf struct{}

func NewWindsurf() *Windsurf { return &Windsurf{} }

func (w *Windsurf) Slug() string { return "windsurf" }

func (w *Windsurf) Detect() (Detection, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Detection{}, err
	}
	root := filepath.Join(home, ".codeium", "windsurf", "sessions")
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{root}, Confidence: 0.8}, nil
}

type windsurfLine struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"ts"`
	Workspace string `json:"workspace"`
}

func (w *Windsurf) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
	return scanSimpleJSONLFamily(w.Slug(), sc, warn, func(line []byte) (model.Message, string, bool) {
		var rec windsurfLine
		if err := json.Unmarshal(line, &rec); err != nil || rec.Content == "" {
			return model.Message{}, "", false
		}
		ts, _ := model.ParseTimestampField(rec.Timestamp)
		role := NormalizeRole(rec.Role)
		return model.Message{
			Role:        role,
			Content:     rec.Content,
			CreatedAt:   ts,
			ContentHash: model.ContentHash(role, rec.Content, ts),
		}, rec.Workspace, true
	})
}
