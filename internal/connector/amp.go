package connector

import (
	"encoding/json"
	"iter"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/model"
)

// Amp reads Sourcegraph Amp's thread logs: a JSONL stream under
// ~/.amp/threads/*.jsonl, each line {type, text, ts}.
type Amp struct{}

func NewAmp() *Amp { return &Amp{} }

func (a *Amp) Slug() string { return "amp" }

func (a *Amp) Detect() (Detection, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Detection{}, err
	}
	root := filepath.Join(home, ".amp", "threads")
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{root}, Confidence: 0.8}, nil
}

type ampLine struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp string `json:"ts"`
}

func (a *Amp) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
	return scanSimpleJSONLFamily(a.Slug(), sc, warn, func(line []byte) (model.Message, string, bool) {
		var rec ampLine
		if err := json.Unmarshal(line, &rec); err != nil || rec.Text == "" {
			return model.Message{}, "", false
		}
		ts, _ := model.ParseTimestampField(rec.Timestamp)
		role := NormalizeRole(rec.Type)
		return model.Message{
			Role:        role,
			Content:     rec.Text,
			CreatedAt:   ts,
			ContentHash: model.ContentHash(role, rec.Text, ts),
		}, "", true
	})
}
