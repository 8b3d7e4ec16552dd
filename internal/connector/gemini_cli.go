package connector

import (
	"encoding/json"
	"iter"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/model"
)

// GeminiCLI reads Gemini CLI's checkpoint files: one JSON document per
// session under ~/.gemini/tmp/<hash>/logs.json, shaped
// {sessionId, messages: [{role, parts: [{text}]}]}.
type GeminiCLI struct{}

func NewGeminiCLI() *GeminiCLI { return &GeminiCLI{} }

func (g *GeminiCLI) Slug() string { return "gemini_cli" }

func (g *GeminiCLI) Detect() (Detection, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Detection{}, err
	}
	root := filepath.Join(home, ".gemini", "tmp")
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{root}, Confidence: 0.8}, nil
}

type geminiDoc struct {
	SessionID string        `json:"sessionId"`
	Messages  []geminiTurn  `json:"messages"`
}

type geminiTurn struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

func (g *GeminiCLI) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
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
				sconv, ok := g.scanFile(sc, path, warn)
				if ok && len(sconv.Messages) > 0 {
					if !yield(sconv) {
						return
					}
				}
			}
		}
	}
}

func (g *GeminiCLI) scanFile(sc ScanContext, path string, warn func(Warning)) (ScannedConversation, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
		return ScannedConversation{}, false
	}
	var doc geminiDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		warn(Warning{Kind: "parse_skip", Path: path, Err: err})
		return ScannedConversation{}, false
	}

	rewritten, original, changed := model.ApplyPathRewrites(sc.PathRewrites, g.Slug(), path)
	extID := doc.SessionID
	if extID == "" {
		extID = StableExternalID(path)
	}
	conv := model.Conversation{
		Agent:      g.Slug(),
		Provenance: sc.Provenance,
		ExternalID: extID,
		SourcePath: rewritten,
	}
	if changed {
		conv.Metadata = map[string]string{"workspace_original": original}
	}

	var messages []model.Message
	idx := 0
	for _, turn := range doc.Messages {
		text := ""
		for _, p := range turn.Parts {
			if p.Text != "" {
				if text != "" {
					text += "\n"
				}
				text += p.Text
			}
		}
		if text == "" {
			continue
		}
		role := NormalizeRole(turn.Role)
		messages = append(messages, model.Message{
			Idx:         idx,
			Role:        role,
			Content:     text,
			ContentHash: model.ContentHash(role, text, 0),
		})
		idx++
	}
	conv.MessageCount = len(messages)
	return ScannedConversation{Conversation: conv, Messages: messages}, true
}
