package connector

import (
	"bufio"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/cass-search/cass/internal/model"
)

// Aider reads aider's plain markdown chat history (.aider.chat.history.md):
// a sequence of "#### " headed blocks alternating user prompts and
// "> " blockquoted assistant replies, one history file per workspace.
type Aider struct{}

func NewAider() *Aider { return &Aider{} }

func (a *Aider) Slug() string { return "aider" }

func (a *Aider) Detect() (Detection, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Detection{}, err
	}
	path := filepath.Join(cwd, ".aider.chat.history.md")
	if _, err := os.Stat(path); err != nil {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{cwd}, Confidence: 0.8}, nil
}

func (a *Aider) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
	return func(yield func(ScannedConversation) bool) {
		for _, root := range sc.ScanRoots {
			path := filepath.Join(root, ".aider.chat.history.md")
			info, err := os.Stat(path)
			if err != nil {
				warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
				continue
			}
			if sc.SinceMillis > 0 && info.ModTime().UnixMilli() < sc.SinceMillis {
				continue
			}
			sconv, ok := a.scanFile(sc, path, warn)
			if ok && len(sconv.Messages) > 0 {
				yield(sconv)
			}
		}
	}
}

func (a *Aider) scanFile(sc ScanContext, path string, warn func(Warning)) (ScannedConversation, bool) {
	f, err := os.Open(path)
	if err != nil {
		warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
		return ScannedConversation{}, false
	}
	defer f.Close()

	rewritten, original, changed := model.ApplyPathRewrites(sc.PathRewrites, a.Slug(), path)
	conv := model.Conversation{
		Agent:      a.Slug(),
		Provenance: sc.Provenance,
		ExternalID: StableExternalID(path),
		SourcePath: rewritten,
	}
	if changed {
		conv.Metadata = map[string]string{"workspace_original": original}
	}

	var messages []model.Message
	var buf strings.Builder
	role := model.RoleUser
	idx := 0

	flush := func() {
		text := strings.TrimSpace(buf.String())
		buf.Reset()
		if text == "" {
			return
		}
		messages = append(messages, model.Message{
			Idx:         idx,
			Role:        role,
			Content:     text,
			ContentHash: model.ContentHash(role, text, 0),
		})
		idx++
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "#### "):
			flush()
			role = model.RoleUser
			buf.WriteString(strings.TrimPrefix(line, "#### "))
			buf.WriteString("\n")
		case strings.HasPrefix(line, "> "):
			if role != model.RoleAssistant {
				flush()
				role = model.RoleAssistant
			}
			buf.WriteString(strings.TrimPrefix(line, "> "))
			buf.WriteString("\n")
		default:
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
		return ScannedConversation{}, false
	}

	conv.MessageCount = len(messages)
	return ScannedConversation{Conversation: conv, Messages: messages}, true
}
