package connector

import (
	"database/sql"
	"iter"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/model"
)

// OpenCode reads opencode's session store: a SQLite database at
// ~/.local/share/opencode/storage.db with a flat "messages" table
// (session_id, idx, role, content, created_at) — grounded on the
// SQLite-backed chat-memory schema observed in the retrieved pack (chunked
// messages persisted alongside their embeddings in one file).
type OpenCode struct{}

func NewOpenCode() *OpenCode { return &OpenCode{} }

func (o *OpenCode) Slug() string { return "opencode" }

func (o *OpenCode) dbPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "opencode", "storage.db"), nil
}

func (o *OpenCode) Detect() (Detection, error) {
	path, err := o.dbPath()
	if err != nil {
		return Detection{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return Detection{Present: false}, nil
	}
	return Detection{Present: true, ScanRoots: []string{path}, Confidence: 0.85}, nil
}

func (o *OpenCode) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
	return func(yield func(ScannedConversation) bool) {
		for _, path := range sc.ScanRoots {
			db, err := sql.Open("sqlite", path+"?mode=ro")
			if err != nil {
				warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
				continue
			}
			if err := db.Ping(); err != nil {
				warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
				db.Close()
				continue
			}

			sessions, err := o.loadSessions(db)
			db.Close()
			if err != nil {
				warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
				continue
			}
			for sessionID, rows := range sessions {
				if len(rows) == 0 {
					continue
				}
				sconv := o.buildConversation(sc, path, sessionID, rows)
				if len(sconv.Messages) > 0 {
					if !yield(sconv) {
						return
					}
				}
			}
		}
	}
}

type openCodeRow struct {
	idx       int
	role      string
	content   string
	createdAt int64
}

func (o *OpenCode) loadSessions(db *sql.DB) (map[string][]openCodeRow, error) {
	rows, err := db.Query(`SELECT session_id, idx, role, content, created_at FROM messages ORDER BY session_id, idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]openCodeRow)
	for rows.Next() {
		var sessionID, role, content string
		var idx int
		var createdAt sql.NullInt64
		if err := rows.Scan(&sessionID, &idx, &role, &content, &createdAt); err != nil {
			continue
		}
		out[sessionID] = append(out[sessionID], openCodeRow{
			idx: idx, role: role, content: content, createdAt: createdAt.Int64,
		})
	}
	return out, rows.Err()
}

func (o *OpenCode) buildConversation(sc ScanContext, path, sessionID string, rows []openCodeRow) ScannedConversation {
	rewritten, original, changed := model.ApplyPathRewrites(sc.PathRewrites, o.Slug(), path)
	conv := model.Conversation{
		Agent:      o.Slug(),
		Provenance: sc.Provenance,
		ExternalID: sessionID,
		SourcePath: rewritten,
	}
	if changed {
		conv.Metadata = map[string]string{"workspace_original": original}
	}

	messages := make([]model.Message, 0, len(rows))
	for i, r := range rows {
		if r.content == "" {
			continue
		}
		ts := model.NormalizeTimestampMagnitude(r.createdAt)
		role := NormalizeRole(r.role)
		messages = append(messages, model.Message{
			Idx:         i,
			Role:        role,
			Content:     r.content,
			CreatedAt:   ts,
			ContentHash: model.ContentHash(role, r.content, ts),
		})
		if ts > 0 {
			if conv.StartedAt == 0 || ts < conv.StartedAt {
				conv.StartedAt = ts
			}
			if ts > conv.EndedAt {
				conv.EndedAt = ts
			}
		}
	}
	conv.MessageCount = len(messages)
	return ScannedConversation{Conversation: conv, Messages: messages}
}
