// Package store implements the durable relational store (component C): the
// rebuildable ground truth for conversations, messages, and their
// provenance. The FTS and vector indices are disposable derived caches
// that may be recreated from this store at any time.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cass-search/cass/internal/model"
)

// Store wraps the single-file ACID relational store at dbPath.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if absent) the durable store at dbPath. If the file
// exists but carries an incompatible schema_version, it is renamed aside
// with a timestamp suffix and a fresh store is created in its place — the
// store's upgrade policy treats itself as a rebuildable cache, never a
// migration target.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	if err := quarantineIfIncompatible(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline; see spec §5

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := setSchemaVersion(db, CurrentSchemaVersion); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for components (e.g. the FTS adapter)
// that need to share the connection; most callers should prefer the
// typed methods below.
func (s *Store) DB() *sql.DB { return s.db }

func quarantineIfIncompatible(dbPath string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return nil // does not exist yet, nothing to quarantine
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil // unreadable; let Open's fresh-create path handle it
	}
	defer db.Close()

	version, err := readSchemaVersion(db)
	if err != nil || version == CurrentSchemaVersion {
		return nil
	}

	quarantined := fmt.Sprintf("%s.%d.bak", dbPath, time.Now().UnixMilli())
	return os.Rename(dbPath, quarantined)
}

func readSchemaVersion(db *sql.DB) (string, error) {
	var version string
	err := db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'schema_version'`).Scan(&version)
	return version, err
}

func setSchemaVersion(db *sql.DB, version string) error {
	_, err := db.Exec(`INSERT INTO schema_meta(key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, version)
	return err
}

// EnsureAgent idempotently upserts an agent slug, returning its id.
func (s *Store) EnsureAgent(ctx context.Context, slug string) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO agents(slug) VALUES (?) ON CONFLICT(slug) DO NOTHING`, slug); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM agents WHERE slug = ?`, slug).Scan(&id)
	return id, err
}

// EnsureWorkspace idempotently upserts a workspace by canonical path.
func (s *Store) EnsureWorkspace(ctx context.Context, path, originalPath string) (int64, error) {
	if path == "" {
		return 0, nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces(path, original_path) VALUES (?, ?) ON CONFLICT(path) DO NOTHING`,
		path, nullIfEmpty(originalPath))
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM workspaces WHERE path = ?`, path).Scan(&id)
	return id, err
}

// EnsureSource idempotently upserts a source by its stable source_id.
func (s *Store) EnsureSource(ctx context.Context, sourceID string, kind model.OriginKind, hostLabel string) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources(source_id, kind, host_label) VALUES (?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET kind = excluded.kind, host_label = excluded.host_label`,
		sourceID, string(kind), nullIfEmpty(hostLabel))
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM sources WHERE source_id = ?`, sourceID).Scan(&id)
	return id, err
}

// UpsertConversation resolves uniqueness by (source_id, agent, external_id)
// and either inserts a new row or append-augments the existing one
// (ended_at, message_count, title only — never a full overwrite).
func (s *Store) UpsertConversation(ctx context.Context, sourceRowID int64, conv model.Conversation) (int64, error) {
	metaJSON, err := json.Marshal(conv.Metadata)
	if err != nil {
		return 0, err
	}

	var existingID int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE source_row_id = ? AND agent = ? AND external_id = ?`,
		sourceRowID, conv.Agent, conv.ExternalID).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO conversations
				(source_row_id, agent, workspace_id, external_id, title, source_path,
				 origin_kind, origin_host, started_at, ended_at, message_count, metadata_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sourceRowID, conv.Agent, nullIfZero(conv.WorkspaceID), conv.ExternalID, conv.Title,
			conv.SourcePath, string(conv.Provenance.OriginKind), nullIfEmpty(conv.Provenance.OriginHost),
			conv.StartedAt, conv.EndedAt, conv.MessageCount, string(metaJSON))
		if err != nil {
			return 0, fmt.Errorf("insert conversation: %w", err)
		}
		return res.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("lookup conversation: %w", err)
	default:
		_, err = s.db.ExecContext(ctx,
			`UPDATE conversations SET ended_at = ?, message_count = ?, title = COALESCE(NULLIF(?, ''), title)
			 WHERE id = ?`,
			conv.EndedAt, conv.MessageCount, conv.Title, existingID)
		return existingID, err
	}
}

// InsertMessagesBatch inserts messages for a conversation in one
// transaction; messages colliding on (conversation_id, idx) are skipped
// rather than erroring, per the append-only ingest contract.
func (s *Store) InsertMessagesBatch(ctx context.Context, conversationID int64, messages []model.Message) (inserted int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (conversation_id, idx, role, content, created_at, updated_at, model, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, idx) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, m := range messages {
		res, execErr := stmt.ExecContext(ctx, conversationID, m.Idx, string(m.Role), m.Content,
			m.CreatedAt, m.UpdatedAt, nullIfEmpty(m.Model), m.ContentHash)
		if execErr != nil {
			err = fmt.Errorf("insert message idx=%d: %w", m.Idx, execErr)
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ConversationFilter narrows IterConversations.
type ConversationFilter struct {
	Agent       string
	SourceID    string
	WorkspaceID int64
	Since       int64
	Until       int64
}

// IterConversations lazily yields conversations matching filter, most
// recently started first. Ordering across conversations is otherwise
// unspecified per §5; callers needing determinism sort on the sort key.
func (s *Store) IterConversations(ctx context.Context, filter ConversationFilter) iter.Seq2[model.Conversation, error] {
	return func(yield func(model.Conversation, error) bool) {
		query := `SELECT c.id, c.agent, COALESCE(c.workspace_id, 0), s.source_id, c.origin_kind, c.origin_host,
			c.external_id, COALESCE(c.title, ''), c.source_path, c.started_at, c.ended_at,
			c.message_count, COALESCE(c.metadata_json, '')
			FROM conversations c JOIN sources s ON s.id = c.source_row_id WHERE 1=1`
		var args []interface{}
		if filter.Agent != "" {
			query += " AND c.agent = ?"
			args = append(args, filter.Agent)
		}
		if filter.SourceID != "" {
			query += " AND s.source_id = ?"
			args = append(args, filter.SourceID)
		}
		if filter.WorkspaceID != 0 {
			query += " AND c.workspace_id = ?"
			args = append(args, filter.WorkspaceID)
		}
		if filter.Since > 0 {
			query += " AND c.started_at >= ?"
			args = append(args, filter.Since)
		}
		if filter.Until > 0 {
			query += " AND c.started_at <= ?"
			args = append(args, filter.Until)
		}
		query += " ORDER BY c.started_at DESC"

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(model.Conversation{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var c model.Conversation
			var originKind, metaJSON string
			var originHost sql.NullString
			if err := rows.Scan(&c.ID, &c.Agent, &c.WorkspaceID, &c.Provenance.SourceID, &originKind,
				&originHost, &c.ExternalID, &c.Title, &c.SourcePath, &c.StartedAt, &c.EndedAt,
				&c.MessageCount, &metaJSON); err != nil {
				if !yield(model.Conversation{}, err) {
					return
				}
				continue
			}
			c.Provenance.OriginKind = model.OriginKind(originKind)
			c.Provenance.OriginHost = originHost.String
			if metaJSON != "" {
				json.Unmarshal([]byte(metaJSON), &c.Metadata)
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Conversation{}, err)
		}
	}
}

// GetMessages returns every message of a conversation in ascending idx
// order.
func (s *Store) GetMessages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, idx, role, content, created_at, updated_at, COALESCE(model, ''), content_hash
		 FROM messages WHERE conversation_id = ? ORDER BY idx ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		m.ConversationID = conversationID
		if err := rows.Scan(&m.ID, &m.Idx, &m.Role, &m.Content, &m.CreatedAt, &m.UpdatedAt, &m.Model, &m.ContentHash); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMessageContent resolves a message's full content by the conversation's
// source path and the message's index within it, the lookup key a fused
// candidate carries since it never holds a row id. Returns "" if no such
// message is stored (fts and the durable store fell out of sync).
func (s *Store) GetMessageContent(ctx context.Context, sourcePath string, msgIdx int) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT m.content FROM messages m
		 JOIN conversations c ON c.id = m.conversation_id
		 WHERE c.source_path = ? AND m.idx = ?
		 ORDER BY c.id DESC LIMIT 1`, sourcePath, msgIdx).Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return content, err
}

// Counters aggregates the store's top-line size, used by health/doctor.
type Counters struct {
	Agents        int64
	Workspaces    int64
	Sources       int64
	Conversations int64
	Messages      int64
}

func (s *Store) Counters(ctx context.Context) (Counters, error) {
	var c Counters
	rows := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM agents", &c.Agents},
		{"SELECT COUNT(*) FROM workspaces", &c.Workspaces},
		{"SELECT COUNT(*) FROM sources", &c.Sources},
		{"SELECT COUNT(*) FROM conversations", &c.Conversations},
		{"SELECT COUNT(*) FROM messages", &c.Messages},
	}
	for _, r := range rows {
		if err := s.db.QueryRowContext(ctx, r.query).Scan(r.dest); err != nil {
			return Counters{}, err
		}
	}
	return c, nil
}

// TruncateAll clears every table, used by a full rebuild. The store
// remains ground truth across the truncate/rebuild cycle — only the
// derived FTS and vector indices are ever silently discarded outside of
// this explicit operation.
func (s *Store) TruncateAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"snippets", "messages", "conversations", "workspaces", "sources", "agents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO messages_fts(messages_fts) VALUES ('rebuild')"); err != nil {
		return fmt.Errorf("rebuild fts mirror: %w", err)
	}
	return tx.Commit()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}
