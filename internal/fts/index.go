package fts

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

const previewChars = 200

// reloadDebounce is the minimum interval between reader reloads, so a
// burst of commits triggers at most one reload.
const reloadDebounce = 300 * time.Millisecond

// Document is one indexable unit: a single message plus its conversation's
// constant fields, matching the schema of §4.D.
type Document struct {
	Agent       string
	Workspace   string
	SourceID    string
	OriginKind  string
	OriginHost  string
	SourcePath  string
	MsgIdx      int
	CreatedAt   int64
	Title       string
	Content     string
	ContentHash string
}

// Index owns the fts5-backed database, tracks the last reload time, and
// caches the edge-n-grams of conversation-constant fields (title) so they
// are computed once per document rather than once per message.
type Index struct {
	db         *sql.DB
	dir        string
	generation int64

	mu           sync.Mutex
	lastReload   time.Time
	titleGramsMu sync.Mutex
	titleGrams   map[string][]string // title text -> cached edge n-grams
}

// Open opens or creates the fts index rooted at dir, discarding a
// stale-schema directory first.
func Open(dir string) (*Index, error) {
	db, generation, err := openIndexDB(dir)
	if err != nil {
		return nil, err
	}
	return &Index{db: db, dir: dir, generation: generation, titleGrams: make(map[string][]string)}, nil
}

// Generation identifies the current index directory's creation instant.
// It changes only when the directory is discarded and rebuilt, letting
// pagination cursors detect a rebuild that invalidates them.
func (ix *Index) Generation() int64 { return ix.generation }

func (ix *Index) Close() error { return ix.db.Close() }

// IndexBatch writes a set of documents inside one transaction, then
// requests a debounced reload.
func (ix *Index) IndexBatch(ctx context.Context, docs []Document) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents
			(agent, workspace, source_id, origin_kind, origin_host, source_path, msg_idx,
			 created_at, title, content, title_prefix, content_prefix, preview, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		titlePrefix := ix.cachedTitleGrams(d.Title)
		contentPrefix := EdgeNGrams(d.Content)

		_, err := stmt.ExecContext(ctx, d.Agent, d.Workspace, d.SourceID, d.OriginKind, d.OriginHost,
			d.SourcePath, d.MsgIdx, d.CreatedAt, d.Title, d.Content,
			joinTokens(titlePrefix), joinTokens(contentPrefix), Preview(d.Content, previewChars), d.ContentHash)
		if err != nil {
			return fmt.Errorf("index document %s#%d: %w", d.SourcePath, d.MsgIdx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	ix.requestReload()
	return nil
}

func (ix *Index) cachedTitleGrams(title string) []string {
	ix.titleGramsMu.Lock()
	defer ix.titleGramsMu.Unlock()
	if grams, ok := ix.titleGrams[title]; ok {
		return grams
	}
	grams := EdgeNGrams(title)
	ix.titleGrams[title] = grams
	return grams
}

func joinTokens(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}

// requestReload records the time of the latest commit, debounced so a burst
// of IndexBatch calls only updates it once. fts5 has no separate reader
// handle to swap, so recording the timestamp is all a reload does; the
// query result cache is not invalidated here.
func (ix *Index) requestReload() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if time.Since(ix.lastReload) < reloadDebounce {
		return
	}
	ix.lastReload = time.Now()
}

// LastReload reports when the index last recorded a commit-triggered
// reload.
func (ix *Index) LastReload() time.Time {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.lastReload
}

// DeleteBySourcePath removes every document for a source path, used when a
// conversation file is re-scanned from scratch (watch mode) or a source is
// dropped.
func (ix *Index) DeleteBySourcePath(ctx context.Context, sourcePath string) error {
	_, err := ix.db.ExecContext(ctx, `DELETE FROM documents WHERE source_path = ?`, sourcePath)
	if err != nil {
		return err
	}
	ix.requestReload()
	return nil
}

// Count returns the number of indexed documents, used by health/doctor.
func (ix *Index) Count(ctx context.Context) (int64, error) {
	var n int64
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// DB exposes the underlying handle to the query planner.
func (ix *Index) DB() *sql.DB { return ix.db }
