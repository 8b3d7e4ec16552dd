package fts

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Hit is one raw lexical match, annotated with the field-level bm25 score
// fts5 reports; the query planner folds this into its ranking blend.
type Hit struct {
	Agent       string
	Workspace   string
	SourceID    string
	OriginKind  string
	OriginHost  string
	SourcePath  string
	MsgIdx      int
	CreatedAt   int64
	Title       string
	Preview     string
	ContentHash string
	BM25        float64 // fts5 rank is negative; callers see the sign-flipped magnitude
}

// Filters narrows a Query to keyword-field equality (each field accepting
// zero, one, or many values, ORed together) and a time range; the CLI's
// repeatable --agent/--workspace/--source flags are translated into this
// shape.
type Filters struct {
	Agent     []string
	Workspace []string
	SourceID  []string
	Since     int64
	Until     int64
}

// CacheKey serializes the filter set into a deterministic string, order-
// independent within each field, for use as part of a query cache key.
func (f Filters) CacheKey() string {
	var b strings.Builder
	writeSortedJoined(&b, f.Agent)
	b.WriteByte(0)
	writeSortedJoined(&b, f.Workspace)
	b.WriteByte(0)
	writeSortedJoined(&b, f.SourceID)
	b.WriteByte(0)
	fmt.Fprintf(&b, "%d\x00%d", f.Since, f.Until)
	return b.String()
}

func writeSortedJoined(b *strings.Builder, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	b.WriteString(strings.Join(sorted, ","))
}

func (f Filters) whereClause(args *[]interface{}) string {
	var clauses []string
	if c := inClause("agent", f.Agent, args); c != "" {
		clauses = append(clauses, c)
	}
	if c := inClause("workspace", f.Workspace, args); c != "" {
		clauses = append(clauses, c)
	}
	if c := inClause("source_id", f.SourceID, args); c != "" {
		clauses = append(clauses, c)
	}
	if f.Since > 0 {
		clauses = append(clauses, "created_at >= ?")
		*args = append(*args, f.Since)
	}
	if f.Until > 0 {
		clauses = append(clauses, "created_at <= ?")
		*args = append(*args, f.Until)
	}
	if len(clauses) == 0 {
		return ""
	}
	return " AND " + strings.Join(clauses, " AND ")
}

func inClause(column string, values []string, args *[]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	if len(values) == 1 {
		*args = append(*args, values[0])
		return column + " = ?"
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, v)
	}
	return column + " IN (" + strings.Join(placeholders, ",") + ")"
}

// SearchTerm runs a bare-term or phrase BM25 query against the content
// column. Phrase detection is the caller's job: pass a quoted fts5 MATCH
// expression (e.g. `"exact phrase"`) to search positionally.
func (ix *Index) SearchTerm(ctx context.Context, matchExpr string, filters Filters, limit int) ([]Hit, error) {
	return ix.runMatch(ctx, "content", matchExpr, filters, limit)
}

// SearchTitle runs the same MATCH expression against the title column,
// used by callers that want title-scoped relevance.
func (ix *Index) SearchTitle(ctx context.Context, matchExpr string, filters Filters, limit int) ([]Hit, error) {
	return ix.runMatch(ctx, "title", matchExpr, filters, limit)
}

func (ix *Index) runMatch(ctx context.Context, column, matchExpr string, filters Filters, limit int) ([]Hit, error) {
	args := []interface{}{column + " : " + matchExpr}
	query := `
		SELECT agent, workspace, source_id, origin_kind, origin_host, source_path, msg_idx,
		       created_at, title, preview, content_hash, bm25(documents)
		FROM documents WHERE documents MATCH ?`
	query += filters.whereClause(&args)
	query += " ORDER BY bm25(documents) LIMIT ?"
	args = append(args, limit)

	return ix.scanHits(ctx, query, args)
}

// SearchPrefix looks up a prefix query via the edge-n-gram column, giving
// O(1) prefix matching without a wildcard scan.
func (ix *Index) SearchPrefix(ctx context.Context, prefix string, filters Filters, limit int) ([]Hit, error) {
	token := strings.ToLower(prefix)
	args := []interface{}{"content_prefix : " + quoteFTS(token)}
	query := `
		SELECT agent, workspace, source_id, origin_kind, origin_host, source_path, msg_idx,
		       created_at, title, preview, content_hash, bm25(documents)
		FROM documents WHERE documents MATCH ?`
	query += filters.whereClause(&args)
	query += " ORDER BY bm25(documents) LIMIT ?"
	args = append(args, limit)
	return ix.scanHits(ctx, query, args)
}

// SearchSubstring runs a regex-equivalent substring/suffix match directly
// against the stored content via LIKE, since fts5's MATCH has no
// substring/suffix operator. This is the slow path the query planner
// reserves for `*suffix`, `*substring*`, and the auto-fuzzy fallback.
func (ix *Index) SearchSubstring(ctx context.Context, needle string, filters Filters, limit int) ([]Hit, error) {
	args := []interface{}{"%" + strings.ToLower(needle) + "%"}
	query := `
		SELECT agent, workspace, source_id, origin_kind, origin_host, source_path, msg_idx,
		       created_at, title, preview, content_hash, 0.0
		FROM documents WHERE LOWER(content) LIKE ?`
	query += filters.whereClause(&args)
	query += " LIMIT ?"
	args = append(args, limit)
	return ix.scanHits(ctx, query, args)
}

func (ix *Index) scanHits(ctx context.Context, query string, args []interface{}) ([]Hit, error) {
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var rawRank float64
		if err := rows.Scan(&h.Agent, &h.Workspace, &h.SourceID, &h.OriginKind, &h.OriginHost,
			&h.SourcePath, &h.MsgIdx, &h.CreatedAt, &h.Title, &h.Preview, &h.ContentHash, &rawRank); err != nil {
			return nil, err
		}
		h.BM25 = -rawRank // fts5's bm25() returns a lower-is-better negative value
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// quoteFTS wraps a token in double quotes so fts5 treats embedded
// punctuation as a phrase literal rather than operator syntax.
func quoteFTS(token string) string {
	return `"` + strings.ReplaceAll(token, `"`, `""`) + `"`
}

// GetByContentHash resolves a semantic hit's content hash back to its
// document row, used by fusion to attach lexical fields (preview, source
// path, keyword columns) to a vector-index match.
func (ix *Index) GetByContentHash(ctx context.Context, contentHash string) (Hit, bool, error) {
	query := `
		SELECT agent, workspace, source_id, origin_kind, origin_host, source_path, msg_idx,
		       created_at, title, preview, content_hash, 0.0
		FROM documents WHERE content_hash = ? LIMIT 1`
	hits, err := ix.scanHits(ctx, query, []interface{}{contentHash})
	if err != nil {
		return Hit{}, false, err
	}
	if len(hits) == 0 {
		return Hit{}, false, nil
	}
	return hits[0], true, nil
}
