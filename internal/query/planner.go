package query

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cass-search/cass/internal/fts"
)

// minHitThreshold is the auto-fuzzy fallback trigger per §4.G.
const minHitThreshold = 3

// Planner executes search(query_string, filters, ranking, ...) against
// the FTS index, routing by AST shape and applying the ranking blend.
type Planner struct {
	Index *fts.Index
	Cache *Cache
}

// Result is one planner execution's output, prior to fusion/projection.
type Result struct {
	Hits             []Scored
	Docs             map[string]fts.Hit // keyed by source_path|msg_idx for projection
	WildcardFallback bool
}

// DocKey canonicalizes a (source_path, msg_idx) pair into a map key, shared
// with the fusion package so both sides key identically.
func DocKey(sourcePath string, msgIdx int) string {
	return sourcePath + "\x00" + strconv.Itoa(msgIdx)
}

// Search executes the AST against the FTS index, applying wildcard/phrase
// routing, the ranking blend, and the auto-fuzzy fallback. A populated
// Cache is consulted before execution and populated after, keyed on the
// (query, filters, ranking) tuple per §4.G; the bloom mask built from the
// query's own tokens guards against returning a cached entry that was
// computed for a narrower query.
func (p *Planner) Search(ctx context.Context, queryString string, filters fts.Filters, mode Mode, limit int) (*Result, error) {
	ast := Parse(queryString)
	tokens := collectTokens(ast)

	var cacheKey string
	if p.Cache != nil {
		cacheKey = Key(queryString, filters.CacheKey(), mode)
		if entry, ok := p.Cache.Get(cacheKey, tokens); ok {
			return &Result{Hits: entry.Hits, Docs: entry.Docs}, nil
		}
	}

	result, err := p.execute(ctx, ast, filters, limit)
	if err != nil {
		return nil, err
	}

	if len(result.Hits) < minHitThreshold && isPlainTermQuery(ast) {
		fallback, err := p.Index.SearchSubstring(ctx, ast.Text, filters, limit)
		if err == nil {
			result = mergeSubstringFallback(result, fallback)
			result.WildcardFallback = true
		}
	}

	blended := Blend(result.Hits, mode)
	Sort(blended, mode)
	result.Hits = blended

	if p.Cache != nil {
		p.Cache.Put(cacheKey, &Entry{
			Hits: result.Hits,
			Docs: result.Docs,
			Mask: BuildMask(tokens),
			Size: entrySize(result),
		})
	}
	return result, nil
}

// collectTokens flattens every leaf term/phrase/wildcard text in the AST,
// used both to extend-check a cache hit and to build the stored entry's
// bloom mask.
func collectTokens(n *Node) []string {
	if n == nil {
		return nil
	}
	if len(n.Children) == 0 {
		if n.Text == "" {
			return nil
		}
		return []string{n.Text}
	}
	var tokens []string
	for _, c := range n.Children {
		tokens = append(tokens, collectTokens(c)...)
	}
	return tokens
}

// entrySize approximates an entry's footprint for the cache's byte
// ceiling: each hit's fixed fields plus its indexed fts.Hit's text fields.
func entrySize(result *Result) int {
	size := len(result.Hits) * 64
	for _, doc := range result.Docs {
		size += len(doc.Title) + len(doc.Preview) + len(doc.SourcePath)
	}
	return size
}

func isPlainTermQuery(n *Node) bool {
	return n.Kind == NodeTerm
}

func mergeSubstringFallback(result *Result, fallback []fts.Hit) *Result {
	for _, h := range fallback {
		key := DocKey(h.SourcePath, h.MsgIdx)
		if _, exists := result.Docs[key]; exists {
			continue
		}
		result.Docs[key] = h
		result.Hits = append(result.Hits, Scored{
			SourcePath: h.SourcePath,
			MsgIdx:     h.MsgIdx,
			BM25:       h.BM25,
			MatchType:  MatchSubstring,
			CreatedAt:  h.CreatedAt,
		})
	}
	return result
}

// execute routes a single AST node (or its AND/OR/NOT composition) to the
// matching fts primitive, per §4.G's execution routing rules.
func (p *Planner) execute(ctx context.Context, n *Node, filters fts.Filters, limit int) (*Result, error) {
	switch n.Kind {
	case NodeTerm:
		hits, err := p.Index.SearchTerm(ctx, quoteTerm(n.Text), filters, limit)
		return toResult(hits, MatchExact), err
	case NodePhrase:
		hits, err := p.Index.SearchTerm(ctx, `"`+n.Text+`"`, filters, limit)
		return toResult(hits, MatchExact), err
	case NodePrefixWildcard:
		hits, err := p.Index.SearchPrefix(ctx, n.Text, filters, limit)
		return toResult(hits, MatchPrefix), err
	case NodeSuffixWildcard:
		hits, err := p.Index.SearchSubstring(ctx, n.Text, filters, limit)
		return toResult(hits, MatchSuffix), err
	case NodeSubstring:
		hits, err := p.Index.SearchSubstring(ctx, n.Text, filters, limit)
		return toResult(hits, MatchSubstring), err
	case NodeNot:
		// NOT has no standalone result set; callers combining NOT into an
		// AND group exclude its matches from the sibling results below.
		return p.execute(ctx, n.Children[0], filters, limit)
	case NodeAnd:
		return p.executeAnd(ctx, n, filters, limit)
	case NodeOr:
		return p.executeOr(ctx, n, filters, limit)
	default:
		return &Result{Docs: make(map[string]fts.Hit)}, nil
	}
}

func (p *Planner) executeAnd(ctx context.Context, n *Node, filters fts.Filters, limit int) (*Result, error) {
	var positive, negative []*Result
	for _, child := range n.Children {
		r, err := p.execute(ctx, child, filters, limit)
		if err != nil {
			return nil, err
		}
		if child.Kind == NodeNot {
			negative = append(negative, r)
		} else {
			positive = append(positive, r)
		}
	}
	if len(positive) == 0 {
		return &Result{Docs: make(map[string]fts.Hit)}, nil
	}
	merged := intersect(positive)
	for _, neg := range negative {
		merged = subtract(merged, neg)
	}
	return merged, nil
}

func (p *Planner) executeOr(ctx context.Context, n *Node, filters fts.Filters, limit int) (*Result, error) {
	var results []*Result
	for _, child := range n.Children {
		r, err := p.execute(ctx, child, filters, limit)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return union(results), nil
}

func toResult(hits []fts.Hit, mt MatchType) *Result {
	r := &Result{Docs: make(map[string]fts.Hit, len(hits))}
	for _, h := range hits {
		key := DocKey(h.SourcePath, h.MsgIdx)
		r.Docs[key] = h
		r.Hits = append(r.Hits, Scored{
			SourcePath: h.SourcePath,
			MsgIdx:     h.MsgIdx,
			BM25:       h.BM25,
			MatchType:  mt,
			CreatedAt:  h.CreatedAt,
		})
	}
	return r
}

func intersect(results []*Result) *Result {
	out := &Result{Docs: make(map[string]fts.Hit)}
	if len(results) == 0 {
		return out
	}
	base := results[0]
	for key, doc := range base.Docs {
		inAll := true
		for _, other := range results[1:] {
			if _, ok := other.Docs[key]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out.Docs[key] = doc
		}
	}
	for _, s := range base.Hits {
		if _, ok := out.Docs[DocKey(s.SourcePath, s.MsgIdx)]; ok {
			out.Hits = append(out.Hits, s)
		}
	}
	return out
}

func subtract(base, remove *Result) *Result {
	out := &Result{Docs: make(map[string]fts.Hit)}
	for key, doc := range base.Docs {
		if _, excluded := remove.Docs[key]; !excluded {
			out.Docs[key] = doc
		}
	}
	for _, s := range base.Hits {
		if _, ok := out.Docs[DocKey(s.SourcePath, s.MsgIdx)]; ok {
			out.Hits = append(out.Hits, s)
		}
	}
	return out
}

func union(results []*Result) *Result {
	out := &Result{Docs: make(map[string]fts.Hit)}
	seen := make(map[string]bool)
	for _, r := range results {
		for _, s := range r.Hits {
			key := DocKey(s.SourcePath, s.MsgIdx)
			if seen[key] {
				continue
			}
			seen[key] = true
			out.Docs[key] = r.Docs[key]
			out.Hits = append(out.Hits, s)
		}
	}
	return out
}

// quoteTerm wraps a bare term in double quotes so fts5 treats embedded
// punctuation as a phrase literal rather than MATCH operator syntax.
func quoteTerm(text string) string {
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

// WarmWorker runs a single-document query after an idle debounce to keep
// the OS page cache warm, per §4.G. The debounce timer mirrors the
// orchestrator's watch debounce: each Touch resets a single AfterFunc.
type WarmWorker struct {
	Index    *fts.Index
	Debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// Touch should be called by the query entrypoint on every request,
// scheduling a warm probe after Debounce (default 120ms) of idleness.
func (w *WarmWorker) Touch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 120 * time.Millisecond
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, w.warm)
}

func (w *WarmWorker) warm() {
	if w.Index == nil {
		return
	}
	w.Index.SearchTerm(context.Background(), `"a"`, fts.Filters{}, 1)
}
