package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cass-search/cass/internal/fts"
)

func openTestIndex(t *testing.T) *fts.Index {
	t.Helper()
	idx, err := fts.Open(filepath.Join(t.TempDir(), "fts"))
	if err != nil {
		t.Fatalf("fts.Open() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func mustIndex(t *testing.T, idx *fts.Index, docs []fts.Document) {
	t.Helper()
	if err := idx.IndexBatch(context.Background(), docs); err != nil {
		t.Fatalf("IndexBatch() error = %v", err)
	}
}

func TestPlannerSearchAndRequiresBothTerms(t *testing.T) {
	idx := openTestIndex(t)
	mustIndex(t, idx, []fts.Document{
		{SourcePath: "/a", MsgIdx: 0, Content: "apples and oranges", CreatedAt: 1},
		{SourcePath: "/b", MsgIdx: 0, Content: "just apples", CreatedAt: 2},
		{SourcePath: "/c", MsgIdx: 0, Content: "just oranges", CreatedAt: 3},
	})

	p := &Planner{Index: idx}
	result, err := p.Search(context.Background(), "apples oranges", fts.Filters{}, ModeRelevance, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Hits) != 1 || result.Hits[0].SourcePath != "/a" {
		t.Errorf("AND search hits = %+v, want only /a", result.Hits)
	}
}

func TestPlannerSearchOrUnionsTerms(t *testing.T) {
	idx := openTestIndex(t)
	mustIndex(t, idx, []fts.Document{
		{SourcePath: "/a", MsgIdx: 0, Content: "just apples", CreatedAt: 1},
		{SourcePath: "/b", MsgIdx: 0, Content: "just oranges", CreatedAt: 2},
		{SourcePath: "/c", MsgIdx: 0, Content: "neither fruit", CreatedAt: 3},
	})

	p := &Planner{Index: idx}
	result, err := p.Search(context.Background(), "apples OR oranges", fts.Filters{}, ModeRelevance, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Hits) != 2 {
		t.Fatalf("OR search hits = %+v, want 2", result.Hits)
	}
}

func TestPlannerSearchNotExcludesTerm(t *testing.T) {
	idx := openTestIndex(t)
	mustIndex(t, idx, []fts.Document{
		{SourcePath: "/a", MsgIdx: 0, Content: "apples and oranges", CreatedAt: 1},
		{SourcePath: "/b", MsgIdx: 0, Content: "just apples", CreatedAt: 2},
	})

	p := &Planner{Index: idx}
	result, err := p.Search(context.Background(), "apples -oranges", fts.Filters{}, ModeRelevance, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Hits) != 1 || result.Hits[0].SourcePath != "/b" {
		t.Errorf("NOT search hits = %+v, want only /b", result.Hits)
	}
}

func TestPlannerSearchFallsBackToSubstringBelowMinHitThreshold(t *testing.T) {
	idx := openTestIndex(t)
	// A single plain-term hit is below minHitThreshold (3), so a query for
	// a substring that only fts5's LIKE-based fallback can find should
	// still surface, with WildcardFallback set.
	mustIndex(t, idx, []fts.Document{
		{SourcePath: "/a", MsgIdx: 0, Content: "unbelievable result", CreatedAt: 1},
	})

	p := &Planner{Index: idx}
	result, err := p.Search(context.Background(), "believ", fts.Filters{}, ModeRelevance, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !result.WildcardFallback {
		t.Error("expected WildcardFallback to be set once hits fell below minHitThreshold")
	}
	if len(result.Hits) != 1 || result.Hits[0].SourcePath != "/a" {
		t.Errorf("fallback hits = %+v, want the one substring match", result.Hits)
	}
}

func TestPlannerSearchPopulatesAndReusesCache(t *testing.T) {
	idx := openTestIndex(t)
	mustIndex(t, idx, []fts.Document{
		{SourcePath: "/a", MsgIdx: 0, Content: "hello world", CreatedAt: 1},
	})

	cache, err := New(4, 4, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p := &Planner{Index: idx, Cache: cache}

	first, err := p.Search(context.Background(), "hello", fts.Filters{}, ModeRelevance, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if cache.Stats().Misses != 1 {
		t.Fatalf("Stats().Misses = %d, want 1 after the first search", cache.Stats().Misses)
	}

	// Delete the underlying document so a genuine re-execution would find
	// nothing; a served-from-cache second call must still return the
	// original hit.
	if err := idx.DeleteBySourcePath(context.Background(), "/a"); err != nil {
		t.Fatalf("DeleteBySourcePath() error = %v", err)
	}

	second, err := p.Search(context.Background(), "hello", fts.Filters{}, ModeRelevance, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if cache.Stats().Hits != 1 {
		t.Errorf("Stats().Hits = %d, want 1 on the second, cached search", cache.Stats().Hits)
	}
	if len(second.Hits) != len(first.Hits) {
		t.Errorf("cached Search() hits = %+v, want the same as the first call %+v", second.Hits, first.Hits)
	}
}

func TestPlannerSearchDistinctQueriesMissIndependently(t *testing.T) {
	idx := openTestIndex(t)
	mustIndex(t, idx, []fts.Document{
		{SourcePath: "/a", MsgIdx: 0, Content: "hello world", CreatedAt: 1},
	})

	cache, err := New(4, 4, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p := &Planner{Index: idx, Cache: cache}

	if _, err := p.Search(context.Background(), "hello", fts.Filters{}, ModeRelevance, 10); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	// A different query string never hits the same cache key, so this must
	// execute fresh rather than reuse the unrelated "hello" entry.
	if _, err := p.Search(context.Background(), "world", fts.Filters{}, ModeRelevance, 10); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	stats := cache.Stats()
	if stats.Misses != 2 {
		t.Errorf("Stats().Misses = %d, want 2 for two distinct queries", stats.Misses)
	}
}
