package fusion

import (
	"context"
	"testing"

	"github.com/cass-search/cass/internal/fts"
	"github.com/cass-search/cass/internal/query"
	"github.com/cass-search/cass/internal/vector"
)

func openTestIndex(t *testing.T) *fts.Index {
	t.Helper()
	index, err := fts.Open(t.TempDir())
	if err != nil {
		t.Fatalf("fts.Open() error = %v", err)
	}
	t.Cleanup(func() { index.Close() })
	return index
}

func mustIndex(t *testing.T, index *fts.Index, docs []fts.Document) {
	t.Helper()
	if err := index.IndexBatch(context.Background(), docs); err != nil {
		t.Fatalf("IndexBatch() error = %v", err)
	}
}

// vecHashFor builds an arbitrary distinct [32]byte value for use as a test
// fixture's content hash, paired with contentHashHex to get the matching
// fts document's ContentHash string.
func vecHashFor(seed string) [32]byte {
	var h [32]byte
	copy(h[:], seed)
	return h
}

func TestHybridMergesAndDedups(t *testing.T) {
	index := openTestIndex(t)
	hashA, hashB := vecHashFor("hash-a-000000000000000000000000000"), vecHashFor("hash-b-000000000000000000000000000")
	docs := []fts.Document{
		{Agent: "cursor", SourceID: "src1", SourcePath: "a.jsonl", MsgIdx: 0,
			Content: "vector databases are fast", ContentHash: contentHashHex(hashA)},
		{Agent: "cursor", SourceID: "src1", SourcePath: "b.jsonl", MsgIdx: 0,
			Content: "search engines rank documents", ContentHash: contentHashHex(hashB)},
	}
	mustIndex(t, index, docs)

	lexical, err := (&query.Planner{Index: index}).Search(context.Background(), "vector", fts.Filters{}, query.ModeBalanced, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(lexical.Hits) != 1 {
		t.Fatalf("lexical Search() returned %d hits, want 1", len(lexical.Hits))
	}

	semanticRows := []vector.Row{
		{ContentHash: hashB, SourceID: 1, Score: 0.9},
	}

	merged, err := Hybrid(context.Background(), lexical, semanticRows, index)
	if err != nil {
		t.Fatalf("Hybrid() error = %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("Hybrid() returned %d candidates, want 2 (one lexical, one semantic)", len(merged))
	}
}

func TestHybridDedupsSameDocumentFromBothLegs(t *testing.T) {
	index := openTestIndex(t)
	hashA := vecHashFor("hash-a-000000000000000000000000000")
	docs := []fts.Document{
		{Agent: "cursor", SourceID: "src1", SourcePath: "a.jsonl", MsgIdx: 0,
			Content: "vector databases are fast", ContentHash: contentHashHex(hashA)},
	}
	mustIndex(t, index, docs)

	lexical, err := (&query.Planner{Index: index}).Search(context.Background(), "vector", fts.Filters{}, query.ModeBalanced, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	semanticRows := []vector.Row{{ContentHash: hashA, SourceID: 1, Score: 0.5}}

	merged, err := Hybrid(context.Background(), lexical, semanticRows, index)
	if err != nil {
		t.Fatalf("Hybrid() error = %v", err)
	}
	if len(merged) != 1 {
		t.Fatalf("Hybrid() returned %d candidates, want 1 deduped survivor", len(merged))
	}
	if merged[0].Score <= 0 {
		t.Errorf("Hybrid() deduped candidate score = %v, want positive RRF contribution from both legs", merged[0].Score)
	}
}

func TestResolveModeLexicalOnlyIgnoresSemanticRows(t *testing.T) {
	index := openTestIndex(t)
	mustIndex(t, index, []fts.Document{
		{Agent: "cursor", SourceID: "src1", SourcePath: "a.jsonl", MsgIdx: 0,
			Content: "vector databases are fast", ContentHash: "hash-a"},
	})
	lexical, err := (&query.Planner{Index: index}).Search(context.Background(), "vector", fts.Filters{}, query.ModeBalanced, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	candidates, err := Resolve(context.Background(), ModeLexical, lexical, nil, index)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Resolve(ModeLexical) returned %d candidates, want 1", len(candidates))
	}
	if candidates[0].MatchType == string(query.MatchSemantic) {
		t.Errorf("Resolve(ModeLexical) produced a semantic match type")
	}
}
