package fusion

import (
	"context"
	"encoding/hex"

	"github.com/cass-search/cass/internal/fts"
	"github.com/cass-search/cass/internal/query"
	"github.com/cass-search/cass/internal/vector"
)

// Candidate is one fused result, carrying every field a projection might
// need plus the score it was ranked by.
type Candidate struct {
	SourcePath  string
	MsgIdx      int
	Agent       string
	Workspace   string
	SourceID    string
	OriginKind  string
	OriginHost  string
	CreatedAt   int64
	Title       string
	Preview     string
	Content     string
	ContentHash string
	MatchType   string
	Score       float64
}

func dedupKey(contentHash, sourceID string) string {
	return contentHash + "\x00" + sourceID
}

func contentHashHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// fromLexical builds Candidates from the query planner's blended hits,
// resolving each back to its fts.Hit for field data.
func fromLexical(hits []query.Scored, docs map[string]fts.Hit) []Candidate {
	out := make([]Candidate, 0, len(hits))
	for _, s := range hits {
		h, ok := docs[query.DocKey(s.SourcePath, s.MsgIdx)]
		if !ok {
			continue
		}
		mt := string(s.MatchType)
		out = append(out, Candidate{
			SourcePath:  h.SourcePath,
			MsgIdx:      h.MsgIdx,
			Agent:       h.Agent,
			Workspace:   h.Workspace,
			SourceID:    h.SourceID,
			OriginKind:  h.OriginKind,
			OriginHost:  h.OriginHost,
			CreatedAt:   h.CreatedAt,
			Title:       h.Title,
			Preview:     h.Preview,
			ContentHash: h.ContentHash,
			MatchType:   mt,
			Score:       s.Final,
		})
	}
	return out
}

// fromSemantic resolves each vector.Row back to its document via
// content-hash lookup, since the vector index carries no field data of
// its own beyond the row table.
func fromSemantic(ctx context.Context, rows []vector.Row, index *fts.Index) ([]Candidate, error) {
	out := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		hash := contentHashHex(r.ContentHash)
		h, ok, err := index.GetByContentHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, Candidate{
			SourcePath:  h.SourcePath,
			MsgIdx:      h.MsgIdx,
			Agent:       h.Agent,
			Workspace:   h.Workspace,
			SourceID:    h.SourceID,
			OriginKind:  h.OriginKind,
			OriginHost:  h.OriginHost,
			CreatedAt:   h.CreatedAt,
			Title:       h.Title,
			Preview:     h.Preview,
			ContentHash: h.ContentHash,
			MatchType:   string(query.MatchSemantic),
			Score:       r.Score,
		})
	}
	return out, nil
}

// Hybrid merges a lexical leg and a semantic leg by Reciprocal Rank
// Fusion, dedups by (content_hash, source_id) keeping the top-ranked
// survivor, and sorts by RRF score descending with the universal
// (source_path, msg_idx) tie-break.
func Hybrid(ctx context.Context, lexical *query.Result, semanticRows []vector.Row, index *fts.Index) ([]Candidate, error) {
	lexCandidates := fromLexical(lexical.Hits, lexical.Docs)
	semCandidates, err := fromSemantic(ctx, semanticRows, index)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]Candidate)
	var lexKeys, semKeys []string
	for _, c := range lexCandidates {
		k := dedupKey(c.ContentHash, c.SourceID)
		lexKeys = append(lexKeys, k)
		if _, exists := byKey[k]; !exists {
			byKey[k] = c
		}
	}
	for _, c := range semCandidates {
		k := dedupKey(c.ContentHash, c.SourceID)
		semKeys = append(semKeys, k)
		if _, exists := byKey[k]; !exists {
			byKey[k] = c
		}
		// else: lexical survivor already has this key's field data; RRF
		// below still credits both legs' ranks via scores[k].
	}

	scores := reciprocalRankFusion([][]string{lexKeys, semKeys})

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sortByRRF(keys, scores, func(a, b string) bool {
		ca, cb := byKey[a], byKey[b]
		if ca.SourcePath != cb.SourcePath {
			return ca.SourcePath < cb.SourcePath
		}
		return ca.MsgIdx < cb.MsgIdx
	})

	out := make([]Candidate, len(keys))
	for i, k := range keys {
		c := byKey[k]
		c.Score = scores[k]
		out[i] = c
	}
	return out, nil
}
