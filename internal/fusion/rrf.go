// Package fusion implements result fusion (§4.H): RRF hybrid merge of
// lexical and semantic result lists, dedup, field-lazy projection,
// faceted aggregation, and opaque pagination cursors.
package fusion

import "sort"

// rrfK is the Reciprocal Rank Fusion constant from §4.H.
const rrfK = 60

// ranked is one leg's ordered result list, keyed for merge.
type ranked struct {
	key   string
	score float64 // leg-local score, kept for diagnostics only; RRF uses rank
}

// reciprocalRankFusion computes RRF(d) = sum(1/(K+rank_i(d))) across any
// number of ranked legs, where rank is 1-based position within each leg.
// Keys absent from a leg simply don't contribute that leg's term.
func reciprocalRankFusion(legs [][]string) map[string]float64 {
	scores := make(map[string]float64)
	for _, leg := range legs {
		for i, key := range leg {
			rank := i + 1
			scores[key] += 1.0 / float64(rrfK+rank)
		}
	}
	return scores
}

// sortByRRF orders keys by descending RRF score, falling back to the
// supplied tie-breaker for equal scores.
func sortByRRF(keys []string, scores map[string]float64, less func(a, b string) bool) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return less(a, b)
	})
}
