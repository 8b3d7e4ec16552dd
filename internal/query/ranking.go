package query

import "sort"

// MatchType classifies how a hit was matched, feeding the ranking blend's
// match_quality term per §4.G.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchPrefix    MatchType = "prefix"
	MatchSuffix    MatchType = "suffix"
	MatchSubstring MatchType = "substring"
	MatchFuzzy     MatchType = "fuzzy"
	MatchSemantic  MatchType = "semantic"
)

// matchQuality implements the table in §4.G.
func matchQuality(mt MatchType) float64 {
	switch mt {
	case MatchExact:
		return 1.0
	case MatchPrefix:
		return 0.9
	case MatchSuffix:
		return 0.8
	case MatchSubstring:
		return 0.6
	case MatchFuzzy:
		return 0.4
	default:
		return 0.5 // semantic hits are scored by fusion's RRF, not this blend
	}
}

// Mode is one of the six ranking modes fixing alpha and the comparator.
type Mode string

const (
	ModeRecent    Mode = "recent"
	ModeBalanced  Mode = "balanced"
	ModeRelevance Mode = "relevance"
	ModeQuality   Mode = "quality"
	ModeNewest    Mode = "newest"
	ModeOldest    Mode = "oldest"
)

// alpha returns the recency weight for modes that use the blended score;
// ok is false for newest/oldest, which sort by raw timestamp instead.
func alpha(mode Mode) (a float64, ok bool) {
	switch mode {
	case ModeRecent:
		return 1.0, true
	case ModeBalanced:
		return 0.4, true
	case ModeRelevance:
		return 0.1, true
	case ModeQuality:
		return 0.0, true
	default:
		return 0, false
	}
}

// Scored is one candidate hit carrying everything the ranking blend and
// tie-break need.
type Scored struct {
	SourcePath string
	MsgIdx     int
	BM25       float64
	MatchType  MatchType
	CreatedAt  int64
	Final      float64
}

// Blend computes final = bm25 * match_quality + alpha * recency for every
// candidate, where recency = timestamp / max_timestamp across the
// candidate set (0 if the set is empty or all-zero timestamps).
func Blend(candidates []Scored, mode Mode) []Scored {
	var maxTS int64
	for _, c := range candidates {
		if c.CreatedAt > maxTS {
			maxTS = c.CreatedAt
		}
	}
	a, blended := alpha(mode)
	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		if blended {
			recency := 0.0
			if maxTS > 0 {
				recency = float64(c.CreatedAt) / float64(maxTS)
			}
			c.Final = c.BM25*matchQuality(c.MatchType) + a*recency
		}
		out[i] = c
	}
	return out
}

// Sort orders candidates per mode's comparator, with the universal
// ascending (source_path, msg_idx) tie-break.
func Sort(candidates []Scored, mode Mode) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch mode {
		case ModeNewest:
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt > b.CreatedAt
			}
		case ModeOldest:
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
		default:
			if a.Final != b.Final {
				return a.Final > b.Final
			}
		}
		if a.SourcePath != b.SourcePath {
			return a.SourcePath < b.SourcePath
		}
		return a.MsgIdx < b.MsgIdx
	})
}
