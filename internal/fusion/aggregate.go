package fusion

import (
	"sort"
	"time"
)

// FacetField names one of the four aggregatable facets from §4.H.
const (
	FacetAgent     = "agent"
	FacetWorkspace = "workspace"
	FacetDate      = "date"
	FacetMatchType = "match_type"
)

// Bucket is one facet value's count.
type Bucket struct {
	Value string
	Count int64
}

// Aggregation is one field's top-10 buckets plus the count of everything
// outside them.
type Aggregation struct {
	Field      string
	Buckets    []Bucket
	OtherCount int64
}

// Aggregate computes top-10 buckets per requested facet field over the
// full (pre-pagination) candidate set, per §4.H.
func Aggregate(candidates []Candidate, fields []string) []Aggregation {
	out := make([]Aggregation, 0, len(fields))
	for _, field := range fields {
		counts := make(map[string]int64)
		for _, c := range candidates {
			v := facetValue(c, field)
			if v == "" {
				continue
			}
			counts[v]++
		}
		out = append(out, bucketize(field, counts))
	}
	return out
}

func facetValue(c Candidate, field string) string {
	switch field {
	case FacetAgent:
		return c.Agent
	case FacetWorkspace:
		return c.Workspace
	case FacetDate:
		if c.CreatedAt == 0 {
			return ""
		}
		return time.UnixMilli(c.CreatedAt).UTC().Format("2006-01-02")
	case FacetMatchType:
		return c.MatchType
	default:
		return ""
	}
}

func bucketize(field string, counts map[string]int64) Aggregation {
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.SliceStable(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})

	agg := Aggregation{Field: field}
	for i, v := range values {
		if i < 10 {
			agg.Buckets = append(agg.Buckets, Bucket{Value: v, Count: counts[v]})
		} else {
			agg.OtherCount += counts[v]
		}
	}
	return agg
}
