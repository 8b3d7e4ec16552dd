package output

import (
	"github.com/google/uuid"

	"github.com/cass-search/cass/internal/fusion"
)

// NewRequestID generates a request id for responses that don't have one
// supplied via --request-id.
func NewRequestID() string {
	return uuid.NewString()
}

// FromProjected converts a field-lazy projection into the wire Hit shape,
// omitting fields the projection left zero-valued via Hit's omitempty tags.
func FromProjected(p fusion.Projected) Hit {
	return Hit{
		SourcePath: p.SourcePath,
		LineNumber: p.LineNumber,
		Agent:      p.Agent,
		Workspace:  p.Workspace,
		SourceID:   p.SourceID,
		OriginKind: p.OriginKind,
		OriginHost: p.OriginHost,
		MatchType:  p.MatchType,
		Score:      p.Score,
		Title:      p.Title,
		Preview:    p.Preview,
		Content:    p.Content,
	}
}

// FromAggregations converts fusion's aggregation shape into the wire shape.
func FromAggregations(aggs []fusion.Aggregation) []Aggregation {
	out := make([]Aggregation, len(aggs))
	for i, a := range aggs {
		buckets := make([]Bucket, len(a.Buckets))
		for j, b := range a.Buckets {
			buckets[j] = Bucket{Value: b.Value, Count: b.Count}
		}
		out[i] = Aggregation{Field: a.Field, Buckets: buckets, OtherCount: a.OtherCount}
	}
	return out
}

// BuildResponse assembles the top-level search response from projected
// hits, optional aggregations, and the _meta block.
func BuildResponse(projected []fusion.Projected, aggs []fusion.Aggregation, meta Meta) Response {
	hits := make([]Hit, len(projected))
	for i, p := range projected {
		hits[i] = FromProjected(p)
	}
	return Response{
		Hits:         hits,
		Aggregations: FromAggregations(aggs),
		Meta:         meta,
	}
}

// ErrorResponse builds a response carrying only an error and its _meta.
func ErrorResponse(err *Error, meta Meta) Response {
	envelope := err.ToEnvelope()
	return Response{Meta: meta, Error: &envelope}
}
