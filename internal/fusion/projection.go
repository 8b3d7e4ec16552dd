package fusion

import "strings"

// Preset names the three named output_fields shapes from §6/§4.H.
const (
	PresetMinimal = "minimal"
	PresetSummary = "summary"
	PresetFull    = "full"
)

// fieldSet is the resolved set of fields a projection materializes.
type fieldSet map[string]bool

var minimalFields = fieldSet{"source_path": true, "agent": true, "match_type": true, "score": true}

var summaryFields = fieldSet{
	"source_path": true, "line_number": true, "agent": true, "workspace": true,
	"source_id": true, "origin_kind": true, "match_type": true, "score": true,
	"title": true, "preview": true,
}

var fullFields = fieldSet{
	"source_path": true, "line_number": true, "agent": true, "workspace": true,
	"source_id": true, "origin_kind": true, "origin_host": true, "match_type": true,
	"score": true, "title": true, "preview": true, "content": true,
}

// ResolveFields maps an output_fields spec (a preset name or a
// comma-separated explicit list) to a fieldSet. An unrecognized preset
// name is treated as a single-field explicit list.
func ResolveFields(spec string) fieldSet {
	switch spec {
	case "", PresetSummary:
		return summaryFields
	case PresetMinimal:
		return minimalFields
	case PresetFull:
		return fullFields
	}
	fields := make(fieldSet)
	for _, f := range strings.Split(spec, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			fields[f] = true
		}
	}
	return fields
}

// Projected is a field-lazy view of a Candidate: only the requested
// fields are populated, and Content is fetched from the durable store
// (not the fts preview) only when the "content" field is requested,
// since the fts document stores a truncated preview, not full content.
type Projected struct {
	SourcePath string
	LineNumber int
	Agent      string
	Workspace  string
	SourceID   string
	OriginKind string
	OriginHost string
	MatchType  string
	Score      float64
	Title      string
	Preview    string
	Content    string
}

// ContentFetcher resolves the full message content for a candidate,
// called only when "content" is in the requested field set — projection
// must not fetch stored-document content for fields nobody asked for.
type ContentFetcher func(sourcePath string, msgIdx int) (string, error)

// Project materializes only the requested fields of each candidate, in
// the same order, never changing relative ordering.
func Project(candidates []Candidate, fields fieldSet, fetchContent ContentFetcher) ([]Projected, error) {
	out := make([]Projected, len(candidates))
	for i, c := range candidates {
		p := Projected{}
		if fields["source_path"] {
			p.SourcePath = c.SourcePath
		}
		if fields["line_number"] {
			p.LineNumber = c.MsgIdx
		}
		if fields["agent"] {
			p.Agent = c.Agent
		}
		if fields["workspace"] {
			p.Workspace = c.Workspace
		}
		if fields["source_id"] {
			p.SourceID = c.SourceID
		}
		if fields["origin_kind"] {
			p.OriginKind = c.OriginKind
		}
		if fields["origin_host"] {
			p.OriginHost = c.OriginHost
		}
		if fields["match_type"] {
			p.MatchType = c.MatchType
		}
		if fields["score"] {
			p.Score = c.Score
		}
		if fields["title"] {
			p.Title = c.Title
		}
		if fields["preview"] {
			p.Preview = c.Preview
		}
		if fields["content"] && fetchContent != nil {
			content, err := fetchContent(c.SourcePath, c.MsgIdx)
			if err != nil {
				return nil, err
			}
			p.Content = content
		}
		out[i] = p
	}
	return out, nil
}
