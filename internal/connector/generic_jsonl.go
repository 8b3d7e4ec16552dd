package connector

import (
	"encoding/json"
	"iter"

	"github.com/cass-search/cass/internal/model"
)

// GenericJSONL is the fallback connector for any JSONL stream matching a
// configurable {role, content, timestamp} field mapping. It always reports
// a low detect() confidence so a concrete connector wins when both match,
// per the connector framework's roster-ordering rule.
type GenericJSONL struct {
	RoleField      string
	ContentField   string
	TimestampField string
}

// NewGenericJSONL returns the fallback connector with the documented
// default field mapping ({role, content, timestamp}). Other field names
// require constructing a GenericJSONL directly; sources.toml has no keys
// for them.
func NewGenericJSONL() *GenericJSONL {
	return &GenericJSONL{RoleField: "role", ContentField: "content", TimestampField: "timestamp"}
}

func (g *GenericJSONL) Slug() string { return "generic_jsonl" }

func (g *GenericJSONL) Detect() (Detection, error) {
	// Never claims roots on its own; the orchestrator hands it scan roots
	// explicitly (e.g. from sources.toml) when no concrete connector fits.
	return Detection{Present: false, Confidence: 0.1}, nil
}

func (g *GenericJSONL) Scan(sc ScanContext, warn func(Warning)) iter.Seq[ScannedConversation] {
	return scanSimpleJSONLFamily(g.Slug(), sc, warn, func(line []byte) (model.Message, string, bool) {
		var rec map[string]json.RawMessage
		if err := json.Unmarshal(line, &rec); err != nil {
			return model.Message{}, "", false
		}
		content := rawString(rec[g.ContentField])
		if content == "" {
			return model.Message{}, "", false
		}
		role := NormalizeRole(rawString(rec[g.RoleField]))
		ts, _ := model.ParseTimestampField(rawString(rec[g.TimestampField]))
		return model.Message{
			Role:        role,
			Content:     content,
			CreatedAt:   ts,
			ContentHash: model.ContentHash(role, content, ts),
		}, "", true
	})
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
