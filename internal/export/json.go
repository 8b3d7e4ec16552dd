package export

import (
	"encoding/json"
	"io"
)

// jsonDoc is the wire shape JSONExporter renders: a flattened conversation
// envelope with snake_case fields, matching the convention the JSONL and
// YAML exporters also follow rather than dumping the Go struct as-is.
type jsonDoc struct {
	ExternalID string            `json:"external_id" yaml:"external_id"`
	Title      string            `json:"title,omitempty" yaml:"title,omitempty"`
	Agent      string            `json:"agent" yaml:"agent"`
	SourcePath string            `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	Provenance *jsonProvenance   `json:"provenance,omitempty" yaml:"provenance,omitempty"`
	StartedAt  int64             `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	EndedAt    int64             `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Messages   []jsonMessage     `json:"messages" yaml:"messages"`
}

type jsonProvenance struct {
	SourceID   string `json:"source_id" yaml:"source_id"`
	OriginKind string `json:"origin_kind" yaml:"origin_kind"`
	OriginHost string `json:"origin_host,omitempty" yaml:"origin_host,omitempty"`
}

type jsonMessage struct {
	Role      string `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	CreatedAt int64  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
}

// JSONExporter exports a conversation as a single pretty-printed JSON
// document.
type JSONExporter struct{}

func (e *JSONExporter) Export(record Record, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSONDoc(record))
}

func toJSONDoc(record Record) jsonDoc {
	conv := record.Conversation
	doc := jsonDoc{
		ExternalID: conv.ExternalID,
		Title:      conv.Title,
		Agent:      conv.Agent,
		SourcePath: conv.SourcePath,
		StartedAt:  conv.StartedAt,
		EndedAt:    conv.EndedAt,
		Metadata:   conv.Metadata,
		Messages:   make([]jsonMessage, 0, len(record.Messages)),
	}
	if conv.Provenance.SourceID != "" {
		doc.Provenance = &jsonProvenance{
			SourceID:   conv.Provenance.SourceID,
			OriginKind: string(conv.Provenance.OriginKind),
			OriginHost: conv.Provenance.OriginHost,
		}
	}
	for _, msg := range record.Messages {
		doc.Messages = append(doc.Messages, jsonMessage{
			Role:      string(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			Model:     msg.Model,
		})
	}
	return doc
}

func (e *JSONExporter) Extension() string {
	return "json"
}
