package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cass-search/cass/internal/model"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{
			name: "basic conversation",
			record: Record{
				Conversation: model.Conversation{ExternalID: "test1", Agent: "claude_code"},
				Messages: []model.Message{
					{Role: model.RoleUser, Content: "Hello, how are you?"},
					{Role: model.RoleAssistant, Content: "Doing well."},
				},
			},
			wantErr: false,
		},
		{
			name: "empty conversation",
			record: Record{
				Conversation: model.Conversation{ExternalID: "test2"},
			},
			wantErr: false,
		},
		{
			name: "conversation with all fields",
			record: Record{
				Conversation: model.Conversation{
					ExternalID: "test3",
					Agent:      "codex",
					SourcePath: "workspace1/session.jsonl",
					Provenance: model.Provenance{SourceID: "host1:codex", OriginKind: model.OriginLocal},
				},
				Messages: []model.Message{
					{Role: model.RoleUser, Content: "Hello", CreatedAt: 1672531200000},
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &YAMLExporter{}

			err := exporter.Export(tt.record, &buf)
			if (err != nil) != tt.wantErr {
				t.Errorf("YAMLExporter.Export() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				output := buf.String()
				var decoded jsonDoc
				if err := yaml.Unmarshal([]byte(output), &decoded); err != nil {
					t.Errorf("Output is not valid YAML: %v\nOutput: %s", err, output)
					return
				}

				if decoded.ExternalID != tt.record.Conversation.ExternalID {
					t.Errorf("decoded.ExternalID = %q, want %q", decoded.ExternalID, tt.record.Conversation.ExternalID)
				}
				if tt.record.Conversation.Provenance.SourceID != "" {
					if decoded.Provenance == nil || decoded.Provenance.SourceID != tt.record.Conversation.Provenance.SourceID {
						t.Errorf("decoded.Provenance = %+v, want source_id %q", decoded.Provenance, tt.record.Conversation.Provenance.SourceID)
					}
				}

				if !strings.Contains(output, "external_id") {
					t.Errorf("Output should contain external_id key")
				}
			}
		})
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	exporter := &YAMLExporter{}
	if got := exporter.Extension(); got != "yaml" {
		t.Errorf("YAMLExporter.Extension() = %v, want yaml", got)
	}
}
