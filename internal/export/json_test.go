package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cass-search/cass/internal/model"
)

func TestJSONExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{
			name: "basic conversation",
			record: Record{
				Conversation: model.Conversation{ID: 1, ExternalID: "test1", Agent: "claude_code"},
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
				Conversation: model.Conversation{ID: 2, ExternalID: "test2", Agent: "claude_code"},
			},
			wantErr: false,
		},
		{
			name: "conversation with all fields",
			record: Record{
				Conversation: model.Conversation{
					ID:         3,
					ExternalID: "test3",
					Agent:      "codex",
					Title:      "Debugging a flaky test",
					SourcePath: "/home/user/.codex/sessions/test3.jsonl",
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
			exporter := &JSONExporter{}

			err := exporter.Export(tt.record, &buf)
			if (err != nil) != tt.wantErr {
				t.Errorf("JSONExporter.Export() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				output := buf.String()
				var decoded jsonDoc
				if err := json.Unmarshal([]byte(output), &decoded); err != nil {
					t.Errorf("Output is not valid JSON: %v\nOutput: %s", err, output)
					return
				}

				if decoded.ExternalID != tt.record.Conversation.ExternalID {
					t.Errorf("decoded.ExternalID = %q, want %q", decoded.ExternalID, tt.record.Conversation.ExternalID)
				}
				if len(decoded.Messages) != len(tt.record.Messages) {
					t.Errorf("decoded %d messages, want %d", len(decoded.Messages), len(tt.record.Messages))
				}
				if tt.record.Conversation.Provenance.SourceID != "" {
					if decoded.Provenance == nil || decoded.Provenance.SourceID != tt.record.Conversation.Provenance.SourceID {
						t.Errorf("decoded.Provenance = %+v, want source_id %q", decoded.Provenance, tt.record.Conversation.Provenance.SourceID)
					}
				}

				if !strings.Contains(output, "  ") {
					t.Errorf("Output should be pretty-printed with indentation")
				}
			}
		})
	}
}

func TestJSONExporter_Extension(t *testing.T) {
	exporter := &JSONExporter{}
	if got := exporter.Extension(); got != "json" {
		t.Errorf("JSONExporter.Extension() = %v, want json", got)
	}
}
