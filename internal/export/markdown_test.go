package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cass-search/cass/internal/model"
)

func TestMarkdownExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		want    []string
		wantErr bool
	}{
		{
			name: "basic conversation",
			record: Record{
				Conversation: model.Conversation{ExternalID: "test1", Agent: "claude_code", SourcePath: "/ws/session.jsonl"},
				Messages: []model.Message{
					{Role: model.RoleUser, Content: "Hello, how are you?"},
					{Role: model.RoleAssistant, Content: "Doing well."},
				},
			},
			want: []string{
				"# test1",
				"- **Agent:** claude_code",
				"- **Source path:** /ws/session.jsonl",
				"- **Messages:** 2",
				"## Transcript",
				"### user",
				"Hello, how are you?",
				"### assistant",
			},
			wantErr: false,
		},
		{
			name: "conversation with timestamp",
			record: Record{
				Conversation: model.Conversation{ExternalID: "test2"},
				Messages: []model.Message{
					{Role: model.RoleUser, Content: "Hello", CreatedAt: 1672531200000},
				},
			},
			want: []string{
				"### user — 2023-01-01T00:00:00Z",
			},
			wantErr: false,
		},
		{
			name: "conversation with title",
			record: Record{
				Conversation: model.Conversation{ExternalID: "test3", Title: "My Conversation"},
			},
			want: []string{
				"# My Conversation",
			},
			wantErr: false,
		},
		{
			name: "conversation without source path",
			record: Record{
				Conversation: model.Conversation{ExternalID: "test4", Agent: "codex"},
			},
			want: []string{
				"# test4",
				"- **Agent:** codex",
			},
			wantErr: false,
		},
		{
			name: "empty conversation",
			record: Record{
				Conversation: model.Conversation{ExternalID: "test5"},
			},
			want: []string{
				"# test5",
				"- **Messages:** 0",
			},
			wantErr: false,
		},
		{
			name: "conversation with provenance and metadata",
			record: Record{
				Conversation: model.Conversation{
					ExternalID: "test6",
					Agent:      "codex",
					Provenance: model.Provenance{SourceID: "host1:codex", OriginKind: model.OriginRemote, OriginHost: "laptop1"},
					StartedAt:  1672531200000,
					Metadata:   map[string]string{"branch": "main", "cwd": "/repo"},
				},
				Messages: []model.Message{
					{Role: model.RoleAssistant, Content: "done", Model: "gpt-5"},
				},
			},
			want: []string{
				"- **Provenance:** host1:codex (remote @ laptop1)",
				"- **Started:** 2023-01-01T00:00:00Z",
				"- **Metadata:**",
				"  - branch: main",
				"  - cwd: /repo",
				"### assistant (gpt-5)",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &MarkdownExporter{}

			err := exporter.Export(tt.record, &buf)
			if (err != nil) != tt.wantErr {
				t.Errorf("MarkdownExporter.Export() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				output := buf.String()
				for _, wantStr := range tt.want {
					if !strings.Contains(output, wantStr) {
						t.Errorf("Output should contain %q, got:\n%s", wantStr, output)
					}
				}
			}
		})
	}
}

func TestMarkdownExporter_Extension(t *testing.T) {
	exporter := &MarkdownExporter{}
	if got := exporter.Extension(); got != "md" {
		t.Errorf("MarkdownExporter.Extension() = %v, want md", got)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		notWant []string
	}{
		{
			name:  "basic text",
			input: "Hello world",
			want:  []string{"Hello world"},
		},
		{
			name:    "markdown bold",
			input:   "This is **bold** text",
			want:    []string{"\\*\\*bold\\*\\*"},
			notWant: []string{"**bold**"},
		},
		{
			name:    "markdown underline",
			input:   "This is __underlined__ text",
			want:    []string{"\\_\\_underlined\\_\\_"},
			notWant: []string{"__underlined__"},
		},
		{
			name:  "code block preserved",
			input: "```go\npackage main\n```",
			want:  []string{"```go", "package main", "```"},
		},
		{
			name:    "mixed content",
			input:   "Regular text **bold** and ```code```",
			want:    []string{"\\*\\*bold\\*\\*", "```code```"},
			notWant: []string{"**bold**"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := escapeMarkdown(tt.input)
			for _, wantStr := range tt.want {
				if !strings.Contains(got, wantStr) {
					t.Errorf("escapeMarkdown() should contain %q, got: %s", wantStr, got)
				}
			}
			for _, notWantStr := range tt.notWant {
				if strings.Contains(got, notWantStr) {
					t.Errorf("escapeMarkdown() should not contain %q, got: %s", notWantStr, got)
				}
			}
		})
	}
}
