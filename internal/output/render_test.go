package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func sampleResponse() Response {
	return Response{
		Hits: []Hit{
			{SourcePath: "a.jsonl", LineNumber: 1, Agent: "cursor", MatchType: "exact", Score: 0.9, Preview: "hello world"},
			{SourcePath: "a.jsonl", LineNumber: 2, Agent: "cursor", MatchType: "prefix", Score: 0.5},
			{SourcePath: "b.jsonl", LineNumber: 1, Agent: "claude-code", MatchType: "substring", Score: 0.3},
		},
		Meta: Meta{ElapsedMS: 12, RequestID: "req-1"},
	}
}

func TestWriteRobotJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRobot(&buf, sampleResponse(), FormatJSON); err != nil {
		t.Fatalf("WriteRobot() error = %v", err)
	}
	var decoded Response
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(decoded.Hits) != 3 {
		t.Errorf("decoded hits = %d, want 3", len(decoded.Hits))
	}
}

func TestWriteRobotJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRobot(&buf, sampleResponse(), FormatJSONL); err != nil {
		t.Fatalf("WriteRobot() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("jsonl output has %d lines, want 4 (1 header + 3 hits)", len(lines))
	}
	var header struct {
		Meta Meta `json:"_meta"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		t.Fatalf("header line did not decode: %v", err)
	}
	if header.Meta.RequestID != "req-1" {
		t.Errorf("header meta request_id = %q, want req-1", header.Meta.RequestID)
	}
}

func TestWriteRobotCompact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRobot(&buf, sampleResponse(), FormatCompact); err != nil {
		t.Fatalf("WriteRobot() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("compact output has %d lines, want 3", len(lines))
	}
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 5 {
		t.Fatalf("compact line has %d fields, want 5", len(fields))
	}
}

func TestWriteRobotSessionsDedups(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRobot(&buf, sampleResponse(), FormatSessions); err != nil {
		t.Fatalf("WriteRobot() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("sessions output has %d lines, want 2 unique source paths", len(lines))
	}
	if lines[0] != "a.jsonl" || lines[1] != "b.jsonl" {
		t.Errorf("sessions output = %v, want [a.jsonl b.jsonl]", lines)
	}
}

func TestWriteHumanNoResults(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHuman(&buf, Response{}); err != nil {
		t.Fatalf("WriteHuman() error = %v", err)
	}
	if !strings.Contains(buf.String(), "no results") {
		t.Errorf("WriteHuman() with no hits = %q, want mention of no results", buf.String())
	}
}

func TestWriteHumanRendersError(t *testing.T) {
	var buf bytes.Buffer
	resp := ErrorResponse(IndexMissing(nil), Meta{})
	if err := WriteHuman(&buf, resp); err != nil {
		t.Fatalf("WriteHuman() error = %v", err)
	}
	if !strings.Contains(buf.String(), "run `cass index --full`") {
		t.Errorf("WriteHuman() error output = %q, want hint text", buf.String())
	}
}
