package output

import (
	"testing"

	"github.com/cass-search/cass/internal/fusion"
)

func TestBuildResponsePreservesOrderAndFields(t *testing.T) {
	projected := []fusion.Projected{
		{SourcePath: "b.jsonl", Agent: "cursor", Score: 0.2},
		{SourcePath: "a.jsonl", Agent: "claude-code", Score: 0.8},
	}
	resp := BuildResponse(projected, nil, Meta{ElapsedMS: 5})
	if len(resp.Hits) != 2 {
		t.Fatalf("BuildResponse() hits = %d, want 2", len(resp.Hits))
	}
	if resp.Hits[0].SourcePath != "b.jsonl" || resp.Hits[1].SourcePath != "a.jsonl" {
		t.Errorf("BuildResponse() reordered hits: %+v", resp.Hits)
	}
	if resp.Meta.ElapsedMS != 5 {
		t.Errorf("BuildResponse() meta elapsed_ms = %d, want 5", resp.Meta.ElapsedMS)
	}
}

func TestNewRequestIDIsUnique(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == b {
		t.Errorf("NewRequestID() produced the same id twice: %q", a)
	}
	if a == "" {
		t.Error("NewRequestID() returned empty string")
	}
}
