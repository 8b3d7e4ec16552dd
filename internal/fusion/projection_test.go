package fusion

import (
	"errors"
	"testing"
)

func TestResolveFields(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want fieldSet
	}{
		{name: "empty defaults to summary", spec: "", want: summaryFields},
		{name: "minimal preset", spec: "minimal", want: minimalFields},
		{name: "full preset", spec: "full", want: fullFields},
		{name: "explicit list", spec: "agent, score", want: fieldSet{"agent": true, "score": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFields(tt.spec)
			if len(got) != len(tt.want) {
				t.Fatalf("ResolveFields(%q) = %v, want %v", tt.spec, got, tt.want)
			}
			for k := range tt.want {
				if !got[k] {
					t.Errorf("ResolveFields(%q) missing field %q", tt.spec, k)
				}
			}
		})
	}
}

func TestProjectOnlyFetchesContentWhenRequested(t *testing.T) {
	candidates := []Candidate{
		{SourcePath: "a.jsonl", MsgIdx: 1, Agent: "cursor", Title: "t", Preview: "p"},
	}

	calls := 0
	fetch := func(sourcePath string, msgIdx int) (string, error) {
		calls++
		return "full content", nil
	}

	minimal := ResolveFields(PresetMinimal)
	if _, err := Project(candidates, minimal, fetch); err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("Project() with minimal fields called fetchContent %d times, want 0", calls)
	}

	full := ResolveFields(PresetFull)
	projected, err := Project(candidates, full, fetch)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("Project() with full fields called fetchContent %d times, want 1", calls)
	}
	if projected[0].Content != "full content" {
		t.Errorf("Project() content = %q, want %q", projected[0].Content, "full content")
	}
}

func TestProjectPropagatesFetchError(t *testing.T) {
	candidates := []Candidate{{SourcePath: "a.jsonl", MsgIdx: 1}}
	wantErr := errors.New("store closed")
	fetch := func(string, int) (string, error) { return "", wantErr }

	_, err := Project(candidates, ResolveFields(PresetFull), fetch)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Project() error = %v, want %v", err, wantErr)
	}
}

func TestProjectPreservesOrder(t *testing.T) {
	candidates := []Candidate{
		{SourcePath: "b.jsonl", MsgIdx: 2, Score: 0.1},
		{SourcePath: "a.jsonl", MsgIdx: 1, Score: 0.9},
	}
	projected, err := Project(candidates, ResolveFields(PresetMinimal), nil)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if projected[0].SourcePath != "b.jsonl" || projected[1].SourcePath != "a.jsonl" {
		t.Errorf("Project() reordered candidates: %+v", projected)
	}
}
