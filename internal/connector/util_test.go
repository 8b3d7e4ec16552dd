package connector

import (
	"testing"

	"github.com/cass-search/cass/internal/model"
)

func TestNormalizeRole(t *testing.T) {
	cases := map[string]model.Role{
		"user":      model.RoleUser,
		"Human":     model.RoleUser,
		"assistant": model.RoleAssistant,
		"ai":        model.RoleAssistant,
		"system":    model.RoleSystem,
		"tool_use":  model.RoleTool,
		"":          model.RoleOther,
		"weird":     model.RoleOther,
	}
	for raw, want := range cases {
		if got := NormalizeRole(raw); got != want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeRoleFromType(t *testing.T) {
	if NormalizeRoleFromType(1) != model.RoleUser {
		t.Error("type 1 should be user")
	}
	if NormalizeRoleFromType(2) != model.RoleAssistant {
		t.Error("type 2 should be assistant")
	}
	if NormalizeRoleFromType(99) != model.RoleOther {
		t.Error("unknown type should be other")
	}
}

func TestFlattenToolUse(t *testing.T) {
	got := FlattenToolUse("Read", map[string]string{"path": "/foo", "lines": "10"})
	want := "[Tool: Read] lines=10 path=/foo"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStableExternalIDDeterministic(t *testing.T) {
	a := StableExternalID("/home/x/session.jsonl")
	b := StableExternalID("/home/x/session.jsonl")
	if a != b {
		t.Error("expected deterministic id")
	}
	if a == StableExternalID("/home/x/other.jsonl") {
		t.Error("expected distinct ids for distinct paths")
	}
}
