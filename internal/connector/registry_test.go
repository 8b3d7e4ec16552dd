package connector

import "testing"

func TestDefaultRegistryHasElevenConnectors(t *testing.T) {
	reg := Default()
	if len(reg) < 11 {
		t.Fatalf("expected at least 11 connectors, got %d", len(reg))
	}
	seen := map[string]bool{}
	for _, c := range reg {
		if seen[c.Slug()] {
			t.Errorf("duplicate slug %q", c.Slug())
		}
		seen[c.Slug()] = true
	}
}

func TestRegistryBySlug(t *testing.T) {
	reg := Default()
	if _, ok := reg.BySlug("cursor"); !ok {
		t.Error("expected cursor connector to be registered")
	}
	if _, ok := reg.BySlug("does_not_exist"); ok {
		t.Error("expected lookup miss for unknown slug")
	}
}
