package model

import "testing"

func TestContentHashDeterministic(t *testing.T) {
	h1 := ContentHash(RoleUser, "hello", 1000)
	h2 := ContentHash(RoleUser, "hello", 1000)
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
}

func TestContentHashDistinguishesFields(t *testing.T) {
	base := ContentHash(RoleUser, "hello", 1000)
	cases := []string{
		ContentHash(RoleAssistant, "hello", 1000),
		ContentHash(RoleUser, "goodbye", 1000),
		ContentHash(RoleUser, "hello", 2000),
	}
	for _, c := range cases {
		if c == base {
			t.Errorf("expected hash to differ, both were %s", base)
		}
	}
}
