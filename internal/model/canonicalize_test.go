package model

import (
	"strings"
	"testing"
)

func TestCanonicalizeDeterministic(t *testing.T) {
	text := "Hello   world.\n\n\nHere is `inline` and:\n```go\nfunc f() {}\n```\nDone."
	a := Canonicalize(text)
	b := Canonicalize(text)
	if a != b {
		t.Fatalf("canonicalize is not deterministic: %q vs %q", a, b)
	}
	if a == "" {
		t.Fatal("canonicalize dropped all content")
	}
}

func TestCanonicalizeStripsFences(t *testing.T) {
	text := "before ```code block here``` after"
	got := Canonicalize(text)
	if got == "" {
		t.Fatal("expected surrounding prose to survive")
	}
	for _, want := range []string{"before", "after"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q to contain %q", got, want)
		}
	}
	if strings.Contains(got, "code block here") {
		t.Errorf("fenced content should be stripped: %q", got)
	}
}

func TestCanonicalizeCollapsesWhitespace(t *testing.T) {
	got := Canonicalize("a    b\t\tc")
	if got != "a b c" {
		t.Errorf("got %q, want %q", got, "a b c")
	}
}

func TestCanonicalizeTruncates(t *testing.T) {
	long := make([]byte, canonicalTruncationBudget*2)
	for i := range long {
		long[i] = 'a'
	}
	got := Canonicalize(string(long))
	if len([]rune(got)) > canonicalTruncationBudget {
		t.Errorf("expected truncation to %d runes, got %d", canonicalTruncationBudget, len([]rune(got)))
	}
}
