package fts

import (
	"strings"
	"unicode"
)

// tokenizerRuleID identifies the current tokenizer behavior for schema
// hashing; bump it whenever Tokenize or EdgeNGrams changes what they
// produce for the same input.
const tokenizerRuleID = "lower-split-hyphen-secondary-v1"

// Tokenize lowercases text and splits on whitespace/punctuation, treating
// hyphens as token characters so "cma-es" survives as a single token; each
// hyphenated token is additionally split into its components so either
// "cma-es", "cma", or "es" alone can match.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	var out []string
	seen := make(map[string]bool)
	add := func(tok string) {
		tok = strings.Trim(tok, "-")
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}
	for _, tok := range tokens {
		add(tok)
		if strings.Contains(tok, "-") {
			for _, part := range strings.Split(tok, "-") {
				add(part)
			}
		}
	}
	return out
}

// EdgeNGrams computes every prefix of every token in text, deduplicated,
// for O(1) prefix lookup via a companion fts5 column. Computed once per
// field per document — callers must not invoke this per-message for
// conversation-constant fields such as title.
func EdgeNGrams(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range Tokenize(text) {
		runes := []rune(tok)
		for i := 1; i <= len(runes); i++ {
			prefix := string(runes[:i])
			if !seen[prefix] {
				seen[prefix] = true
				out = append(out, prefix)
			}
		}
	}
	return out
}

// Preview truncates text to roughly n characters for the stored preview
// field, breaking on a rune boundary and trimming trailing whitespace.
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return strings.TrimRight(string(runes[:n]), " \t\n") + "…"
}
