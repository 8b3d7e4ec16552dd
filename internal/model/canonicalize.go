package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// canonicalTruncationBudget is the fixed character budget canonicalize
// truncates to. Frozen at 4096 runes; see SPEC_FULL.md §4.A for the rationale (an
// Open Question in the source specification).
const canonicalTruncationBudget = 4096

var (
	fencedCodeBlock = regexp.MustCompile("(?s)```.*?```")
	inlineCode      = regexp.MustCompile("`[^`\n]*`")
	whitespaceRun   = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRun    = regexp.MustCompile(`\n{3,}`)
	noiseRun        = regexp.MustCompile(`[^\p{L}\p{N}\s]{4,}`)
)

// Canonicalize deterministically normalizes text into stable content used
// for content hashing and embedding. Steps, in order: Unicode NFC
// normalization; markdown-fence and inline-code stripping (with structural
// preservation of surrounding prose — a stripped span leaves a single
// space so word boundaries survive); filtering of low-signal
// non-alphanumeric noise runs; whitespace collapsing to single spaces with
// paragraph breaks preserved; truncation to a fixed character budget.
//
// The result is byte-identical across runs for the same input.
func Canonicalize(text string) string {
	normalized := norm.NFC.String(text)

	stripped := fencedCodeBlock.ReplaceAllString(normalized, " ")
	stripped = inlineCode.ReplaceAllString(stripped, " ")

	stripped = noiseRun.ReplaceAllString(stripped, " ")

	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))
	}
	collapsed := strings.Join(lines, "\n")
	collapsed = blankLineRun.ReplaceAllString(collapsed, "\n\n")
	collapsed = strings.TrimSpace(collapsed)

	return truncateRunes(collapsed, canonicalTruncationBudget)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		count++
		if count > limit {
			return s[:i]
		}
	}
	return s
}

// IsLowSignal reports whether r contributes no searchable meaning on its
// own (used by tokenizers to skip pure punctuation/symbol runs).
func IsLowSignal(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}
