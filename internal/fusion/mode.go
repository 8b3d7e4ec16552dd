package fusion

import (
	"context"

	"github.com/cass-search/cass/internal/fts"
	"github.com/cass-search/cass/internal/query"
	"github.com/cass-search/cass/internal/vector"
)

// Mode selects which of G (lexical) and E (semantic) contribute to a
// search, per §6's `--mode {lexical|semantic|hybrid}` flag.
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// Resolve builds the final Candidate list for the requested mode.
// lexical may be nil when mode is semantic-only; semanticRows may be nil
// when mode is lexical-only.
func Resolve(ctx context.Context, mode Mode, lexical *query.Result, semanticRows []vector.Row, index *fts.Index) ([]Candidate, error) {
	switch mode {
	case ModeSemantic:
		return fromSemantic(ctx, semanticRows, index)
	case ModeHybrid:
		return Hybrid(ctx, lexical, semanticRows, index)
	default:
		return fromLexical(lexical.Hits, lexical.Docs), nil
	}
}
