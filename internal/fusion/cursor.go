package fusion

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrCursorInvalid signals a cursor that doesn't decode, or whose
// Generation no longer matches the current index — per §6, a cursor
// older than the last rebuild is rejected rather than silently
// returning results relative to the wrong generation.
var ErrCursorInvalid = errors.New("cursor invalid or stale")

// cursor is the opaque pagination token's decoded shape: the sort key
// and dedup id of the last hit returned, plus the index generation it
// was issued against.
type cursor struct {
	SortKey    string `json:"sort_key"`
	ID         string `json:"id"`
	Generation int64  `json:"generation"`
}

// EncodeCursor builds an opaque continuation token from the last hit on
// a page.
func EncodeCursor(sortKey, id string, generation int64) string {
	data, _ := json.Marshal(cursor{SortKey: sortKey, ID: id, Generation: generation})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by EncodeCursor, rejecting one
// issued against a different (rebuilt) generation.
func DecodeCursor(token string, currentGeneration int64) (sortKey, id string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", ErrCursorInvalid
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return "", "", ErrCursorInvalid
	}
	if c.Generation != currentGeneration {
		return "", "", ErrCursorInvalid
	}
	return c.SortKey, c.ID, nil
}

// Paginate slices sorted candidates to the page starting just after the
// cursor position (matched by (sort_key, id) equal to a candidate's own
// key), returning the page and the cursor for the next page (empty if
// this was the last page).
func Paginate(candidates []Candidate, sortKeyOf func(Candidate) string, afterSortKey, afterID string, limit int, generation int64) (page []Candidate, nextCursor string) {
	start := 0
	if afterSortKey != "" || afterID != "" {
		for i, c := range candidates {
			if sortKeyOf(c) == afterSortKey && dedupKey(c.ContentHash, c.SourceID) == afterID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(candidates) || limit <= 0 {
		end = len(candidates)
	}
	if start >= len(candidates) {
		return nil, ""
	}
	page = candidates[start:end]
	if end < len(candidates) && len(page) > 0 {
		last := page[len(page)-1]
		nextCursor = EncodeCursor(sortKeyOf(last), dedupKey(last.ContentHash, last.SourceID), generation)
	}
	return page, nextCursor
}
