package model

import (
	"strconv"
	"time"
)

// secondsMagnitudeCeiling is the boundary below which an integer timestamp
// is assumed to be seconds rather than milliseconds: 10-digit second
// timestamps top out around the year 2286 (9999999999), comfortably above
// any real session log while remaining well below the smallest 13-digit
// millisecond timestamp.
const secondsMagnitudeCeiling = 9_999_999_999

// NormalizeTimestampMagnitude converts a raw integer timestamp of unknown
// unit to milliseconds using the heuristic in the connector contract:
// values with magnitude consistent with 10-digit seconds are multiplied by
// 1000; larger values are assumed to already be milliseconds.
func NormalizeTimestampMagnitude(raw int64) int64 {
	if raw == 0 {
		return 0
	}
	abs := raw
	if abs < 0 {
		abs = -abs
	}
	if abs <= secondsMagnitudeCeiling {
		return raw * 1000
	}
	return raw
}

// ParseISO8601Strict parses an ISO-8601 timestamp string, returning ms
// epoch. Unlike lenient parsers, it rejects formats not covered by the
// listed layouts rather than guessing.
func ParseISO8601Strict(s string) (int64, bool) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// ParseTimestampField normalizes a heterogeneous timestamp field (an
// integer of unknown unit, a numeric string, or an ISO-8601 string) to ms
// epoch, per the connector contract's timestamp normalization rule.
func ParseTimestampField(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return NormalizeTimestampMagnitude(n), true
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return NormalizeTimestampMagnitude(int64(f)), true
	}
	return ParseISO8601Strict(raw)
}
