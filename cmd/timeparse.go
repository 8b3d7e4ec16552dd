package cmd

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cass-search/cass/internal/model"
)

var relativeDurationRE = regexp.MustCompile(`^-(\d+)([dhw])$`)

// parseTimeInput normalizes one of §6's accepted time forms — relative
// (-7d, -24h, -1w), named (now, today, yesterday), ISO-8601, US-style
// dates, or a magnitude-detected Unix timestamp — to ms epoch.
func parseTimeInput(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	now := time.Now()
	switch strings.ToLower(s) {
	case "now":
		return now.UnixMilli(), nil
	case "today":
		return startOfDay(now).UnixMilli(), nil
	case "yesterday":
		return startOfDay(now.AddDate(0, 0, -1)).UnixMilli(), nil
	}

	if m := relativeDurationRE.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		var d time.Duration
		switch m[2] {
		case "d":
			d = time.Duration(n) * 24 * time.Hour
		case "h":
			d = time.Duration(n) * time.Hour
		case "w":
			d = time.Duration(n) * 7 * 24 * time.Hour
		}
		return now.Add(-d).UnixMilli(), nil
	}

	if ms, ok := model.ParseTimestampField(s); ok {
		return ms, nil
	}

	for _, layout := range []string{"01/02/2006", "01-02-2006", "January 2, 2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}

	return 0, fmt.Errorf("unrecognized time value %q", s)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// resolveTimeRange applies --since/--until/--days/--today to produce the
// (since, until) ms-epoch range the query planner's filters carry; --days
// and --today are shorthand that set since directly.
func resolveTimeRange(since, until string, days int, today bool) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	switch {
	case today:
		sinceMS = startOfDay(time.Now()).UnixMilli()
	case days > 0:
		sinceMS = time.Now().Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()
	case since != "":
		sinceMS, err = parseTimeInput(since)
		if err != nil {
			return 0, 0, err
		}
	}

	if until != "" {
		untilMS, err = parseTimeInput(until)
		if err != nil {
			return 0, 0, err
		}
	}

	return sinceMS, untilMS, nil
}
