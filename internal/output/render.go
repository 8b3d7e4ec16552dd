package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

// RobotFormat selects the shape of --robot output, per §6.
type RobotFormat string

const (
	FormatJSON     RobotFormat = "" // a single Response object, the default --json/--robot shape
	FormatJSONL    RobotFormat = "jsonl"
	FormatCompact  RobotFormat = "compact"
	FormatSessions RobotFormat = "sessions"
)

// WriteRobot renders resp to w in the requested robot format.
func WriteRobot(w io.Writer, resp Response, format RobotFormat) error {
	switch format {
	case FormatJSONL:
		return writeJSONL(w, resp)
	case FormatCompact:
		return writeCompact(w, resp)
	case FormatSessions:
		return writeSessions(w, resp)
	default:
		enc := json.NewEncoder(w)
		return enc.Encode(resp)
	}
}

// writeJSONL emits a header line carrying _meta, then one hit per line,
// per §6: "a header line {"_meta":…} then one hit per line".
func writeJSONL(w io.Writer, resp Response) error {
	enc := json.NewEncoder(w)
	header := struct {
		Meta         Meta          `json:"_meta"`
		Aggregations []Aggregation `json:"aggregations,omitempty"`
		Error        *Envelope     `json:"error,omitempty"`
	}{resp.Meta, resp.Aggregations, resp.Error}
	if err := enc.Encode(header); err != nil {
		return err
	}
	for _, h := range resp.Hits {
		if err := enc.Encode(h); err != nil {
			return err
		}
	}
	return nil
}

// writeCompact emits one tab-separated line per hit, cheapest to parse
// from shell scripts: source_path, line_number, agent, match_type, score.
func writeCompact(w io.Writer, resp Response) error {
	for _, h := range resp.Hits {
		_, err := fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			h.SourcePath, h.LineNumber, h.Agent, h.MatchType, strconv.FormatFloat(h.Score, 'f', 4, 64))
		if err != nil {
			return err
		}
	}
	return nil
}

// writeSessions emits one unique source_path per line, per §6.
func writeSessions(w io.Writer, resp Response) error {
	seen := make(map[string]bool)
	for _, h := range resp.Hits {
		if seen[h.SourcePath] {
			continue
		}
		seen[h.SourcePath] = true
		if _, err := fmt.Fprintln(w, h.SourcePath); err != nil {
			return err
		}
	}
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// WriteHuman renders resp as a styled table for interactive terminal use,
// the plain (non-robot) output mode.
func WriteHuman(w io.Writer, resp Response) error {
	if resp.Error != nil {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("error: %s", resp.Error.Message)))
		if resp.Error.Hint != "" {
			fmt.Fprintln(w, dimStyle.Render(resp.Error.Hint))
		}
		return nil
	}
	if len(resp.Hits) == 0 {
		fmt.Fprintln(w, headerStyle.Render("no results"))
		return nil
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d result(s)", len(resp.Hits))))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, titleStyle.Render("AGENT")+"\t"+titleStyle.Render("MATCH")+"\t"+titleStyle.Render("SCORE")+"\t"+titleStyle.Render("SOURCE"))
	for _, h := range resp.Hits {
		source := h.SourcePath
		if h.LineNumber > 0 {
			source = fmt.Sprintf("%s:%d", source, h.LineNumber)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.Agent, h.MatchType, strconv.FormatFloat(h.Score, 'f', 3, 64), source)
		if h.Preview != "" {
			fmt.Fprintf(tw, "\t\t\t%s\n", dimStyle.Render(truncateLine(h.Preview, 100)))
		}
	}
	return tw.Flush()
}

func truncateLine(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
