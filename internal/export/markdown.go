package export

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cass-search/cass/internal/model"
)

// MarkdownExporter renders a conversation as a Markdown transcript, with a
// provenance header distinguishing where and from which agent it came from.
type MarkdownExporter struct{}

// fencedBlockPattern finds triple-backtick fenced regions so escaping skips
// over code verbatim instead of mangling it.
var fencedBlockPattern = regexp.MustCompile("(?s)```.*?```")

func (e *MarkdownExporter) Export(record Record, w io.Writer) error {
	conv := record.Conversation

	title := conv.Title
	if title == "" {
		title = conv.ExternalID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	writeMarkdownHeader(w, conv, len(record.Messages))

	_, _ = fmt.Fprintf(w, "## Transcript\n\n")
	for _, msg := range record.Messages {
		writeMarkdownMessage(w, msg)
	}
	return nil
}

func writeMarkdownHeader(w io.Writer, conv model.Conversation, messageCount int) {
	_, _ = fmt.Fprintf(w, "- **Agent:** %s\n", conv.Agent)
	if conv.SourcePath != "" {
		_, _ = fmt.Fprintf(w, "- **Source path:** %s\n", conv.SourcePath)
	}
	if conv.Provenance.SourceID != "" {
		_, _ = fmt.Fprintf(w, "- **Provenance:** %s (%s", conv.Provenance.SourceID, conv.Provenance.OriginKind)
		if conv.Provenance.OriginHost != "" {
			_, _ = fmt.Fprintf(w, " @ %s", conv.Provenance.OriginHost)
		}
		_, _ = fmt.Fprintf(w, ")\n")
	}
	if conv.StartedAt != 0 {
		_, _ = fmt.Fprintf(w, "- **Started:** %s\n", time.UnixMilli(conv.StartedAt).UTC().Format(time.RFC3339))
	}
	if conv.EndedAt != 0 {
		_, _ = fmt.Fprintf(w, "- **Ended:** %s\n", time.UnixMilli(conv.EndedAt).UTC().Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "- **Messages:** %d\n", messageCount)

	if len(conv.Metadata) > 0 {
		keys := make([]string, 0, len(conv.Metadata))
		for k := range conv.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = fmt.Fprintf(w, "- **Metadata:**\n")
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  - %s: %s\n", k, conv.Metadata[k])
		}
	}
	_, _ = fmt.Fprintf(w, "\n")
}

func writeMarkdownMessage(w io.Writer, msg model.Message) {
	heading := string(msg.Role)
	if msg.CreatedAt != 0 {
		heading += " — " + time.UnixMilli(msg.CreatedAt).UTC().Format(time.RFC3339)
	}
	if msg.Model != "" {
		heading += " (" + msg.Model + ")"
	}
	_, _ = fmt.Fprintf(w, "### %s\n\n%s\n\n", heading, escapeMarkdown(msg.Content))
}

// escapeMarkdown neutralizes bold/underline markers outside fenced code
// regions, splitting the text on the fence pattern rather than tracking
// open/close state line by line.
func escapeMarkdown(text string) string {
	var out strings.Builder
	last := 0
	for _, loc := range fencedBlockPattern.FindAllStringIndex(text, -1) {
		out.WriteString(escapeMarkdownSpecials(text[last:loc[0]]))
		out.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	out.WriteString(escapeMarkdownSpecials(text[last:]))
	return out.String()
}

func escapeMarkdownSpecials(s string) string {
	return strings.NewReplacer("**", "\\*\\*", "__", "\\_\\_").Replace(s)
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}
