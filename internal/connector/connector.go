// Package connector implements the polymorphic ingestion framework: one
// capability (detect/scan) per heterogeneous on-disk agent format, no
// runtime class hierarchy — concrete connectors are plain values satisfying
// the Connector interface, held by the orchestrator as a homogeneous
// ordered slice.
package connector

import (
	"context"
	"iter"

	"github.com/cass-search/cass/internal/model"
)

// Detection reports whether a connector's on-disk shape is present, and
// with what confidence, so the orchestrator can prefer a specific
// connector over a generic fallback when both match.
type Detection struct {
	Present    bool
	ScanRoots  []string
	Confidence float64 // 0..1
}

// ScanContext carries the parameters a connector's scan needs.
type ScanContext struct {
	Context       context.Context
	ScanRoots     []string
	SinceMillis   int64 // 0 means "from the beginning"
	Provenance    model.Provenance
	PathRewrites  []model.PathRewrite
}

// Warning is a non-fatal problem surfaced during a scan: an unreadable
// root or a malformed individual record. Warnings never abort a scan.
type Warning struct {
	Kind string // "source_unreadable" | "parse_skip"
	Path string
	Err  error
}

func (w Warning) Error() string {
	if w.Err == nil {
		return w.Kind + ": " + w.Path
	}
	return w.Kind + ": " + w.Path + ": " + w.Err.Error()
}

// ScannedConversation pairs a fully-parsed Conversation with its messages
// (and any snippets), the unit a connector emits from scan().
type ScannedConversation struct {
	Conversation model.Conversation
	Messages     []model.Message
	Snippets     []model.Snippet
}

// Connector knows one agent's on-disk shape. Implementations must be
// stateless value types safe to share across goroutines; scan() opens its
// own handles per call.
type Connector interface {
	// Slug identifies the agent this connector produces, e.g. "codex".
	Slug() string
	// Detect probes well-known locations and reports presence/confidence.
	Detect() (Detection, error)
	// Scan lazily yields conversations found under ctx.ScanRoots that were
	// updated at or after ctx.SinceMillis. Warnings are pushed to warn and
	// never stop the sequence; only ctx.Context cancellation does.
	Scan(ctx ScanContext, warn func(Warning)) iter.Seq[ScannedConversation]
}

// StableExternalID derives a deterministic external id from a source file
// path when a connector's native format has none, per the connector
// contract's "stable external_id" requirement.
func StableExternalID(path string) string {
	return hashPath(path)
}
