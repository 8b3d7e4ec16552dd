package connector

import (
	"iter"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/model"
)

// lineParser decodes one JSONL line into a Message plus an optional
// workspace hint; ok is false for a malformed or empty line.
type lineParser func(line []byte) (msg model.Message, workspace string, ok bool)

// scanSimpleJSONLFamily implements the shared shape of the connectors whose
// on-disk format is "one JSONL file per conversation, one flat
// {role, content, timestamp} record per line" — windsurf, amp and
// generic_jsonl.
func scanSimpleJSONLFamily(agent string, sc ScanContext, warn func(Warning), parse lineParser) iter.Seq[ScannedConversation] {
	return func(yield func(ScannedConversation) bool) {
		for _, root := range sc.ScanRoots {
			files, err := walkFilesWithExt(root, ".jsonl")
			if err != nil {
				warn(Warning{Kind: "source_unreadable", Path: root, Err: err})
				continue
			}
			for _, path := range files {
				if info, err := os.Stat(path); err == nil && sc.SinceMillis > 0 {
					if info.ModTime().UnixMilli() < sc.SinceMillis {
						continue
					}
				}
				sconv, ok := scanSimpleJSONLFile(agent, sc, path, warn, parse)
				if ok && len(sconv.Messages) > 0 {
					if !yield(sconv) {
						return
					}
				}
			}
		}
	}
}

func scanSimpleJSONLFile(agent string, sc ScanContext, path string, warn func(Warning), parse lineParser) (ScannedConversation, bool) {
	rewritten, original, changed := model.ApplyPathRewrites(sc.PathRewrites, agent, path)
	conv := model.Conversation{
		Agent:      agent,
		Provenance: sc.Provenance,
		ExternalID: filepath.Base(path),
		SourcePath: rewritten,
	}
	if changed {
		conv.Metadata = map[string]string{"workspace_original": original}
	}

	var messages []model.Message
	idx := 0
	err := forEachJSONLine(path, func(lineNo int, line []byte) bool {
		msg, workspace, ok := parse(line)
		if !ok {
			return true
		}
		if workspace != "" {
			if conv.Metadata == nil {
				conv.Metadata = map[string]string{}
			}
			conv.Metadata["workspace"] = workspace
		}
		msg.Idx = idx
		messages = append(messages, msg)
		idx++
		if msg.CreatedAt > 0 {
			if conv.StartedAt == 0 || msg.CreatedAt < conv.StartedAt {
				conv.StartedAt = msg.CreatedAt
			}
			if msg.CreatedAt > conv.EndedAt {
				conv.EndedAt = msg.CreatedAt
			}
		}
		return true
	})
	if err != nil {
		warn(Warning{Kind: "source_unreadable", Path: path, Err: err})
		return ScannedConversation{}, false
	}
	conv.MessageCount = len(messages)
	return ScannedConversation{Conversation: conv, Messages: messages}, true
}
