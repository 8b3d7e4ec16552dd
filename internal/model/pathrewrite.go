package model

import "strings"

// ApplyPathRewrites rewrites path using the first rule in rules whose
// FromPrefix matches and whose agent filter (if any) includes agent. It
// returns the (possibly unmodified) path and the original value when a
// rewrite occurred, so callers can preserve it as OriginalPath.
func ApplyPathRewrites(rules []PathRewrite, agent, path string) (rewritten string, original string, changed bool) {
	for _, r := range rules {
		if !r.matches(agent) {
			continue
		}
		if strings.HasPrefix(path, r.FromPrefix) {
			return r.ToPrefix + strings.TrimPrefix(path, r.FromPrefix), path, true
		}
	}
	return path, path, false
}
