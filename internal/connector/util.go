package connector

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cass-search/cass/internal/model"
)

func hashPath(path string) string {
	h := sha256.Sum256([]byte(path))
	return hex.EncodeToString(h[:])[:32]
}

// NormalizeRole maps a heterogeneous role/type label to the §3 enum. Unknown
// labels normalize to RoleOther rather than failing the record.
func NormalizeRole(raw string) model.Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user", "human":
		return model.RoleUser
	case "assistant", "ai", "model", "bot":
		return model.RoleAssistant
	case "system":
		return model.RoleSystem
	case "tool", "tool_use", "tool_result", "function":
		return model.RoleTool
	default:
		return model.RoleOther
	}
}

// NormalizeRoleFromType maps Cursor's numeric bubble type (1=user,
// 2=assistant) to the §3 enum.
func NormalizeRoleFromType(t int) model.Role {
	switch t {
	case 1:
		return model.RoleUser
	case 2:
		return model.RoleAssistant
	default:
		return model.RoleOther
	}
}

// FlattenToolUse renders a nested tool invocation as searchable prose, per
// the connector contract's flattening rule, e.g.
// "[Tool: Read] path=/foo".
func FlattenToolUse(name string, params map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Tool: %s]", name)
	for _, k := range sortedKeys(params) {
		fmt.Fprintf(&b, " %s=%s", k, params[k])
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
