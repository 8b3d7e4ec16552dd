package connector

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractCursorBubbleText extracts searchable prose from a bubble using the
// same three-tier strategy as Cursor's own chat viewer: the plain text
// field, then the rich-text JSON tree, then appended code blocks.
func extractCursorBubbleText(b *cursorBubble) string {
	var parts []string

	if b.Text != "" {
		parts = append(parts, b.Text)
	}

	if b.RichText != "" {
		if rich := extractRichText(b.RichText); rich != "" {
			if b.Text == "" || !strings.Contains(b.Text, rich) {
				parts = append(parts, rich)
			}
		}
	}

	for _, block := range b.CodeBlocks {
		if block.Content != "" {
			parts = append(parts, fmt.Sprintf("```%s\n%s\n```", block.Language, block.Content))
		}
	}

	result := strings.Join(parts, "\n\n")
	if result == "" {
		return ""
	}
	return result
}

// extractRichText walks Cursor's Lexical-style rich text JSON tree
// (root.children[], each a {type, text, children[]} node) and concatenates
// text leaves, rendering code nodes as markdown fences.
func extractRichText(raw string) string {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ""
	}
	if root, ok := doc["root"].(map[string]interface{}); ok {
		if children, ok := root["children"].([]interface{}); ok {
			return walkRichTextNodes(children)
		}
	}
	if children, ok := doc["children"].([]interface{}); ok {
		return walkRichTextNodes(children)
	}
	return ""
}

func walkRichTextNodes(nodes []interface{}) string {
	var b strings.Builder
	for _, n := range nodes {
		node, ok := n.(map[string]interface{})
		if !ok {
			continue
		}
		typ, _ := node["type"].(string)
		switch typ {
		case "text":
			if text, ok := node["text"].(string); ok {
				b.WriteString(text)
			}
		case "code", "codeblock":
			children, _ := node["children"].([]interface{})
			if code := walkRichTextNodes(children); code != "" {
				b.WriteString("\n```\n" + code + "\n```\n")
			}
		case "tool-call", "tool_use":
			name, _ := node["name"].(string)
			params, _ := node["params"].(map[string]interface{})
			flat := map[string]string{}
			for k, v := range params {
				if s, ok := v.(string); ok {
					flat[k] = s
				}
			}
			b.WriteString(FlattenToolUse(name, flat) + "\n")
		default:
			if children, ok := node["children"].([]interface{}); ok {
				b.WriteString(walkRichTextNodes(children))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
