package connector

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// cursorWorkspace associates a workspaceStorage hash directory with the
// project folder path Cursor recorded in its workspace.json.
type cursorWorkspace struct {
	Hash string
	Path string
}

func detectCursorWorkspaces(basePath string) map[string]cursorWorkspace {
	out := make(map[string]cursorWorkspace)
	entries, err := os.ReadDir(filepath.Join(basePath, "workspaceStorage"))
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		wsJSON := filepath.Join(basePath, "workspaceStorage", e.Name(), "workspace.json")
		data, err := os.ReadFile(wsJSON)
		if err != nil {
			out[e.Name()] = cursorWorkspace{Hash: e.Name()}
			continue
		}
		var payload struct {
			Folder string `json:"folder"`
		}
		if err := json.Unmarshal(data, &payload); err == nil {
			out[e.Name()] = cursorWorkspace{Hash: e.Name(), Path: payload.Folder}
		}
	}
	return out
}
