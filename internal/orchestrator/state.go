package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// WatchState is the persisted per-source, per-connector high-water mark
// driving incremental ingest: `{ source_id -> { connector_slug ->
// last_scan_ts } }`, per §4.F/§6 (watch_state.json).
type WatchState struct {
	Sources map[string]map[string]int64 `json:"sources"`
}

func loadWatchState(dataDir string) (*WatchState, error) {
	path := filepath.Join(dataDir, "watch_state.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &WatchState{Sources: make(map[string]map[string]int64)}, nil
	}
	if err != nil {
		return nil, err
	}
	var state WatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Sources == nil {
		state.Sources = make(map[string]map[string]int64)
	}
	return &state, nil
}

func (s *WatchState) save(dataDir string) error {
	path := filepath.Join(dataDir, "watch_state.json")
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// SinceTimestamp returns the last recorded high-water mark for
// (sourceID, connectorSlug), or 0 if never scanned.
func (s *WatchState) SinceTimestamp(sourceID, connectorSlug string) int64 {
	if byConnector, ok := s.Sources[sourceID]; ok {
		return byConnector[connectorSlug]
	}
	return 0
}

// SetSinceTimestamp records a new high-water mark.
func (s *WatchState) SetSinceTimestamp(sourceID, connectorSlug string, ts int64) {
	if s.Sources[sourceID] == nil {
		s.Sources[sourceID] = make(map[string]int64)
	}
	s.Sources[sourceID][connectorSlug] = ts
}
