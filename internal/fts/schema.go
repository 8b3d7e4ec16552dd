// Package fts wraps a SQLite fts5 virtual table as cass's inverted-index
// engine: schema versioning, an edge-n-gram tokenizer layered over fts5
// (which has no native prefix-ngram tokenizer), a debounced reader reload,
// and a schema-hash file used to detect incompatible index generations.
// Grounded on the FTS5-over-modernc.org/sqlite design documented in
// jholhewres-goclaw's sqlite memory store.
package fts

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

func generationStamp() int64 {
	return time.Now().UnixNano()
}

// schemaSQL declares the fts5 virtual table used as cass's search schema.
// title/content carry the tokenized text for BM25; title_prefix/content_prefix
// carry cass's own edge-n-gram expansion (§4.D) fed at write time, since fts5
// ships no edge-n-gram tokenizer option. Keyword and stored-only fields are
// declared UNINDEXED so fts5 never tokenizes them.
const schemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS documents USING fts5(
	agent UNINDEXED,
	workspace UNINDEXED,
	source_id UNINDEXED,
	origin_kind UNINDEXED,
	origin_host UNINDEXED,
	source_path UNINDEXED,
	msg_idx UNINDEXED,
	created_at UNINDEXED,
	title,
	content,
	title_prefix,
	content_prefix,
	preview UNINDEXED,
	content_hash UNINDEXED,
	tokenize = 'unicode61 tokenchars ''-'''
);
`

// SchemaVersion identifies the shape of schemaSQL. Bump whenever a column
// is added, removed, or retyped in a way existing rows can't tolerate.
const SchemaVersion = "1"

// schemaHash is a stable fingerprint of SchemaVersion plus the tokenizer
// rule, so a tokenizer change also forces a rebuild even if the column
// shape is unchanged.
func schemaHash() string {
	h := sha256.Sum256([]byte(SchemaVersion + "|" + tokenizerRuleID))
	return hex.EncodeToString(h[:])[:16]
}

type schemaHashFile struct {
	Hash       string `json:"hash"`
	Generation int64  `json:"generation"` // unix nanos when this index directory was (re)created
}

// checkOrDiscard reads dir/schema_hash.json; if absent or mismatched with
// the current schema, the entire index directory is discarded so a fresh
// database (and a full rebuild) starts clean, per the store's rebuild-over-
// migrate policy. Returns the directory's generation stamp, which changes
// only when the directory is discarded and recreated; pagination cursors
// embed it so a cursor from a since-rebuilt index is rejected rather than
// silently returning wrong results.
func checkOrDiscard(dir string) (int64, error) {
	hashPath := filepath.Join(dir, "schema_hash.json")
	current := schemaHash()

	data, err := os.ReadFile(hashPath)
	if err == nil {
		var f schemaHashFile
		if json.Unmarshal(data, &f) == nil && f.Hash == current {
			return f.Generation, nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("discard stale fts index: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	generation := generationStamp()
	out, err := json.Marshal(schemaHashFile{Hash: current, Generation: generation})
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(hashPath, out, 0o644); err != nil {
		return 0, err
	}
	return generation, nil
}

func openIndexDB(dir string) (*sql.DB, int64, error) {
	generation, err := checkOrDiscard(dir)
	if err != nil {
		return nil, 0, err
	}
	dbPath := filepath.Join(dir, "fts.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, 0, fmt.Errorf("open fts store: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("apply fts schema: %w", err)
	}
	return db, generation, nil
}
