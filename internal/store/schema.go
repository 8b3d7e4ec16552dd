package store

// schemaSQL creates the durable relational schema described in the
// specification's data model: agents, workspaces, sources, conversations,
// messages, snippets, plus a schema_meta row and an FTS5 mirror on
// messages. Grounded on the plain embedded-schema-string pattern used
// across the retrieved pack's SQLite-backed session stores.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
	id   INTEGER PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS workspaces (
	id            INTEGER PRIMARY KEY,
	path          TEXT NOT NULL UNIQUE,
	original_path TEXT
);

CREATE TABLE IF NOT EXISTS sources (
	id         INTEGER PRIMARY KEY,
	source_id  TEXT NOT NULL UNIQUE,
	kind       TEXT NOT NULL,
	host_label TEXT
);

CREATE TABLE IF NOT EXISTS conversations (
	id             INTEGER PRIMARY KEY,
	source_row_id  INTEGER NOT NULL REFERENCES sources(id),
	agent          TEXT NOT NULL,
	workspace_id   INTEGER REFERENCES workspaces(id),
	external_id    TEXT NOT NULL,
	title          TEXT,
	source_path    TEXT NOT NULL,
	origin_kind    TEXT NOT NULL,
	origin_host    TEXT,
	started_at     INTEGER NOT NULL DEFAULT 0,
	ended_at       INTEGER NOT NULL DEFAULT 0,
	message_count  INTEGER NOT NULL DEFAULT 0,
	metadata_json  TEXT,
	UNIQUE (source_row_id, agent, external_id)
);

CREATE INDEX IF NOT EXISTS idx_conversations_source_path ON conversations(source_path);
CREATE INDEX IF NOT EXISTS idx_conversations_agent ON conversations(agent);
CREATE INDEX IF NOT EXISTS idx_conversations_workspace ON conversations(workspace_id);
CREATE INDEX IF NOT EXISTS idx_conversations_started_at ON conversations(started_at);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY,
	conversation_id INTEGER NOT NULL REFERENCES conversations(id),
	idx             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      INTEGER NOT NULL DEFAULT 0,
	updated_at      INTEGER NOT NULL DEFAULT 0,
	model           TEXT,
	content_hash    TEXT NOT NULL,
	UNIQUE (conversation_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_content_hash ON messages(content_hash);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);

CREATE TABLE IF NOT EXISTS snippets (
	id         INTEGER PRIMARY KEY,
	message_id INTEGER NOT NULL REFERENCES messages(id),
	language   TEXT,
	offset     INTEGER NOT NULL DEFAULT 0,
	length     INTEGER NOT NULL DEFAULT 0,
	content    TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	content='messages',
	content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;
`

// CurrentSchemaVersion is bumped whenever schemaSQL changes shape in a way
// that isn't safely additive. See the store's upgrade policy: an
// incompatible version never errors, it triggers a rename-and-rebuild.
const CurrentSchemaVersion = "1"
