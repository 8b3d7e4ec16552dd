// Package model defines the normalized conversational entities that every
// connector converges on and that the durable store, FTS index, and vector
// index all key against.
package model

// Role is the normalized speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleOther     Role = "other"
)

// OriginKind distinguishes a locally-produced session from one mirrored from
// another machine.
type OriginKind string

const (
	OriginLocal  OriginKind = "local"
	OriginRemote OriginKind = "remote"
)

// Provenance identifies where a Conversation (and every document derived
// from it) originated. Two conversations sharing an ExternalID under
// different Provenance never merge — see Conversation.Identity.
type Provenance struct {
	SourceID   string
	OriginKind OriginKind
	OriginHost string
}

// Agent is a tag identifying the producing tool, e.g. "claude_code", "codex".
type Agent struct {
	ID   int64
	Slug string
}

// Workspace is an agent-reported project root, unique by canonical path.
type Workspace struct {
	ID               int64
	Path             string
	OriginalPath     string // pre-rewrite value, preserved for provenance
}

// Source is a logical origin of conversations, local or mirrored remote.
type Source struct {
	ID        int64
	SourceID  string
	Kind      OriginKind
	HostLabel string
}

// Conversation is one agent session.
type Conversation struct {
	ID           int64
	Agent        string
	WorkspaceID  int64 // 0 when unknown
	Provenance   Provenance
	ExternalID   string
	Title        string
	SourcePath   string
	StartedAt    int64 // ms epoch
	EndedAt      int64 // ms epoch, 0 if open
	MessageCount int
	Metadata     map[string]string
}

// Identity returns the tuple that uniquely identifies a Conversation row:
// UNIQUE(source_id, agent, external_id).
func (c Conversation) Identity() (sourceID, agent, externalID string) {
	return c.Provenance.SourceID, c.Agent, c.ExternalID
}

// Message is an event within a Conversation.
type Message struct {
	ID             int64
	ConversationID int64
	Idx            int
	Role           Role
	Content        string
	CreatedAt      int64 // ms epoch, 0 if unknown
	UpdatedAt      int64
	Model          string
	ContentHash    string
}

// Snippet is an optional extracted code-like region of a Message.
type Snippet struct {
	ID        int64
	MessageID int64
	Language  string
	Offset    int
	Length    int
	Content   string
}

// PathRewrite rewrites a remote absolute path prefix to a local equivalent
// at ingest time, optionally scoped to a subset of agents.
type PathRewrite struct {
	FromPrefix string
	ToPrefix   string
	Agents     []string // empty means all agents
}

// matches reports whether the rule applies to agent; a rule with no Agents
// applies to every agent.
func (p PathRewrite) matches(agent string) bool {
	if len(p.Agents) == 0 {
		return true
	}
	for _, a := range p.Agents {
		if a == agent {
			return true
		}
	}
	return false
}
