package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cass-search/cass/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent_search.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnsureAgentIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.EnsureAgent(ctx, "claude_code")
	if err != nil {
		t.Fatalf("EnsureAgent() error = %v", err)
	}
	id2, err := s.EnsureAgent(ctx, "claude_code")
	if err != nil {
		t.Fatalf("EnsureAgent() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("EnsureAgent() returned different ids for the same slug: %d != %d", id1, id2)
	}

	other, err := s.EnsureAgent(ctx, "codex")
	if err != nil {
		t.Fatalf("EnsureAgent() error = %v", err)
	}
	if other == id1 {
		t.Errorf("expected distinct ids for distinct agent slugs")
	}
}

func TestEnsureSourceUpdatesOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.EnsureSource(ctx, "host1:codex", model.OriginLocal, "host1")
	if err != nil {
		t.Fatalf("EnsureSource() error = %v", err)
	}
	id2, err := s.EnsureSource(ctx, "host1:codex", model.OriginRemote, "host2")
	if err != nil {
		t.Fatalf("EnsureSource() error = %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same row id across upserts, got %d and %d", id1, id2)
	}
}

func TestUpsertConversationInsertsThenAugments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sourceRowID, err := s.EnsureSource(ctx, "local", model.OriginLocal, "")
	if err != nil {
		t.Fatalf("EnsureSource() error = %v", err)
	}

	conv := model.Conversation{
		Agent:        "claude_code",
		ExternalID:   "conv1",
		Title:        "",
		SourcePath:   "/ws/conv1.jsonl",
		StartedAt:    1000,
		EndedAt:      1000,
		MessageCount: 1,
	}
	id, err := s.UpsertConversation(ctx, sourceRowID, conv)
	if err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero conversation id")
	}

	conv.EndedAt = 2000
	conv.MessageCount = 3
	conv.Title = "Debugging a flaky test"
	id2, err := s.UpsertConversation(ctx, sourceRowID, conv)
	if err != nil {
		t.Fatalf("UpsertConversation() (augment) error = %v", err)
	}
	if id2 != id {
		t.Fatalf("expected augment to reuse the same conversation id, got %d want %d", id2, id)
	}

	var got model.Conversation
	for c, err := range s.IterConversations(ctx, ConversationFilter{}) {
		if err != nil {
			t.Fatalf("IterConversations() error = %v", err)
		}
		got = c
	}
	if got.EndedAt != 2000 || got.MessageCount != 3 || got.Title != "Debugging a flaky test" {
		t.Errorf("augmented conversation = %+v", got)
	}
}

func TestInsertMessagesBatchSkipsDuplicateIdx(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sourceRowID, err := s.EnsureSource(ctx, "local", model.OriginLocal, "")
	if err != nil {
		t.Fatalf("EnsureSource() error = %v", err)
	}
	convID, err := s.UpsertConversation(ctx, sourceRowID, model.Conversation{
		Agent: "claude_code", ExternalID: "conv1", SourcePath: "/ws/conv1.jsonl",
	})
	if err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}

	messages := []model.Message{
		{Idx: 0, Role: model.RoleUser, Content: "hi", ContentHash: model.ContentHash(model.RoleUser, "hi", 0)},
		{Idx: 1, Role: model.RoleAssistant, Content: "hello", ContentHash: model.ContentHash(model.RoleAssistant, "hello", 0)},
	}
	inserted, err := s.InsertMessagesBatch(ctx, convID, messages)
	if err != nil {
		t.Fatalf("InsertMessagesBatch() error = %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserted, got %d", inserted)
	}

	// Re-insert the same batch plus a new message; duplicates must be skipped.
	messages = append(messages, model.Message{Idx: 2, Role: model.RoleUser, Content: "again", ContentHash: "x"})
	inserted, err = s.InsertMessagesBatch(ctx, convID, messages)
	if err != nil {
		t.Fatalf("InsertMessagesBatch() (retry) error = %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected only the new message to be inserted, got %d", inserted)
	}

	got, err := s.GetMessages(ctx, convID)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 stored messages, got %d", len(got))
	}
}

func TestGetMessageContentBySourcePathAndIdx(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sourceRowID, err := s.EnsureSource(ctx, "local", model.OriginLocal, "")
	if err != nil {
		t.Fatalf("EnsureSource() error = %v", err)
	}
	convID, err := s.UpsertConversation(ctx, sourceRowID, model.Conversation{
		Agent: "claude_code", ExternalID: "conv1", SourcePath: "/ws/conv1.jsonl",
	})
	if err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}
	if _, err := s.InsertMessagesBatch(ctx, convID, []model.Message{
		{Idx: 0, Role: model.RoleUser, Content: "hello there", ContentHash: "h0"},
	}); err != nil {
		t.Fatalf("InsertMessagesBatch() error = %v", err)
	}

	content, err := s.GetMessageContent(ctx, "/ws/conv1.jsonl", 0)
	if err != nil {
		t.Fatalf("GetMessageContent() error = %v", err)
	}
	if content != "hello there" {
		t.Errorf("GetMessageContent() = %q, want %q", content, "hello there")
	}

	missing, err := s.GetMessageContent(ctx, "/ws/conv1.jsonl", 99)
	if err != nil {
		t.Fatalf("GetMessageContent() (missing) error = %v", err)
	}
	if missing != "" {
		t.Errorf("GetMessageContent() for unknown idx = %q, want empty string", missing)
	}
}

func TestCounters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.EnsureAgent(ctx, "claude_code"); err != nil {
		t.Fatalf("EnsureAgent() error = %v", err)
	}
	sourceRowID, err := s.EnsureSource(ctx, "local", model.OriginLocal, "")
	if err != nil {
		t.Fatalf("EnsureSource() error = %v", err)
	}
	convID, err := s.UpsertConversation(ctx, sourceRowID, model.Conversation{
		Agent: "claude_code", ExternalID: "conv1", SourcePath: "/ws/conv1.jsonl",
	})
	if err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}
	if _, err := s.InsertMessagesBatch(ctx, convID, []model.Message{
		{Idx: 0, Role: model.RoleUser, Content: "hi", ContentHash: "h0"},
	}); err != nil {
		t.Fatalf("InsertMessagesBatch() error = %v", err)
	}

	counters, err := s.Counters(ctx)
	if err != nil {
		t.Fatalf("Counters() error = %v", err)
	}
	if counters.Agents != 1 || counters.Sources != 1 || counters.Conversations != 1 || counters.Messages != 1 {
		t.Errorf("Counters() = %+v", counters)
	}
}

func TestTruncateAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sourceRowID, err := s.EnsureSource(ctx, "local", model.OriginLocal, "")
	if err != nil {
		t.Fatalf("EnsureSource() error = %v", err)
	}
	if _, err := s.UpsertConversation(ctx, sourceRowID, model.Conversation{
		Agent: "claude_code", ExternalID: "conv1", SourcePath: "/ws/conv1.jsonl",
	}); err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}

	if err := s.TruncateAll(ctx); err != nil {
		t.Fatalf("TruncateAll() error = %v", err)
	}

	counters, err := s.Counters(ctx)
	if err != nil {
		t.Fatalf("Counters() error = %v", err)
	}
	if counters.Conversations != 0 || counters.Sources != 0 {
		t.Errorf("expected all tables empty after TruncateAll(), got %+v", counters)
	}
}

func TestIterConversationsFiltersByAgentAndSource(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	src1, err := s.EnsureSource(ctx, "host1", model.OriginLocal, "")
	if err != nil {
		t.Fatalf("EnsureSource() error = %v", err)
	}
	src2, err := s.EnsureSource(ctx, "host2", model.OriginLocal, "")
	if err != nil {
		t.Fatalf("EnsureSource() error = %v", err)
	}

	if _, err := s.UpsertConversation(ctx, src1, model.Conversation{Agent: "claude_code", ExternalID: "a", SourcePath: "/a"}); err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}
	if _, err := s.UpsertConversation(ctx, src2, model.Conversation{Agent: "codex", ExternalID: "b", SourcePath: "/b"}); err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}

	var gotAgents []string
	for c, err := range s.IterConversations(ctx, ConversationFilter{Agent: "codex"}) {
		if err != nil {
			t.Fatalf("IterConversations() error = %v", err)
		}
		gotAgents = append(gotAgents, c.Agent)
	}
	if len(gotAgents) != 1 || gotAgents[0] != "codex" {
		t.Errorf("IterConversations(Agent=codex) = %v", gotAgents)
	}

	var gotSources []string
	for c, err := range s.IterConversations(ctx, ConversationFilter{SourceID: "host1"}) {
		if err != nil {
			t.Fatalf("IterConversations() error = %v", err)
		}
		gotSources = append(gotSources, c.ExternalID)
	}
	if len(gotSources) != 1 || gotSources[0] != "a" {
		t.Errorf("IterConversations(SourceID=host1) = %v", gotSources)
	}
}
