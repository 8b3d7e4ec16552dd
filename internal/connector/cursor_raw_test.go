package connector

import (
	"testing"

	"github.com/cass-search/cass/testutil"
)

func TestLoadCursorBubbles(t *testing.T) {
	db := testutil.CreateInMemoryCursorDB(t)
	defer db.Close()

	testutil.InsertCursorKV(t, db, "bubbleId:chat1:b1",
		`{"bubbleId":"b1","chatId":"chat1","text":"hi","timestamp":1000,"type":1}`)
	testutil.InsertCursorKV(t, db, "bubbleId:chat1:b2",
		`{"bubbleId":"b2","chatId":"chat1","text":"hello","timestamp":2000,"type":2}`)
	testutil.InsertCursorKV(t, db, "composerData:should-be-ignored", `{"composerId":"x"}`)

	bubbles, err := loadCursorBubbles(db)
	if err != nil {
		t.Fatalf("loadCursorBubbles() error = %v", err)
	}
	if len(bubbles) != 2 {
		t.Fatalf("expected 2 bubbles, got %d", len(bubbles))
	}
	b1, ok := bubbles["b1"]
	if !ok {
		t.Fatal("expected bubble b1 to be present")
	}
	if b1.ChatID != "chat1" || b1.Text != "hi" || b1.Type != 1 {
		t.Errorf("unexpected bubble: %+v", b1)
	}
}

func TestLoadCursorComposers(t *testing.T) {
	db := testutil.CreateInMemoryCursorDB(t)
	defer db.Close()

	testutil.InsertCursorKV(t, db, "composerData:c1",
		`{"composerId":"c1","name":"First","fullConversationHeadersOnly":[{"bubbleId":"b1","type":1}],"createdAt":1000,"lastUpdatedAt":2000}`)
	testutil.InsertCursorKV(t, db, "bubbleId:chat1:b1", `{"bubbleId":"b1","chatId":"chat1","text":"hi"}`)

	composers, err := loadCursorComposers(db)
	if err != nil {
		t.Fatalf("loadCursorComposers() error = %v", err)
	}
	if len(composers) != 1 {
		t.Fatalf("expected 1 composer, got %d", len(composers))
	}
	if composers[0].ComposerID != "c1" || composers[0].Name != "First" {
		t.Errorf("unexpected composer: %+v", composers[0])
	}
	if len(composers[0].FullConversationHeadersOnly) != 1 || composers[0].FullConversationHeadersOnly[0].BubbleID != "b1" {
		t.Errorf("unexpected headers: %+v", composers[0].FullConversationHeadersOnly)
	}
}

func TestLoadCursorBubblesSkipsMalformedJSON(t *testing.T) {
	db := testutil.CreateInMemoryCursorDB(t)
	defer db.Close()

	testutil.InsertCursorKV(t, db, "bubbleId:chat1:b1", `not json`)

	bubbles, err := loadCursorBubbles(db)
	if err != nil {
		t.Fatalf("loadCursorBubbles() error = %v", err)
	}
	if len(bubbles) != 0 {
		t.Errorf("expected malformed bubble to be skipped, got %d", len(bubbles))
	}
}
