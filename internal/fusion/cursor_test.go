package fusion

import "testing"

func TestEncodeDecodeCursorRoundTrip(t *testing.T) {
	token := EncodeCursor("0.75", "hash\x00src", 42)
	sortKey, id, err := DecodeCursor(token, 42)
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if sortKey != "0.75" || id != "hash\x00src" {
		t.Errorf("DecodeCursor() = (%q, %q), want (0.75, hash\\x00src)", sortKey, id)
	}
}

func TestDecodeCursorRejectsStaleGeneration(t *testing.T) {
	token := EncodeCursor("0.5", "id", 1)
	if _, _, err := DecodeCursor(token, 2); err != ErrCursorInvalid {
		t.Errorf("DecodeCursor() error = %v, want ErrCursorInvalid", err)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeCursor("not-a-real-cursor!!", 1); err != ErrCursorInvalid {
		t.Errorf("DecodeCursor() error = %v, want ErrCursorInvalid", err)
	}
}

func TestPaginate(t *testing.T) {
	candidates := []Candidate{
		{SourcePath: "a", ContentHash: "h1", SourceID: "s"},
		{SourcePath: "b", ContentHash: "h2", SourceID: "s"},
		{SourcePath: "c", ContentHash: "h3", SourceID: "s"},
	}
	sortKeyOf := func(c Candidate) string { return c.SourcePath }

	page1, next := Paginate(candidates, sortKeyOf, "", "", 2, 7)
	if len(page1) != 2 || page1[0].SourcePath != "a" || page1[1].SourcePath != "b" {
		t.Fatalf("Paginate() page1 = %+v", page1)
	}
	if next == "" {
		t.Fatal("Paginate() expected a next cursor for a partial result")
	}

	sortKey, id, err := DecodeCursor(next, 7)
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	page2, next2 := Paginate(candidates, sortKeyOf, sortKey, id, 2, 7)
	if len(page2) != 1 || page2[0].SourcePath != "c" {
		t.Fatalf("Paginate() page2 = %+v", page2)
	}
	if next2 != "" {
		t.Errorf("Paginate() next2 = %q, want empty at end of results", next2)
	}
}
