package testutil

import (
	"bytes"
	"os"
	"testing"
)

func TestWriteAndLoadFixture(t *testing.T) {
	dir := CreateTempDir(t)
	defer os.RemoveAll(dir)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}

	WriteFixture(t, "sample.json", []byte(`{"ok":true}`))
	got := LoadFixture(t, "sample.json")
	if !bytes.Equal(got, []byte(`{"ok":true}`)) {
		t.Errorf("got %q, want %q", got, `{"ok":true}`)
	}
}

func TestJSONMarshalUnmarshalRoundTrip(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	data := JSONMarshal(t, payload{Name: "cass"})

	var decoded payload
	JSONUnmarshal(t, data, &decoded)
	if decoded.Name != "cass" {
		t.Errorf("decoded.Name = %q, want cass", decoded.Name)
	}
}
