package model

import "testing"

func TestNormalizeTimestampMagnitude(t *testing.T) {
	cases := []struct {
		name string
		raw  int64
		want int64
	}{
		{"ten digit seconds", 1700000000, 1700000000000},
		{"thirteen digit ms", 1700000000000, 1700000000000},
		{"zero", 0, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := NormalizeTimestampMagnitude(c.raw); got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestParseTimestampFieldISO(t *testing.T) {
	ms, ok := ParseTimestampField("2023-11-14T22:13:20Z")
	if !ok {
		t.Fatal("expected ok")
	}
	if ms != 1700000000000 {
		t.Errorf("got %d, want 1700000000000", ms)
	}
}

func TestParseTimestampFieldEmpty(t *testing.T) {
	if _, ok := ParseTimestampField(""); ok {
		t.Error("expected empty string to fail")
	}
}
