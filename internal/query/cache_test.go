package query

import "testing"

func TestCacheGetMissThenHit(t *testing.T) {
	c, err := New(4, 4, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	key := Key("hello", "", ModeBalanced)

	if _, ok := c.Get(key, nil); ok {
		t.Fatalf("Get() on empty cache reported a hit")
	}

	entry := &Entry{Hits: []Scored{{SourcePath: "/a", MsgIdx: 0}}, Mask: BuildMask([]string{"hello"}), Size: 8}
	c.Put(key, entry)

	got, ok := c.Get(key, nil)
	if !ok {
		t.Fatal("expected a hit after Put()")
	}
	if len(got.Hits) != 1 || got.Hits[0].SourcePath != "/a" {
		t.Errorf("Get() = %+v, want the entry just Put", got)
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 1 {
		t.Errorf("Stats() = %+v, want 1 miss and 1 hit", stats)
	}
}

func TestCacheGetShortfallOnExtendedQuery(t *testing.T) {
	c, err := New(4, 4, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	key := Key("hello", "", ModeBalanced)
	c.Put(key, &Entry{Mask: BuildMask([]string{"hello"})})

	// A query extended with a token the cached entry's mask never saw must
	// be rejected as a shortfall rather than returned as a stale hit.
	if _, ok := c.Get(key, []string{"world"}); ok {
		t.Error("Get() with an unmasked extend token should not hit")
	}

	stats := c.Stats()
	if stats.Shortfalls != 1 {
		t.Errorf("Stats().Shortfalls = %d, want 1", stats.Shortfalls)
	}
}

func TestCacheGetHonorsMaskedExtendToken(t *testing.T) {
	c, err := New(4, 4, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	key := Key("hello world", "", ModeBalanced)
	c.Put(key, &Entry{Mask: BuildMask([]string{"hello", "world"})})

	if _, ok := c.Get(key, []string{"world"}); !ok {
		t.Error("Get() with an already-masked extend token should hit")
	}
}

func TestCacheInvalidateAllClearsEntriesAndCountsReload(t *testing.T) {
	c, err := New(4, 4, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	key := Key("hello", "", ModeBalanced)
	c.Put(key, &Entry{})

	c.InvalidateAll()

	if _, ok := c.Get(key, nil); ok {
		t.Error("expected InvalidateAll() to purge the entry")
	}
	if c.Stats().Reloads != 1 {
		t.Errorf("Stats().Reloads = %d, want 1", c.Stats().Reloads)
	}
}

func TestCacheEvictsOverflowUnderByteCap(t *testing.T) {
	c, err := New(2, 2, 10)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Put(Key("a", "", ModeBalanced), &Entry{Size: 6})
	c.Put(Key("b", "", ModeBalanced), &Entry{Size: 6})

	if _, ok := c.Get(Key("a", "", ModeBalanced), nil); ok {
		t.Error("expected the older entry to be evicted once usedBytes exceeded byteCap")
	}
	if _, ok := c.Get(Key("b", "", ModeBalanced), nil); !ok {
		t.Error("expected the newer entry to survive eviction")
	}
}

func TestBuildMaskIsOrderIndependent(t *testing.T) {
	a := BuildMask([]string{"foo", "bar"})
	b := BuildMask([]string{"bar", "foo"})
	if a != b {
		t.Errorf("BuildMask() order dependent: %d != %d", a, b)
	}
}

func TestBuildMaskIsCaseInsensitive(t *testing.T) {
	a := BuildMask([]string{"Hello"})
	b := BuildMask([]string{"hello"})
	if a != b {
		t.Errorf("BuildMask() case-sensitive: %d != %d", a, b)
	}
}
