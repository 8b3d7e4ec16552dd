package query

import (
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cass-search/cass/internal/fts"
)

// Entry is one cached query result, carrying the bloom mask used to
// soundly reject cache hits when a subsequent query strictly extends the
// cached one with a new token.
type Entry struct {
	Hits []Scored
	Docs map[string]fts.Hit
	Mask uint64
	Size int // approximate byte size, counted against the cache's byte ceiling
}

// Stats exposes the cache's hit/miss/shortfall/reload counters per §4.G.
type Stats struct {
	Hits       int64
	Misses     int64
	Shortfalls int64
	Reloads    int64
}

// Cache is a sharded LRU with a byte ceiling, keyed by (query, filters,
// ranking). Sharded by fnv32a(key) % numShards so lock contention is
// spread across shards, matching the bounded-generic-cache idiom of
// hashicorp/golang-lru/v2.
type Cache struct {
	shards    []*lru.Cache[string, *Entry]
	shardCap  int
	byteCap   int64
	usedBytes atomic.Int64

	hits, misses, shortfalls, reloads atomic.Int64
	mu                                sync.Mutex
}

// New builds a Cache with numShards = totalCap / shardCap, per §4.G's
// default 256-per-shard / 2048-total sizing.
func New(shardCap, totalCap int, byteCap int64) (*Cache, error) {
	if shardCap <= 0 {
		shardCap = 256
	}
	if totalCap <= 0 {
		totalCap = 2048
	}
	numShards := totalCap / shardCap
	if numShards < 1 {
		numShards = 1
	}
	c := &Cache{shardCap: shardCap, byteCap: byteCap}
	for i := 0; i < numShards; i++ {
		shard, err := lru.New[string, *Entry](shardCap)
		if err != nil {
			return nil, err
		}
		c.shards = append(c.shards, shard)
	}
	return c, nil
}

func (c *Cache) shardFor(key string) *lru.Cache[string, *Entry] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Key builds the cache key from the tuple §4.G specifies: (query,
// filters, ranking).
func Key(queryString, filtersKey string, mode Mode) string {
	return queryString + "\x00" + filtersKey + "\x00" + string(mode)
}

// Get looks up key. If the entry's bloom mask doesn't contain every token
// hash of extendTokens (the tokens added since the cached query, if any),
// the entry is rejected as a shortfall rather than returned stale.
func (c *Cache) Get(key string, extendTokens []string) (*Entry, bool) {
	entry, ok := c.shardFor(key).Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	for _, tok := range extendTokens {
		if entry.Mask&tokenBit(tok) == 0 {
			c.shortfalls.Add(1)
			return nil, false
		}
	}
	c.hits.Add(1)
	return entry, true
}

// Put inserts an entry, evicting older entries within its shard per LRU
// policy if needed; when the running total exceeds byteCap, byte-ceiling
// enforcement removes the least-recently-used entry of each non-empty
// shard in turn until the total is back under byteCap.
func (c *Cache) Put(key string, entry *Entry) {
	c.shardFor(key).Add(key, entry)
	c.usedBytes.Add(int64(entry.Size))
	if c.byteCap > 0 && c.usedBytes.Load() > c.byteCap {
		c.evictOverflow()
	}
}

func (c *Cache) evictOverflow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.usedBytes.Load() > c.byteCap {
		evictedAny := false
		for _, shard := range c.shards {
			if shard.Len() == 0 {
				continue
			}
			_, entry, ok := shard.RemoveOldest()
			if ok {
				c.usedBytes.Add(-int64(entry.Size))
				evictedAny = true
			}
		}
		if !evictedAny {
			return
		}
	}
}

// InvalidateAll clears every shard.
func (c *Cache) InvalidateAll() {
	for _, shard := range c.shards {
		shard.Purge()
	}
	c.usedBytes.Store(0)
	c.reloads.Add(1)
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Shortfalls: c.shortfalls.Load(),
		Reloads:    c.reloads.Load(),
	}
}

// BuildMask computes the 64-bit bloom mask over a query's token hashes.
func BuildMask(tokens []string) uint64 {
	var mask uint64
	for _, tok := range tokens {
		mask |= tokenBit(tok)
	}
	return mask
}

func tokenBit(tok string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(tok)))
	return 1 << (h.Sum64() % 64)
}
