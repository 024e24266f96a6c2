package search

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// sweepAt is the entry count above which expired entries are dropped on write.
const sweepAt = 256

type cacheEntry struct {
	query   string
	results []Result
	at      time.Time
}

// resultCache maps a lower-cased query to its ranked results.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uint64]cacheEntry
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{ttl: ttl, entries: make(map[uint64]cacheEntry)}
}

func (c *resultCache) get(query string, now time.Time) ([]Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[xxhash.Sum64String(query)]
	if !ok || e.query != query || now.Sub(e.at) >= c.ttl {
		return nil, false
	}
	return append([]Result(nil), e.results...), true
}

func (c *resultCache) put(query string, results []Result, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= sweepAt {
		for k, e := range c.entries {
			if now.Sub(e.at) >= c.ttl {
				delete(c.entries, k)
			}
		}
	}
	c.entries[xxhash.Sum64String(query)] = cacheEntry{
		query:   query,
		results: append([]Result(nil), results...),
		at:      now,
	}
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
