package market

import (
	"sync"
	"time"
)

type cacheKey struct {
	symbol    string
	timeframe Timeframe
	lookback  int
}

type cacheEntry struct {
	storedAt time.Time
	series   Series
}

// cache is a time-keyed map (symbol, timeframe, lookback) -> (storedAt,
// Series) with lazy eviction on lookup and bulk clear on close. It runs no
// background threads; staleness is only checked when a caller asks.
type cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
	now     func() time.Time
}

func newCache(ttl time.Duration) *cache {
	return &cache{
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
		now:     time.Now,
	}
}

func (c *cache) get(symbol string, timeframe Timeframe, lookback int) (Series, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{symbol, timeframe, lookback}
	entry, ok := c.entries[key]
	if !ok {
		return Series{}, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return Series{}, false
	}
	return entry.series, true
}

func (c *cache) put(symbol string, timeframe Timeframe, lookback int, series Series) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{symbol, timeframe, lookback}] = cacheEntry{storedAt: c.now(), series: series}
}

func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}
