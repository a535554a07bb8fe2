package cacheproxy

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// probeCache maps a URL string to a cached existence check, evicting the
// least-recently-used entry once the configured entry count is exceeded.
type probeCache struct {
	backing *lru.Cache[string, entry[bool]]
	cfg     Configuration
	mu      sync.Mutex
}

func newProbeCache(cfg Configuration) *probeCache {
	size := cfg.ProbeEntriesMax
	if size <= 0 {
		size = 1
	}

	backing, err := lru.New[string, entry[bool]](size)
	if err != nil {
		panic("cacheproxy: invalid probe cache size: " + err.Error())
	}

	return &probeCache{backing: backing, cfg: cfg}
}

// access returns the cached Result for url if present and unexpired.
func (c *probeCache) access(url string, now time.Time) (Result[bool], bool) {
	if c.cfg.ProbeEntriesMax <= 0 {
		return Result[bool]{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.backing.Get(url)
	if !ok {
		return Result[bool]{}, false
	}

	if e.expired(now) {
		c.backing.Remove(url)
		return Result[bool]{}, false
	}

	return e.result, true
}

// store records a fresh Result for url, computing its TTL from whether the
// result is a success or an error.
func (c *probeCache) store(url string, result Result[bool], now time.Time) {
	if c.cfg.ProbeEntriesMax <= 0 {
		return
	}

	ttl := determineTTL(c.cfg, result.IsError())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.backing.Add(url, entry[bool]{result: result, stored: now, ttl: ttl})
}
