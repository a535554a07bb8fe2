package cacheproxy

import (
	"container/list"
	"sync"
	"time"
)

// contentValue is the cached payload for a successful content retrieval: the
// raw bytes plus the subset of response headers later needed to determine
// charset and mimetype.
type contentValue struct {
	Headers map[string]string
	Body    []byte
}

// contentCache maps a URL string to a cached response body, evicting
// least-recently-used entries by total memory footprint rather than by
// entry count — hashicorp/golang-lru only evicts by count, so this cache
// tracks its own recency list and memory accounting, matching the original
// implementation's deque-based recency tracking.
type contentCache struct {
	entries  map[string]*list.Element
	recency  *list.List
	cfg      Configuration
	mu       sync.Mutex
	usedBytes int64
}

type contentRecord struct {
	key   string
	entry entry[contentValue]
}

func newContentCache(cfg Configuration) *contentCache {
	return &contentCache{
		entries: make(map[string]*list.Element),
		recency: list.New(),
		cfg:     cfg,
	}
}

func (c *contentCache) access(url string, now time.Time) (Result[contentValue], bool) {
	if c.cfg.ContentMemoryMax <= 0 {
		return Result[contentValue]{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[url]
	if !ok {
		return Result[contentValue]{}, false
	}

	rec := elem.Value.(*contentRecord) //nolint:forcetypeassert

	if rec.entry.expired(now) {
		c.removeLocked(elem)
		return Result[contentValue]{}, false
	}

	c.recency.MoveToFront(elem)

	return rec.entry.result, true
}

func (c *contentCache) store(url string, result Result[contentValue], now time.Time) {
	if c.cfg.ContentMemoryMax <= 0 {
		return
	}

	ttl := determineTTL(c.cfg, result.IsError())
	size := memoryUsage(result)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[url]; ok {
		c.removeLocked(elem)
	}

	rec := &contentRecord{key: url, entry: entry[contentValue]{
		result:    result,
		stored:    now,
		ttl:       ttl,
		sizeBytes: size,
	}}

	elem := c.recency.PushFront(rec)
	c.entries[url] = elem
	c.usedBytes += size

	for c.usedBytes > c.cfg.ContentMemoryMax && c.recency.Len() > 0 {
		oldest := c.recency.Back()
		c.removeLocked(oldest)
	}
}

// removeLocked removes elem from the recency list and the entries map,
// decrementing the tracked memory usage. Callers must hold c.mu.
func (c *contentCache) removeLocked(elem *list.Element) {
	rec := elem.Value.(*contentRecord) //nolint:forcetypeassert
	delete(c.entries, rec.key)
	c.recency.Remove(elem)
	c.usedBytes -= rec.entry.sizeBytes
}

// memoryUsage estimates a content cache entry's footprint: body size plus a
// fixed per-entry overhead, or a fixed assumed size for cached errors.
func memoryUsage(result Result[contentValue]) int64 {
	if result.IsError() {
		return errorAssumedSizeBytes
	}

	return int64(len(result.Value.Body)) + contentEntryOverheadBytes
}
