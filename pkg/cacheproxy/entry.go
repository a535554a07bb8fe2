package cacheproxy

import "time"

// Result holds either a successful value or the error that replaced it, the
// way the cache proxy's three caches store outcomes rather than raising
// directly from a cache lookup.
type Result[T any] struct {
	Err   error
	Value T
}

// IsError reports whether this Result wraps a failure.
func (r Result[T]) IsError() bool { return r.Err != nil }

// entry is the generic cache record: a Result plus the bookkeeping needed to
// decide whether it is still fresh.
type entry[T any] struct {
	stored    time.Time
	result    Result[T]
	ttl       time.Duration
	sizeBytes int64
}

// expired reports whether the entry is older than its TTL as of now.
func (e entry[T]) expired(now time.Time) bool {
	return now.Sub(e.stored) > e.ttl
}

// determineTTL picks success_ttl or error_ttl depending on whether the result
// carries a value or an error, matching the original's determine_ttl.
func determineTTL(cfg Configuration, isError bool) time.Duration {
	if isError {
		return cfg.ErrorTTL
	}

	return cfg.SuccessTTL
}
