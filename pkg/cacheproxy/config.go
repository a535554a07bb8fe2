package cacheproxy

import "time"

// Configuration holds the tunables for the three caches backing Proxy.
// Defaults mirror the original implementation's CacheConfiguration.
type Configuration struct {
	SuccessTTL        time.Duration
	ErrorTTL          time.Duration
	ProbeDurationMax  time.Duration
	RetrieveDuration  time.Duration
	RobotsDuration    time.Duration
	UserAgent         string
	ProbeEntriesMax   int
	ContentMemoryMax  int64
	RobotsEntriesMax  int
}

// DefaultConfiguration returns the configuration used when none is supplied.
func DefaultConfiguration() Configuration {
	return Configuration{
		SuccessTTL:       300 * time.Second,
		ErrorTTL:         30 * time.Second,
		ProbeEntriesMax:  1000,
		ContentMemoryMax: 32 * 1024 * 1024,
		RobotsEntriesMax: 256,
		ProbeDurationMax: 10 * time.Second,
		RetrieveDuration: 30 * time.Second,
		RobotsDuration:   2500 * time.Millisecond,
		UserAgent:        "librovore/1.0 (+documentation search)",
	}
}

// contentEntryOverheadBytes is the fixed per-entry accounting overhead added
// to every content-cache entry's measured body size, matching the original
// cache proxy's memory accounting.
const contentEntryOverheadBytes = 100

// errorAssumedSizeBytes is the assumed size of a cached error result, since
// errors carry no body to measure.
const errorAssumedSizeBytes = 100
