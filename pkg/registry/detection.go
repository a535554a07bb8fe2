package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emcd/librovore/pkg/absent"
	"github.com/emcd/librovore/pkg/model"
)

// DetectionCache keeps per-source detection results with a configurable TTL,
// letting repeated queries against the same source reuse the first caller's
// probe instead of re-running every registered processor's Detect.
type DetectionCache struct {
	entries map[string]detectionCacheEntry
	mu      sync.Mutex
	ttl     time.Duration
}

type detectionCacheEntry struct {
	stored     time.Time
	detections map[string]model.Detection
}

// NewDetectionCache constructs a DetectionCache with the given TTL (defaults
// to one hour if ttl <= 0).
func NewDetectionCache(ttl time.Duration) *DetectionCache {
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &DetectionCache{entries: make(map[string]detectionCacheEntry), ttl: ttl}
}

func (c *DetectionCache) accessDetections(source string, now time.Time) absent.Value[map[string]model.Detection] {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[source]
	if !ok {
		return absent.Absent[map[string]model.Detection]()
	}

	if now.Sub(e.stored) > c.ttl {
		delete(c.entries, source)
		return absent.Absent[map[string]model.Detection]()
	}

	return absent.Of(e.detections)
}

func (c *DetectionCache) addEntry(source string, detections map[string]model.Detection, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[source] = detectionCacheEntry{detections: detections, stored: now}
}

// bestDetection picks the highest-confidence entry strictly greater than
// zero, ties broken by processor registration order.
func bestDetection(detections map[string]model.Detection, order []string) absent.Value[model.Detection] {
	var (
		best    model.Detection
		haveOne bool
	)

	for _, name := range order {
		d, ok := detections[name]
		if !ok || d.Confidence <= 0 {
			continue
		}

		if !haveOne || d.Confidence > best.Confidence {
			best = d
			haveOne = true
		}
	}

	if !haveOne {
		return absent.Absent[model.Detection]()
	}

	return absent.Of(best)
}

// DetermineInventoryOptimal runs the optimal-processor-selection algorithm
// for inventory processors against source, using cache and reg.
func DetermineInventoryOptimal(ctx context.Context, cache *DetectionCache, reg *Registry, source string) (absent.Value[model.Detection], error) {
	order := reg.InventoryNames()

	if cached := cache.accessDetections("inventory:"+source, time.Now()); cached.IsPresent() {
		detections, _ := cached.Get()
		return bestDetection(detections, order), nil
	}

	detections := executeInventoryDetectors(ctx, reg, source)
	cache.addEntry("inventory:"+source, detections, time.Now())

	return bestDetection(detections, order), nil
}

// DetermineStructureOptimal runs the same algorithm for structure processors.
func DetermineStructureOptimal(ctx context.Context, cache *DetectionCache, reg *Registry, source string) (absent.Value[model.Detection], error) {
	order := reg.StructureNames()

	if cached := cache.accessDetections("structure:"+source, time.Now()); cached.IsPresent() {
		detections, _ := cached.Get()
		return bestDetection(detections, order), nil
	}

	detections := executeStructureDetectors(ctx, reg, source)
	cache.addEntry("structure:"+source, detections, time.Now())

	return bestDetection(detections, order), nil
}

// DetectNamed invokes exactly the named processor, skipping the cache and
// the confidence-ranked selection entirely, for callers that already know
// which processor they want.
func DetectNamed(ctx context.Context, reg *Registry, kind model.DetectionKind, name, source string) (model.Detection, error) {
	switch kind {
	case model.DetectionKindInventory:
		p, err := reg.InventoryProcessor(name)
		if err != nil {
			return model.Detection{}, err
		}

		return p.Detect(ctx, source)
	case model.DetectionKindStructure:
		p, err := reg.StructureProcessorNamed(name)
		if err != nil {
			return model.Detection{}, err
		}

		return p.Detect(ctx, source)
	default:
		return model.Detection{}, &model.ProcessorInavailability{Name: name}
	}
}

func executeInventoryDetectors(ctx context.Context, reg *Registry, source string) map[string]model.Detection {
	results := make(map[string]model.Detection)

	var (
		mu sync.Mutex
		eg errgroup.Group
	)

	for name, p := range reg.AllInventory() {
		name, p := name, p

		eg.Go(func() error {
			detection, err := p.Detect(ctx, source)
			if err != nil {
				slog.DebugContext(ctx, "inventory detection failed", "processor", name, "error", err)
				return nil
			}

			mu.Lock()
			results[name] = detection
			mu.Unlock()

			return nil
		})
	}

	_ = eg.Wait()

	return results
}

func executeStructureDetectors(ctx context.Context, reg *Registry, source string) map[string]model.Detection {
	results := make(map[string]model.Detection)

	var (
		mu sync.Mutex
		eg errgroup.Group
	)

	for name, p := range reg.AllStructure() {
		name, p := name, p

		eg.Go(func() error {
			detection, err := p.Detect(ctx, source)
			if err != nil {
				slog.DebugContext(ctx, "structure detection failed", "processor", name, "error", err)
				return nil
			}

			mu.Lock()
			results[name] = detection
			mu.Unlock()

			return nil
		})
	}

	_ = eg.Wait()

	return results
}
