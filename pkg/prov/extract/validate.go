// Package extract provides the shared result-validation and bounded-gather
// helpers used by every structure processor's extract_contents operation:
// a fixed-size concurrency bound for per-object fetches, and the
// meaningful-results threshold check.
package extract

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/emcd/librovore/pkg/model"
)

// MinimumMeaningfulRatio is the named constant backing the "10% meaningful
// results" threshold for ContentExtractFailure, consistent across all
// structure processors.
const MinimumMeaningfulRatio = 0.10

// DefaultConcurrency bounds how many per-object page fetches run at once
// during a single extract_contents call.
const DefaultConcurrency = 8

// Gather runs fn(objects[i]) for every index concurrently, bounded by
// DefaultConcurrency, collecting non-nil results in input order. A per-object
// error is passed to onError (typically a debug log) and that object is
// simply omitted — it never aborts the batch.
func Gather[T any](
	ctx context.Context,
	objects []model.InventoryObject,
	concurrency int,
	fn func(context.Context, model.InventoryObject) (T, bool, error),
	onError func(model.InventoryObject, error),
) []T {
	if len(objects) == 0 {
		return nil
	}

	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	results := make([]*T, len(objects))

	done := make(chan struct{}, len(objects))

	for i, obj := range objects {
		i, obj := i, obj

		go func() {
			defer func() { done <- struct{}{} }()

			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			value, ok, err := fn(ctx, obj)
			if err != nil {
				if onError != nil {
					onError(obj, err)
				}

				return
			}

			if !ok {
				return
			}

			results[i] = &value
		}()
	}

	for range objects {
		<-done
	}

	out := make([]T, 0, len(objects))

	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	return out
}

// ValidateResults applies the shared result-validation rule: zero documents
// from a non-empty request raises StructureIncompatibility; a meaningful
// ratio below MinimumMeaningfulRatio raises ContentExtractFailure.
func ValidateResults(processorName, source string, requested int, docs []model.ContentDocument) error {
	if requested == 0 {
		return nil
	}

	meaningful := 0

	for _, d := range docs {
		if d.Meaningful() {
			meaningful++
		}
	}

	if meaningful == 0 {
		return &model.StructureIncompatibility{ProcessorName: processorName, Source: source}
	}

	if float64(meaningful)/float64(requested) < MinimumMeaningfulRatio {
		return &model.ContentExtractFailure{
			ProcessorName:     processorName,
			Source:            source,
			MeaningfulResults: meaningful,
			RequestedObjects:  requested,
		}
	}

	return nil
}
