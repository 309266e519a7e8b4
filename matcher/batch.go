package matcher

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/kwiles/songferry/model"
)

const defaultWorkers = 4

// Batcher applies the matcher across a list of source tracks with a
// bounded worker pool, pacing external calls to respect third-party rate
// limits and reporting progress as items complete.
type Batcher struct {
	Search   SearchFunc
	Selector Selector
	Config   model.MatchConfig

	// ExistingIDs is a snapshot of target-platform identifiers already
	// present at the destination, taken once before the batch begins.
	ExistingIDs map[string]struct{}

	// Workers bounds the number of in-flight source tracks; zero means
	// defaultWorkers.
	Workers int

	// Limiter, when set, paces every outgoing search call.
	Limiter *rate.Limiter

	// OnProgress, when set, is invoked after each completed item with a
	// monotonically increasing completed count.
	OnProgress func(completed, total int)
}

// MatchAll produces exactly one MatchResult per source track, in input
// order regardless of completion order. A single item's failure is
// recorded as that item's not_found result with a logged cause, never
// rethrown to the pool. Cancellation aborts the whole batch: the context
// error is returned and no partial results are.
func (b *Batcher) MatchAll(ctx context.Context, sources []model.Track) ([]model.MatchResult, error) {
	if err := b.Config.Validate(); err != nil {
		return nil, err
	}

	workers := b.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	search := b.pacedSearch()
	results := make([]model.MatchResult, len(sources))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)

	jobs := make(chan int)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Check cancellation before starting a new unit of work
				if ctx.Err() != nil {
					return
				}

				results[i] = b.matchOne(ctx, sources[i], search)

				mu.Lock()
				completed++
				if b.OnProgress != nil {
					b.OnProgress(completed, len(sources))
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for i := range sources {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Batcher) matchOne(ctx context.Context, source model.Track, search SearchFunc) model.MatchResult {
	result, err := MatchTrack(ctx, source, search, b.Selector, b.Config)
	if err != nil {
		slog.Warn("Search failed, recording track as not found", "artist", source.Artist, "title", source.Title, "error", err)
		return model.MatchResult{Source: source, Status: model.StatusNotFound}
	}

	// A technically-good match that is already at the destination must
	// not be re-added
	if result.Target != nil && result.Status != model.StatusNotFound {
		if _, ok := b.ExistingIDs[result.Target.ID]; ok {
			result.Status = model.StatusAlreadyExists
			result.ExistingID = result.Target.ID
		}
	}

	return result
}

func (b *Batcher) pacedSearch() SearchFunc {
	if b.Limiter == nil {
		return b.Search
	}
	return func(ctx context.Context, query string) ([]model.Track, error) {
		if err := b.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return b.Search(ctx, query)
	}
}

// Deduplicate walks a completed result list in order and rewrites every
// later result claiming an already-claimed target identifier to
// already_exists. Two different source tracks can independently
// fuzzy-match the same target, for example two differently tagged uploads
// of one song; only the first claim keeps its status. The pass is pure
// and idempotent, and never touches not_found results: their attached
// target is diagnostic only.
func Deduplicate(results []model.MatchResult) []model.MatchResult {
	out := make([]model.MatchResult, len(results))
	copy(out, results)

	seen := make(map[string]struct{})
	for i := range out {
		result := &out[i]
		if result.Target == nil || result.Status == model.StatusNotFound {
			continue
		}

		if _, claimed := seen[result.Target.ID]; claimed {
			if result.Status == model.StatusMatched || result.Status == model.StatusLowConfidence {
				result.Status = model.StatusAlreadyExists
				result.ExistingID = result.Target.ID
			}
			continue
		}
		seen[result.Target.ID] = struct{}{}
	}

	return out
}
