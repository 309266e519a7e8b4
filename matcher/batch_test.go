package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwiles/songferry/model"
)

func batchSources(n int) []model.Track {
	tracks := make([]model.Track, n)
	for i := range tracks {
		tracks[i] = model.Track{
			ID:         fmt.Sprintf("source-%d", i),
			Title:      fmt.Sprintf("Song %d", i),
			Artist:     fmt.Sprintf("Artist %d", i),
			DurationMs: 180000 + i,
		}
	}
	return tracks
}

// echoSearch returns a single candidate mirroring the query, so every
// source matches a predictable, distinct target
func echoSearch(ctx context.Context, query string) ([]model.Track, error) {
	return []model.Track{{ID: "target:" + query, Title: query, Artist: query}}, nil
}

func TestMatchAllPreservesOrder(t *testing.T) {
	sources := batchSources(50)

	batcher := &Batcher{
		Search:   echoSearch,
		Selector: staticSelector{Selection{Index: 0, Confidence: 0.9}},
		Config:   model.DefaultMatchConfig(),
		Workers:  8,
	}

	results, err := batcher.MatchAll(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, results, len(sources))

	for i, result := range results {
		assert.Equal(t, sources[i].ID, result.Source.ID, "result %d must correspond to input %d", i, i)
		assert.Equal(t, model.StatusMatched, result.Status)
	}
}

func TestMatchAllProgressIsMonotonic(t *testing.T) {
	sources := batchSources(20)

	var (
		mu    sync.Mutex
		calls []int
	)

	batcher := &Batcher{
		Search:   echoSearch,
		Selector: staticSelector{Selection{Index: 0, Confidence: 0.9}},
		Config:   model.DefaultMatchConfig(),
		Workers:  4,
		OnProgress: func(completed, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, len(sources), total)
			calls = append(calls, completed)
		},
	}

	_, err := batcher.MatchAll(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, calls, len(sources))
	for i, completed := range calls {
		assert.Equal(t, i+1, completed)
	}
}

func TestMatchAllExistingIDsOverride(t *testing.T) {
	sources := batchSources(3)

	batcher := &Batcher{
		Search:   echoSearch,
		Selector: staticSelector{Selection{Index: 0, Confidence: 0.9}},
		Config:   model.DefaultMatchConfig(),
		ExistingIDs: map[string]struct{}{
			"target:artist 1 song 1": {},
		},
	}

	results, err := batcher.MatchAll(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, model.StatusMatched, results[0].Status)
	assert.Equal(t, model.StatusAlreadyExists, results[1].Status)
	assert.Equal(t, "target:artist 1 song 1", results[1].ExistingID)
	assert.Equal(t, model.StatusMatched, results[2].Status)
}

func TestMatchAllItemFailureDoesNotAbortBatch(t *testing.T) {
	sources := batchSources(3)

	batcher := &Batcher{
		Search: func(ctx context.Context, query string) ([]model.Track, error) {
			if query == BuildSearchQuery(sources[1]) {
				return nil, errors.New("transient vendor error")
			}
			return echoSearch(ctx, query)
		},
		Selector: staticSelector{Selection{Index: 0, Confidence: 0.9}},
		Config:   model.DefaultMatchConfig(),
	}

	results, err := batcher.MatchAll(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, model.StatusMatched, results[0].Status)
	assert.Equal(t, model.StatusNotFound, results[1].Status)
	assert.Nil(t, results[1].Target)
	assert.Equal(t, model.StatusMatched, results[2].Status)
}

func TestMatchAllCancellation(t *testing.T) {
	sources := batchSources(100)
	ctx, cancel := context.WithCancel(context.Background())

	var completed int32
	batcher := &Batcher{
		Search: func(ctx context.Context, query string) ([]model.Track, error) {
			cancel()
			return echoSearch(ctx, query)
		},
		Selector: staticSelector{Selection{Index: 0, Confidence: 0.9}},
		Config:   model.DefaultMatchConfig(),
		Workers:  2,
		OnProgress: func(c, total int) {
			completed = int32(c)
		},
	}

	results, err := batcher.MatchAll(ctx, sources)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
	assert.Less(t, int(completed), len(sources))
}

func TestMatchAllInvalidConfig(t *testing.T) {
	cfg := model.DefaultMatchConfig()
	cfg.TitleWeight = -1

	batcher := &Batcher{
		Search:   echoSearch,
		Selector: staticSelector{Selection{Index: 0, Confidence: 0.9}},
		Config:   cfg,
	}

	_, err := batcher.MatchAll(context.Background(), batchSources(1))
	assert.Error(t, err)
}

func TestDeduplicate(t *testing.T) {
	target := &model.Track{ID: "shared-target", Title: "Song", Artist: "Artist"}
	other := &model.Track{ID: "other-target", Title: "Other", Artist: "Artist"}

	results := []model.MatchResult{
		{Source: model.Track{ID: "a"}, Target: target, Confidence: 0.95, Status: model.StatusMatched},
		{Source: model.Track{ID: "b"}, Target: other, Confidence: 0.90, Status: model.StatusMatched},
		{Source: model.Track{ID: "c"}, Target: target, Confidence: 0.91, Status: model.StatusMatched},
		{Source: model.Track{ID: "d"}, Target: target, Confidence: 0.60, Status: model.StatusLowConfidence},
		{Source: model.Track{ID: "e"}, Target: target, Confidence: 0.30, Status: model.StatusNotFound},
		{Source: model.Track{ID: "f"}, Status: model.StatusNotFound},
	}

	deduped := Deduplicate(results)

	// First claim wins; later claims of the same target are rewritten
	assert.Equal(t, model.StatusMatched, deduped[0].Status)
	assert.Equal(t, model.StatusMatched, deduped[1].Status)
	assert.Equal(t, model.StatusAlreadyExists, deduped[2].Status)
	assert.Equal(t, "shared-target", deduped[2].ExistingID)
	assert.Equal(t, model.StatusAlreadyExists, deduped[3].Status)
	assert.Equal(t, "shared-target", deduped[3].ExistingID)

	// A not_found's attached target is diagnostic and never claims anything
	assert.Equal(t, model.StatusNotFound, deduped[4].Status)
	assert.Empty(t, deduped[4].ExistingID)
	assert.Equal(t, model.StatusNotFound, deduped[5].Status)

	// The input is left untouched
	assert.Equal(t, model.StatusMatched, results[2].Status)

	// Applying the pass twice changes nothing further
	assert.Equal(t, deduped, Deduplicate(deduped))
}
