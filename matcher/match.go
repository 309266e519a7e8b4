package matcher

import (
	"context"

	"github.com/kwiles/songferry/model"
)

// SearchFunc is the candidate search gateway the engine consumes: given
// a text query, return candidate tracks on the target platform. The
// platform-specific fetch and transform is the adapter's job.
type SearchFunc func(ctx context.Context, query string) ([]model.Track, error)

// fastPathConfidence is pinned on identifier-based matches, so a score of
// 0.99 or below always means the match came from fuzzy comparison
const fastPathConfidence = 0.99

// Selection is a strategy's choice among a candidate list. Index is -1
// when no candidate is usable.
type Selection struct {
	Index      int
	Confidence float64
	Reasoning  string
}

// Selector picks the best candidate for a source track. Implementations
// never fail: a degraded decision is expressed through the returned
// Selection, not through a panic or error.
type Selector interface {
	Select(ctx context.Context, source model.Track, candidates []model.Track) Selection
}

// FuzzySelector is the deterministic strategy: it scores every candidate
// and keeps the running best. Ties go to the first candidate seen, since
// search-result order carries no similarity guarantee worth re-ranking.
type FuzzySelector struct {
	Config model.MatchConfig
}

func (s FuzzySelector) Select(_ context.Context, source model.Track, candidates []model.Track) Selection {
	best := Selection{Index: -1}
	for i := range candidates {
		score := Score(source, candidates[i], s.Config)
		if best.Index == -1 || score > best.Confidence {
			best = Selection{Index: i, Confidence: score}
		}
	}
	return best
}

var _ Selector = FuzzySelector{}

// MatchTrack decides which candidate on the target platform, if any,
// represents the same song as source, and classifies the decision.
//
// A source carrying an ISRC tries an identifier search first; a hit is
// authoritative and skips fuzzy scoring entirely, with confidence pinned
// at fastPathConfidence. Identifier-search failures are swallowed and the
// general path is tried next. General-path search failures propagate to
// the caller: there is no fallback left to try.
//
// Ordinary no-result conditions are values, not errors: an empty
// candidate list or a below-threshold best score both come back as
// StatusNotFound, the latter with the best candidate attached for
// visibility.
func MatchTrack(ctx context.Context, source model.Track, search SearchFunc, sel Selector, cfg model.MatchConfig) (model.MatchResult, error) {
	if source.ISRC != "" {
		if candidates, err := search(ctx, source.ISRC); err == nil && len(candidates) > 0 {
			target := candidates[0]
			return model.MatchResult{
				Source:     source,
				Target:     &target,
				Confidence: fastPathConfidence,
				Status:     model.StatusMatched,
			}, nil
		}
	}

	candidates, err := search(ctx, BuildSearchQuery(source))
	if err != nil {
		return model.MatchResult{}, err
	}
	if len(candidates) == 0 {
		return model.MatchResult{Source: source, Status: model.StatusNotFound}, nil
	}

	selection := sel.Select(ctx, source, candidates)
	if selection.Index < 0 || selection.Index >= len(candidates) {
		return model.MatchResult{Source: source, Status: model.StatusNotFound}, nil
	}

	target := candidates[selection.Index]
	result := model.MatchResult{
		Source:     source,
		Target:     &target,
		Confidence: selection.Confidence,
	}

	switch {
	case selection.Confidence < cfg.LowConfidenceThreshold:
		result.Status = model.StatusNotFound
	case selection.Confidence >= cfg.HighConfidenceThreshold:
		result.Status = model.StatusMatched
	default:
		result.Status = model.StatusLowConfidence
	}

	return result, nil
}
