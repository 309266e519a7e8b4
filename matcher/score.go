package matcher

import (
	"math"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/agnivade/levenshtein"

	"github.com/kwiles/songferry/model"
)

const (
	// exactFloor is the minimum sub-score for a normalized exact match,
	// regardless of what the fuzzy metric says
	exactFloor = 0.98

	// bothExactBonus is added when title and artist both match exactly
	bothExactBonus = 0.10

	// maxFuzzyScore caps fuzzy composites: 1.00 is reserved for
	// identifier-based fast-path matches
	maxFuzzyScore = 0.99
)

// Score computes the composite similarity between a source track and one
// candidate: a weighted sum of title, artist and duration sub-scores.
// The result is always within [0, 1].
//
// Titles are compared with a normalized Levenshtein ratio and artists
// with Jaro-Winkler; both metrics are symmetric, so Score(a, b) equals
// Score(b, a) for any configuration.
func Score(source, candidate model.Track, cfg model.MatchConfig) float64 {
	sourceTitle, candidateTitle := NormalizeTitle(source.Title), NormalizeTitle(candidate.Title)
	sourceArtist, candidateArtist := NormalizeArtist(source.Artist), NormalizeArtist(candidate.Artist)

	titleExact := sourceTitle == candidateTitle
	titleScore := levenshteinRatio(sourceTitle, candidateTitle)
	if titleExact && titleScore < exactFloor {
		titleScore = exactFloor
	}

	artistExact := sourceArtist == candidateArtist
	artistScore := strutil.Similarity(sourceArtist, candidateArtist, metrics.NewJaroWinkler())
	if artistExact && artistScore < exactFloor {
		artistScore = exactFloor
	}

	durationScore := durationSimilarity(source.DurationMs, candidate.DurationMs, cfg.DurationToleranceMs)

	composite := titleScore*cfg.TitleWeight + artistScore*cfg.ArtistWeight + durationScore*cfg.DurationWeight
	if titleExact && artistExact {
		composite += bothExactBonus
		if composite > maxFuzzyScore {
			composite = maxFuzzyScore
		}
	}

	return math.Max(0, math.Min(1, composite))
}

// levenshteinRatio returns 1 - distance/maxLen over runes, in [0, 1]
func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1
	}

	maxLen := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}

// durationSimilarity decays linearly from 1 at zero difference to 0 at
// three tolerance-widths. A missing duration is recorded as zero and
// therefore scores as a real difference, not as a wildcard.
func durationSimilarity(a, b, toleranceMs int) float64 {
	window := float64(toleranceMs) * 3
	if window <= 0 {
		return 0
	}

	score := 1 - math.Abs(float64(a-b))/window
	return math.Max(0, score)
}
