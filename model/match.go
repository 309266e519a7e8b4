package model

import "fmt"

// MatchStatus classifies the outcome of matching one source track
type MatchStatus string

const (
	StatusMatched       MatchStatus = "matched"
	StatusLowConfidence MatchStatus = "low_confidence"
	StatusNotFound      MatchStatus = "not_found"
	StatusAlreadyExists MatchStatus = "already_exists"
)

// MatchResult pairs a source track with at most one target track.
// Target may be set even when Status is StatusNotFound, so callers can
// inspect the best candidate that wasn't good enough to act on.
type MatchResult struct {
	Source     Track
	Target     *Track
	Confidence float64
	Status     MatchStatus

	// ExistingID holds the identifier of the pre-existing target track
	// when Status is StatusAlreadyExists.
	ExistingID string
}

// MatchConfig holds the scoring weights and thresholds used by the matcher.
// Weights need not sum to 1 but must be non-negative and chosen so that
// composite scores stay within [0, 1] for normal inputs.
type MatchConfig struct {
	TitleWeight         float64
	ArtistWeight        float64
	DurationWeight      float64
	DurationToleranceMs int

	HighConfidenceThreshold float64
	LowConfidenceThreshold  float64

	MaxCandidates int
}

// DefaultMatchConfig returns the standard scoring configuration
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		TitleWeight:             0.55,
		ArtistWeight:            0.30,
		DurationWeight:          0.15,
		DurationToleranceMs:     3000,
		HighConfidenceThreshold: 0.85,
		LowConfidenceThreshold:  0.50,
		MaxCandidates:           10,
	}
}

// Validate checks the configuration invariants. Violations are rejected
// here rather than surfacing mid-batch.
func (c MatchConfig) Validate() error {
	if c.TitleWeight < 0 || c.ArtistWeight < 0 || c.DurationWeight < 0 {
		return fmt.Errorf("weights must be non-negative: title=%v artist=%v duration=%v",
			c.TitleWeight, c.ArtistWeight, c.DurationWeight)
	}
	if c.TitleWeight+c.ArtistWeight+c.DurationWeight > 1 {
		return fmt.Errorf("weights must not sum above 1: got %v",
			c.TitleWeight+c.ArtistWeight+c.DurationWeight)
	}
	if c.LowConfidenceThreshold < 0 || c.LowConfidenceThreshold > c.HighConfidenceThreshold || c.HighConfidenceThreshold > 1 {
		return fmt.Errorf("thresholds must satisfy 0 <= low <= high <= 1: low=%v high=%v",
			c.LowConfidenceThreshold, c.HighConfidenceThreshold)
	}
	if c.DurationToleranceMs <= 0 {
		return fmt.Errorf("duration tolerance must be positive: %d", c.DurationToleranceMs)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max candidates must be positive: %d", c.MaxCandidates)
	}
	return nil
}
