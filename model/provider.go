package model

import "context"

// Searcher is the candidate search gateway the matching engine consumes:
// given a text query, return candidate tracks on the adapter's platform.
// Results are ordered arbitrarily and capped at limit.
type Searcher interface {
	Platform() Platform
	Search(ctx context.Context, query string, limit int) ([]Track, error)
}

// Source provides the tracks to be matched. The collection argument is
// platform specific: a playlist identifier, or "liked"/"starred"/"loved"
// for the user's saved tracks.
type Source interface {
	Platform() Platform
	Tracks(ctx context.Context, collection string) ([]Track, error)
}

// Destination is a platform tracks can be matched against. ExistingIDs
// snapshots the identifiers already present at the destination so the
// orchestrator can mark matches that need not be re-added.
type Destination interface {
	Searcher
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)
}
