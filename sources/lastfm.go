package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twoscott/gobble-fm/lastfm"
	"github.com/twoscott/gobble-fm/session"

	"github.com/kwiles/songferry/model"
)

// Lastfm loads a user's loved tracks from Last.fm. It is a source only:
// Last.fm has no streamable library to match into, so it implements no
// search gateway.
type Lastfm struct {
	APIKey   string
	Secret   string
	Username string
	Password string

	mu     sync.Mutex
	client *session.Client
}

func (l *Lastfm) Platform() model.Platform {
	return model.Lastfm
}

// Tracks loads the user's loved tracks. Last.fm reports no durations, so
// tracks come back with an unknown (zero) duration.
func (l *Lastfm) Tracks(_ context.Context, collection string) ([]model.Track, error) {
	if collection != "loved" {
		return nil, fmt.Errorf("lastfm only supports the \"loved\" collection, got %q", collection)
	}

	client, err := l.getClient()
	if err != nil {
		return nil, err
	}

	slog.Debug("Retrieving loved tracks", "source", "lastfm")

	var tracks []model.Track
	page := uint(1)

	for {
		lovedTracks, err := client.User.LovedTracks(lastfm.LovedTracksParams{
			User:  l.Username,
			Page:  page,
			Limit: 200,
		})
		if err != nil {
			return nil, fmt.Errorf("lastfm loved tracks: %w", err)
		}

		for _, track := range lovedTracks.Tracks {
			title := track.Title
			if title == "" {
				title = "Unknown"
			}
			artist := track.Artist.Name
			if artist == "" {
				artist = "Unknown"
			}

			tracks = append(tracks, model.Track{
				ID:       track.MBID,
				Platform: model.Lastfm,
				Title:    title,
				Artist:   artist,
				Artists:  []string{artist},
				Raw: map[string]string{
					"mbid":        track.MBID,
					"artist_mbid": track.Artist.MBID,
				},
			})
		}

		if page >= uint(lovedTracks.TotalPages) {
			break
		}
		page++
	}

	slog.Debug("Retrieved loved tracks", "count", len(tracks), "source", "lastfm")
	return tracks, nil
}

// getClient lazily connects to Last.fm
func (l *Lastfm) getClient() (*session.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}

	client := session.NewClient(l.APIKey, l.Secret)
	if err := client.Login(l.Username, l.Password); err != nil {
		return nil, err
	}

	l.client = client
	return l.client, nil
}

var _ model.Source = &Lastfm{}
