package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/supersonic-app/go-subsonic/subsonic"

	"github.com/kwiles/songferry/model"
)

// Subsonic searches and loads tracks on a Subsonic-compatible server
type Subsonic struct {
	BaseURL    string
	Username   string
	Password   string
	ClientName string

	mu     sync.Mutex
	client *subsonic.Client
}

func (s *Subsonic) Platform() model.Platform {
	return model.Subsonic
}

// Search returns candidate tracks for a text query via search3
func (s *Subsonic) Search(_ context.Context, query string, limit int) ([]model.Track, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}

	results, err := client.Search3(query, map[string]string{
		"songCount":   strconv.Itoa(limit),
		"artistCount": "0",
		"albumCount":  "0",
	})
	if err != nil {
		return nil, fmt.Errorf("subsonic search: %w", err)
	}

	tracks := make([]model.Track, 0, len(results.Song))
	for _, song := range results.Song {
		tracks = append(tracks, transformSubsonicSong(song))
	}

	slog.Debug("Searched for candidates", "query", query, "count", len(tracks), "source", "subsonic")
	return tracks, nil
}

// Tracks loads a collection of tracks: "starred" for the user's starred
// songs, anything else is treated as a playlist identifier
func (s *Subsonic) Tracks(_ context.Context, collection string) ([]model.Track, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}

	if collection == "starred" {
		slog.Debug("Retrieving starred tracks", "source", "subsonic")

		starred, err := client.GetStarred2(nil)
		if err != nil {
			return nil, fmt.Errorf("subsonic starred: %w", err)
		}

		tracks := make([]model.Track, 0, len(starred.Song))
		for _, song := range starred.Song {
			tracks = append(tracks, transformSubsonicSong(song))
		}

		slog.Debug("Retrieved starred tracks", "count", len(tracks), "source", "subsonic")
		return tracks, nil
	}

	slog.Debug("Retrieving playlist", "playlist", collection, "source", "subsonic")

	playlist, err := client.GetPlaylist(collection)
	if err != nil {
		return nil, fmt.Errorf("subsonic playlist %s: %w", collection, err)
	}

	tracks := make([]model.Track, 0, len(playlist.Entry))
	for _, song := range playlist.Entry {
		tracks = append(tracks, transformSubsonicSong(song))
	}

	slog.Debug("Retrieved playlist", "count", len(tracks), "playlist", collection, "source", "subsonic")
	return tracks, nil
}

// ExistingIDs snapshots the identifiers of the user's starred songs
func (s *Subsonic) ExistingIDs(_ context.Context) (map[string]struct{}, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}

	starred, err := client.GetStarred2(nil)
	if err != nil {
		return nil, fmt.Errorf("subsonic starred: %w", err)
	}

	ids := make(map[string]struct{}, len(starred.Song))
	for _, song := range starred.Song {
		ids[song.ID] = struct{}{}
	}

	slog.Debug("Snapshotted existing track IDs", "count", len(ids), "source", "subsonic")
	return ids, nil
}

// getClient lazily connects to the Subsonic server
func (s *Subsonic) getClient() (*subsonic.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	client := &subsonic.Client{
		Client:     http.DefaultClient,
		BaseUrl:    s.BaseURL,
		User:       s.Username,
		ClientName: s.ClientName,
	}

	if s.Password != "" {
		if err := client.Authenticate(s.Password); err != nil {
			return nil, err
		}
	}

	s.client = client
	return s.client, nil
}

func transformSubsonicSong(song *subsonic.Child) model.Track {
	title := song.Title
	if title == "" {
		title = "Unknown"
	}

	artist := song.Artist
	if artist == "" {
		artist = "Unknown"
	}

	return model.Track{
		ID:         song.ID,
		Platform:   model.Subsonic,
		Title:      title,
		Artist:     artist,
		Artists:    []string{artist},
		Album:      song.Album,
		DurationMs: song.Duration * 1000,
		Raw: map[string]string{
			"mbid": song.MusicBrainzID,
		},
	}
}

var _ model.Source = &Subsonic{}
var _ model.Destination = &Subsonic{}
