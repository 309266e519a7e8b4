package sources

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kwiles/songferry/model"
)

// isrcRegex recognises identifier-shaped queries so they can be routed
// through Spotify's isrc: search filter
var isrcRegex = regexp.MustCompile(`^[A-Za-z]{2}[A-Za-z0-9]{3}[0-9]{7}$`)

// Spotify searches and loads tracks through the Spotify Web API.
// Search and playlist reads work with client credentials alone; the
// user's saved tracks live behind /me endpoints, which Spotify only
// serves to user-authorized tokens, so those need UserToken.
type Spotify struct {
	ClientID     string
	ClientSecret string

	// UserToken is an OAuth access token carrying the user-library-read
	// scope. Required for the "liked" collection and for library-based
	// ExistingIDs snapshots.
	UserToken string

	// TargetPlaylistID, when set, is snapshotted by ExistingIDs instead
	// of the user's saved tracks.
	TargetPlaylistID string

	mu     sync.Mutex
	client *spotify.Client
}

func (s *Spotify) Platform() model.Platform {
	return model.Spotify
}

// Search returns candidate tracks for a text query
func (s *Spotify) Search(ctx context.Context, query string, limit int) ([]model.Track, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	if isrcRegex.MatchString(query) {
		query = "isrc:" + query
	}

	results, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}

	var tracks []model.Track
	if results.Tracks != nil {
		for i := range results.Tracks.Tracks {
			tracks = append(tracks, transformSpotifyTrack(&results.Tracks.Tracks[i]))
		}
	}

	slog.Debug("Searched for candidates", "query", query, "count", len(tracks), "source", "spotify")
	return tracks, nil
}

// Tracks loads a collection of tracks: "liked" for the user's saved
// tracks, anything else is treated as a playlist identifier
func (s *Spotify) Tracks(ctx context.Context, collection string) ([]model.Track, error) {
	if collection == "liked" {
		return s.likedTracks(ctx)
	}
	return s.playlistTracks(ctx, collection)
}

// ExistingIDs snapshots the target playlist when one is configured,
// otherwise the user's saved tracks
func (s *Spotify) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	if s.TargetPlaylistID != "" {
		return s.playlistIDs(ctx, s.TargetPlaylistID)
	}
	if s.UserToken == "" {
		return nil, fmt.Errorf("spotify library snapshot needs a user token with the user-library-read scope, or a target playlist")
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})

	page, err := client.CurrentUsersTracks(ctx, spotify.Limit(50))
	if err != nil {
		return nil, fmt.Errorf("spotify saved tracks: %w", err)
	}

	for {
		for i := range page.Tracks {
			ids[string(page.Tracks[i].ID)] = struct{}{}
		}

		err = client.NextPage(ctx, page)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("spotify saved tracks pagination: %w", err)
		}
	}

	slog.Debug("Snapshotted existing track IDs", "count", len(ids), "source", "spotify")
	return ids, nil
}

func (s *Spotify) playlistIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	tracks, err := s.playlistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(tracks))
	for i := range tracks {
		ids[tracks[i].ID] = struct{}{}
	}

	slog.Debug("Snapshotted existing track IDs", "count", len(ids), "playlist", playlistID, "source", "spotify")
	return ids, nil
}

func (s *Spotify) likedTracks(ctx context.Context) ([]model.Track, error) {
	if s.UserToken == "" {
		return nil, fmt.Errorf("spotify liked tracks need a user token with the user-library-read scope")
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	slog.Debug("Retrieving liked tracks", "source", "spotify")

	var tracks []model.Track

	page, err := client.CurrentUsersTracks(ctx, spotify.Limit(50))
	if err != nil {
		return nil, fmt.Errorf("spotify liked tracks: %w", err)
	}

	for {
		for i := range page.Tracks {
			tracks = append(tracks, transformSpotifyTrack(&page.Tracks[i].FullTrack))
		}

		err = client.NextPage(ctx, page)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("spotify liked tracks pagination: %w", err)
		}
	}

	slog.Debug("Retrieved liked tracks", "count", len(tracks), "source", "spotify")
	return tracks, nil
}

func (s *Spotify) playlistTracks(ctx context.Context, playlistID string) ([]model.Track, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	slog.Debug("Retrieving playlist tracks", "playlist", playlistID, "source", "spotify")

	playlist, err := client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, fmt.Errorf("spotify playlist %s: %w", playlistID, err)
	}

	var tracks []model.Track
	trackPage := playlist.Tracks

	for {
		for i := range trackPage.Tracks {
			item := &trackPage.Tracks[i]
			if item.Track.ID == "" || item.IsLocal {
				continue
			}
			tracks = append(tracks, transformSpotifyTrack(&item.Track))
		}

		err = client.NextPage(ctx, &trackPage)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("spotify playlist pagination: %w", err)
		}
	}

	slog.Debug("Retrieved playlist tracks", "count", len(tracks), "playlist", playlistID, "source", "spotify")
	return tracks, nil
}

// getClient lazily builds the API client: around the user token when
// one is supplied, otherwise via the client-credentials flow
func (s *Spotify) getClient(ctx context.Context) (*spotify.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	if s.UserToken != "" {
		httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.UserToken}))
		s.client = spotify.New(httpClient)
		return s.client, nil
	}

	config := &clientcredentials.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("spotify auth: %w", err)
	}

	s.client = spotify.New(spotifyauth.New().Client(ctx, token))
	return s.client, nil
}

func transformSpotifyTrack(track *spotify.FullTrack) model.Track {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	primary := "Unknown"
	if len(artists) > 0 && artists[0] != "" {
		primary = artists[0]
	}

	title := track.Name
	if title == "" {
		title = "Unknown"
	}

	return model.Track{
		ID:         string(track.ID),
		Platform:   model.Spotify,
		Title:      title,
		Artist:     primary,
		Artists:    artists,
		Album:      track.Album.Name,
		DurationMs: int(track.Duration),
		ISRC:       track.ExternalIDs["isrc"],
		Raw: map[string]string{
			"popularity": fmt.Sprintf("%d", track.Popularity),
		},
	}
}

var _ model.Source = &Spotify{}
var _ model.Destination = &Spotify{}
