package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/kwiles/songferry/model"
)

const (
	youtubeSearchEndpoint = "https://www.googleapis.com/youtube/v3/search"

	// musicCategoryID restricts Data API searches to the Music category
	musicCategoryID = "10"
)

// videoTitleSeparator splits "Artist - Title" style video titles
var videoTitleSeparator = regexp.MustCompile(`\s+[-–—:|]\s+`)

// YouTube loads playlists through the native client and searches
// candidates through the Data API
type YouTube struct {
	APIKey string

	// TargetPlaylistID identifies the playlist treated as the destination
	// collection when snapshotting existing IDs
	TargetPlaylistID string

	HTTPClient *http.Client

	mu     sync.Mutex
	client *youtube.Client
}

func (y *YouTube) Platform() model.Platform {
	return model.YouTube
}

// Search returns candidate tracks for a text query. The Data API search
// response carries no durations, so each hit is enriched through a video
// metadata lookup; an enrichment failure leaves the duration unknown
// rather than failing the search.
func (y *YouTube) Search(ctx context.Context, query string, limit int) ([]model.Track, error) {
	// The Data API has no identifier filter: an identifier-shaped query
	// returns no candidates so the caller falls back to its text query
	if isrcRegex.MatchString(query) {
		return nil, nil
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoCategoryId", musicCategoryID)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("q", query)
	params.Set("key", y.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, youtubeSearchEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := y.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube search: status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("youtube search response: %w", err)
	}

	var tracks []model.Track
	for _, item := range payload.Items {
		if item.ID.VideoID == "" {
			continue
		}

		artist, title := splitVideoTitle(item.Snippet.Title, item.Snippet.ChannelTitle)
		tracks = append(tracks, model.Track{
			ID:         item.ID.VideoID,
			Platform:   model.YouTube,
			Title:      title,
			Artist:     artist,
			Artists:    []string{artist},
			DurationMs: y.videoDurationMs(ctx, item.ID.VideoID),
			VideoID:    item.ID.VideoID,
			Raw: map[string]string{
				"channel": item.Snippet.ChannelTitle,
			},
		})
	}

	slog.Debug("Searched for candidates", "query", query, "count", len(tracks), "source", "youtube")
	return tracks, nil
}

// Tracks loads the videos of a playlist as tracks
func (y *YouTube) Tracks(ctx context.Context, collection string) ([]model.Track, error) {
	slog.Debug("Retrieving playlist", "playlist", collection, "source", "youtube")

	playlist, err := y.getClient().GetPlaylistContext(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("youtube playlist %s: %w", collection, err)
	}

	tracks := make([]model.Track, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		artist, title := splitVideoTitle(entry.Title, entry.Author)
		tracks = append(tracks, model.Track{
			ID:         entry.ID,
			Platform:   model.YouTube,
			Title:      title,
			Artist:     artist,
			Artists:    []string{artist},
			DurationMs: int(entry.Duration / time.Millisecond),
			VideoID:    entry.ID,
			Raw: map[string]string{
				"channel": entry.Author,
			},
		})
	}

	slog.Debug("Retrieved playlist", "count", len(tracks), "playlist", playlist.Title, "source", "youtube")
	return tracks, nil
}

// ExistingIDs snapshots the video identifiers already present in the
// target playlist
func (y *YouTube) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	if y.TargetPlaylistID == "" {
		return ids, nil
	}

	playlist, err := y.getClient().GetPlaylistContext(ctx, y.TargetPlaylistID)
	if err != nil {
		return nil, fmt.Errorf("youtube target playlist %s: %w", y.TargetPlaylistID, err)
	}

	for _, entry := range playlist.Videos {
		ids[entry.ID] = struct{}{}
	}

	slog.Debug("Snapshotted existing video IDs", "count", len(ids), "source", "youtube")
	return ids, nil
}

// videoDurationMs looks a video's duration up, returning 0 when the
// lookup fails so the scorer treats it as unknown
func (y *YouTube) videoDurationMs(ctx context.Context, videoID string) int {
	video, err := y.getClient().GetVideoContext(ctx, videoID)
	if err != nil {
		slog.Debug("Failed to fetch video duration", "video", videoID, "error", err)
		return 0
	}
	return int(video.Duration / time.Millisecond)
}

func (y *YouTube) getClient() *youtube.Client {
	y.mu.Lock()
	defer y.mu.Unlock()

	if y.client == nil {
		y.client = &youtube.Client{HTTPClient: y.httpClient()}
	}
	return y.client
}

func (y *YouTube) httpClient() *http.Client {
	if y.HTTPClient != nil {
		return y.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// splitVideoTitle guesses artist and title from a video title, falling
// back to the uploading channel as the artist. Video titles commonly
// follow "Artist - Title"; when a title doesn't, the uploader is the
// best guess available.
func splitVideoTitle(rawTitle, uploader string) (artist, title string) {
	raw := strings.TrimSpace(rawTitle)

	if parts := videoTitleSeparator.Split(raw, 2); len(parts) == 2 {
		left, right := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if left != "" && right != "" {
			return left, right
		}
	}

	artist = strings.TrimSpace(uploader)
	if artist == "" {
		artist = "Unknown"
	}
	if raw == "" {
		raw = "Unknown"
	}
	return artist, raw
}

var _ model.Source = &YouTube{}
var _ model.Destination = &YouTube{}
