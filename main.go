package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csmith/envflag/v2"
	"github.com/csmith/slogflags"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/kwiles/songferry/matcher"
	"github.com/kwiles/songferry/model"
	"github.com/kwiles/songferry/sources"
)

var (
	spotifyID             = flag.String("spotify-id", "", "Spotify client ID")
	spotifySecret         = flag.String("spotify-secret", "", "Spotify client secret")
	spotifyUserToken      = flag.String("spotify-user-token", "", "Spotify OAuth token with the user-library-read scope, needed for liked tracks")
	spotifyTargetPlaylist = flag.String("spotify-target-playlist", "", "Spotify playlist snapshotted as the match destination instead of the library")

	youtubeKey            = flag.String("youtube-api-key", "", "YouTube Data API key")
	youtubeTargetPlaylist = flag.String("youtube-target-playlist", "", "YouTube playlist treated as the match destination")

	subsonicServer   = flag.String("subsonic-server", "", "Subsonic server base address")
	subsonicUsername = flag.String("subsonic-username", "", "Subsonic username")
	subsonicPassword = flag.String("subsonic-password", "", "Subsonic password")

	lastfmKey      = flag.String("lastfm-key", "", "Last.fm API key")
	lastfmSecret   = flag.String("lastfm-secret", "", "Last.fm API secret")
	lastfmUsername = flag.String("lastfm-username", "", "Last.fm username")
	lastfmPassword = flag.String("lastfm-password", "", "Last.fm password")

	source      = flag.String("source", "", "Platform to load tracks from")
	destination = flag.String("destination", "", "Platform to match tracks against")
	collection  = flag.String("collection", "liked", "Collection to load from the source: a playlist ID, or liked/starred/loved")

	strategy      = flag.String("strategy", "fuzzy", "Matching strategy: fuzzy or ai")
	openaiKey     = flag.String("openai-key", "", "API key for the ai strategy")
	openaiBaseURL = flag.String("openai-base-url", "", "Override the completion endpoint base URL (for OpenAI-compatible servers)")
	openaiModel   = flag.String("openai-model", openai.GPT4oMini, "Model used by the ai strategy")

	titleWeight       = flag.Float64("title-weight", 0.55, "Weight of title similarity in the composite score")
	artistWeight      = flag.Float64("artist-weight", 0.30, "Weight of artist similarity in the composite score")
	durationWeight    = flag.Float64("duration-weight", 0.15, "Weight of duration proximity in the composite score")
	durationTolerance = flag.Int("duration-tolerance", 3000, "Duration tolerance window in milliseconds")
	highThreshold     = flag.Float64("high-threshold", 0.85, "Confidence at or above which a match is accepted")
	lowThreshold      = flag.Float64("low-threshold", 0.50, "Confidence below which a match is discarded")
	maxCandidates     = flag.Int("max-candidates", 10, "Maximum candidates requested per search")

	workers     = flag.Int("workers", 4, "Concurrent in-flight source tracks")
	searchDelay = flag.Duration("search-delay", 200*time.Millisecond, "Minimum delay between external requests")

	availableSources      map[string]model.Source
	availableDestinations map[string]model.Destination
)

func main() {
	_ = godotenv.Load()
	envflag.Parse()
	_ = slogflags.Logger(slogflags.WithSetDefault(true))

	cfg := model.MatchConfig{
		TitleWeight:             *titleWeight,
		ArtistWeight:            *artistWeight,
		DurationWeight:          *durationWeight,
		DurationToleranceMs:     *durationTolerance,
		HighConfidenceThreshold: *highThreshold,
		LowConfidenceThreshold:  *lowThreshold,
		MaxCandidates:           *maxCandidates,
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid match configuration", "error", err)
		os.Exit(1)
	}

	initialiseProviders()

	src, err := selectedSource()
	if err != nil {
		slog.Error("Failed to get source", "error", err)
		os.Exit(1)
	}

	dest, err := selectedDestination()
	if err != nil {
		slog.Error("Failed to get destination", "error", err)
		os.Exit(1)
	}

	selector, err := buildSelector(cfg)
	if err != nil {
		slog.Error("Failed to build matching strategy", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, src, dest, selector, cfg); err != nil {
		slog.Error("Matching failed", "error", err)
		os.Exit(1)
	}
}

func initialiseProviders() {
	availableSources = make(map[string]model.Source)
	availableDestinations = make(map[string]model.Destination)

	if *spotifyID != "" && *spotifySecret != "" {
		spotify := &sources.Spotify{
			ClientID:         *spotifyID,
			ClientSecret:     *spotifySecret,
			UserToken:        *spotifyUserToken,
			TargetPlaylistID: *spotifyTargetPlaylist,
		}
		availableSources["spotify"] = spotify
		availableDestinations["spotify"] = spotify
	}

	if *youtubeKey != "" {
		youtube := &sources.YouTube{
			APIKey:           *youtubeKey,
			TargetPlaylistID: *youtubeTargetPlaylist,
		}
		availableSources["youtube"] = youtube
		availableDestinations["youtube"] = youtube
	}

	if *subsonicServer != "" {
		subsonic := &sources.Subsonic{
			BaseURL:    *subsonicServer,
			Username:   *subsonicUsername,
			Password:   *subsonicPassword,
			ClientName: "songferry",
		}
		availableSources["subsonic"] = subsonic
		availableDestinations["subsonic"] = subsonic
	}

	if *lastfmKey != "" && *lastfmSecret != "" {
		availableSources["lastfm"] = &sources.Lastfm{
			APIKey:   *lastfmKey,
			Secret:   *lastfmSecret,
			Username: *lastfmUsername,
			Password: *lastfmPassword,
		}
	}
}

func selectedSource() (model.Source, error) {
	if *source == "" {
		return nil, fmt.Errorf("source must be specified")
	}

	src, ok := availableSources[*source]
	if !ok {
		return nil, fmt.Errorf("source not configured or invalid: %s", *source)
	}

	return src, nil
}

func selectedDestination() (model.Destination, error) {
	if *destination == "" {
		return nil, fmt.Errorf("destination must be specified")
	}
	if *destination == *source {
		return nil, fmt.Errorf("destination must differ from source: %s", *destination)
	}

	dest, ok := availableDestinations[*destination]
	if !ok {
		return nil, fmt.Errorf("destination not configured or invalid: %s", *destination)
	}

	return dest, nil
}

func buildSelector(cfg model.MatchConfig) (matcher.Selector, error) {
	switch *strategy {
	case "fuzzy":
		return matcher.FuzzySelector{Config: cfg}, nil
	case "ai":
		if *openaiKey == "" {
			return nil, fmt.Errorf("openai-key must be set for the ai strategy")
		}

		clientConfig := openai.DefaultConfig(*openaiKey)
		if *openaiBaseURL != "" {
			clientConfig.BaseURL = *openaiBaseURL
		}

		return &matcher.AISelector{
			Client:  openai.NewClientWithConfig(clientConfig),
			Model:   *openaiModel,
			Limiter: rate.NewLimiter(rate.Every(*searchDelay), 1),
			Timeout: 30 * time.Second,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s", *strategy)
	}
}

func run(ctx context.Context, src model.Source, dest model.Destination, selector matcher.Selector, cfg model.MatchConfig) error {
	tracks, err := src.Tracks(ctx, *collection)
	if err != nil {
		return fmt.Errorf("failed to load source tracks: %w", err)
	}
	if len(tracks) == 0 {
		slog.Info("Nothing to match", "source", *source, "collection", *collection)
		return nil
	}

	existing, err := dest.ExistingIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot destination: %w", err)
	}

	slog.Info("Matching tracks", "count", len(tracks), "source", *source, "destination", *destination, "strategy", *strategy)

	batcher := &matcher.Batcher{
		Search: func(ctx context.Context, query string) ([]model.Track, error) {
			return dest.Search(ctx, query, cfg.MaxCandidates)
		},
		Selector:    selector,
		Config:      cfg,
		ExistingIDs: existing,
		Workers:     *workers,
		Limiter:     rate.NewLimiter(rate.Every(*searchDelay), 1),
		OnProgress: func(completed, total int) {
			slog.Debug("Progress", "completed", completed, "total", total)
		},
	}

	results, err := batcher.MatchAll(ctx, tracks)
	if err != nil {
		return err
	}

	report(matcher.Deduplicate(results))
	return nil
}

func report(results []model.MatchResult) {
	counts := make(map[model.MatchStatus]int)

	for _, result := range results {
		counts[result.Status]++

		switch result.Status {
		case model.StatusMatched:
			slog.Info("Matched", "artist", result.Source.Artist, "title", result.Source.Title, "target", result.Target.ID, "confidence", result.Confidence)
		case model.StatusLowConfidence:
			slog.Info("Low confidence", "artist", result.Source.Artist, "title", result.Source.Title, "target", result.Target.ID, "confidence", result.Confidence)
		case model.StatusAlreadyExists:
			slog.Info("Already present", "artist", result.Source.Artist, "title", result.Source.Title, "existing", result.ExistingID)
		default:
			if result.Target != nil {
				slog.Info("Not found", "artist", result.Source.Artist, "title", result.Source.Title, "closest", result.Target.ID, "confidence", result.Confidence)
			} else {
				slog.Info("Not found", "artist", result.Source.Artist, "title", result.Source.Title)
			}
		}
	}

	slog.Info(
		"Match summary",
		"total", len(results),
		"matched", counts[model.StatusMatched],
		"low_confidence", counts[model.StatusLowConfidence],
		"not_found", counts[model.StatusNotFound],
		"already_exists", counts[model.StatusAlreadyExists],
	)
}
