package model

// Platform identifies a supported music platform
type Platform string

const (
	Spotify  Platform = "spotify"
	YouTube  Platform = "youtube"
	Subsonic Platform = "subsonic"
	Lastfm   Platform = "lastfm"
)

// Track represents a single recording on a platform.
// Title and Artist are always set; adapters substitute "Unknown" for
// missing vendor data rather than leaving fields empty.
type Track struct {
	ID         string
	Platform   Platform
	Title      string
	Artist     string
	Artists    []string
	Album      string
	DurationMs int
	ISRC       string
	VideoID    string

	// Raw keeps platform-native fields for display and debugging only.
	// It is never consulted when comparing tracks.
	Raw map[string]string
}
