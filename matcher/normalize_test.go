package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kwiles/songferry/model"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase conversion",
			input:    "Blinding Lights",
			expected: "blinding lights",
		},
		{
			name:     "official video annotation",
			input:    "Blinding Lights (Official Video)",
			expected: "blinding lights",
		},
		{
			name:     "official music video annotation",
			input:    "Song (Official Music Video)",
			expected: "song",
		},
		{
			name:     "bracketed audio annotation",
			input:    "Song [Official Audio]",
			expected: "song",
		},
		{
			name:     "lyrics annotation",
			input:    "Song (Lyrics)",
			expected: "song",
		},
		{
			name:     "lyric video annotation",
			input:    "Song (Lyric Video)",
			expected: "song",
		},
		{
			name:     "visualizer annotation",
			input:    "Song (Visualizer)",
			expected: "song",
		},
		{
			name:     "trailing dash suffix",
			input:    "Song - Official Music Video",
			expected: "song",
		},
		{
			name:     "trailing dash audio suffix",
			input:    "Song - Official Audio",
			expected: "song",
		},
		{
			name:     "stacked dash suffixes",
			input:    "Song - Official Video - Official Video",
			expected: "song",
		},
		{
			name:     "feat clause in parentheses",
			input:    "Song (feat. Other Artist)",
			expected: "song",
		},
		{
			name:     "ft clause in brackets",
			input:    "Song [ft. Other Artist]",
			expected: "song",
		},
		{
			name:     "featuring clause",
			input:    "Song (featuring Other Artist)",
			expected: "song",
		},
		{
			name:     "pipe truncation",
			input:    "Song | Channel Name | 4K",
			expected: "song",
		},
		{
			name:     "curly apostrophe",
			input:    "Don’t Stop Me Now",
			expected: "don't stop me now",
		},
		{
			name:     "diacritics removed",
			input:    "Déjà Vu",
			expected: "deja vu",
		},
		{
			name:     "whitespace collapsed",
			input:    "Song   With    Spaces",
			expected: "song with spaces",
		},
		{
			name:     "combined decorations",
			input:    "Song (feat. Guest) (Official Video) | VEVO",
			expected: "song",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeTitle(tt.input)
			assert.Equal(t, tt.expected, result)
			assert.Equal(t, result, NormalizeTitle(result), "normalization should be idempotent")
		})
	}
}

func TestNormalizeArtist(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase conversion",
			input:    "The Weeknd",
			expected: "the weeknd",
		},
		{
			name:     "vevo suffix",
			input:    "The Weeknd VEVO",
			expected: "the weeknd",
		},
		{
			name:     "concatenated vevo channel",
			input:    "TaylorSwiftVEVO",
			expected: "taylor swift",
		},
		{
			name:     "camel case channel name",
			input:    "ImagineDragons",
			expected: "imagine dragons",
		},
		{
			name:     "topic suffix",
			input:    "Artist - Topic",
			expected: "artist",
		},
		{
			name:     "official suffix",
			input:    "Artist Official",
			expected: "artist",
		},
		{
			name:     "ampersand separator",
			input:    "Simon & Garfunkel",
			expected: "simon and garfunkel",
		},
		{
			name:     "comma separator",
			input:    "Artist One, Artist Two",
			expected: "artist one and artist two",
		},
		{
			name:     "diacritics removed",
			input:    "Beyoncé",
			expected: "beyonce",
		},
		{
			name:     "artist literally named topic",
			input:    "Topic",
			expected: "topic",
		},
		{
			name:     "artist literally named official",
			input:    "Official",
			expected: "official",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeArtist(tt.input)
			assert.Equal(t, tt.expected, result)
			assert.Equal(t, result, NormalizeArtist(result), "normalization should be idempotent")
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		track    model.Track
		expected string
	}{
		{
			name: "artist then title",
			track: model.Track{
				Title:  "Blinding Lights (Official Video)",
				Artist: "The Weeknd VEVO",
			},
			expected: "the weeknd blinding lights",
		},
		{
			name: "empty artist",
			track: model.Track{
				Title:  "Song",
				Artist: "",
			},
			expected: "song",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildSearchQuery(tt.track))
		})
	}
}
