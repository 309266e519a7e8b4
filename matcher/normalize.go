package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kwiles/songferry/model"
)

// Vendor titles and channel names are full of decoration that defeats
// literal comparison, so both sides of every comparison go through the
// same normalization. All of these functions are pure, total and
// idempotent; the worst case is an empty string.

var (
	// Parenthesised or bracketed feature credits: "(feat. X)", "[ft X]"
	featClauseRegex = regexp.MustCompile(`(?i)\s*[(\[]\s*(?:feat\.?|ft\.?|featuring)\s+[^)\]]*[)\]]`)

	// "(Official Music Video)", "(Lyrics)", "[Audio]", "(Visualizer)" and friends
	annotationRegex = regexp.MustCompile(`(?i)\s*[(\[]\s*(?:official[^)\]]*|lyrics?|lyric\s+video|audio|visuali[sz]er|hd|hq|4k)\s*[)\]]`)

	// Trailing "- Official Music Video" / "- Official Audio" style suffixes
	dashSuffixRegex = regexp.MustCompile(`(?i)\s*-\s*official\s*(?:music\s+|lyric\s+)?(?:video|audio)\s*$`)

	// Trailing channel decorations on artist names: "NameVEVO", "Name - Topic"
	channelSuffixRegex = regexp.MustCompile(`(?i)\s*-?\s*(?:vevo|topic|official)\s*$`)

	// Lowercase-to-uppercase boundaries in concatenated channel names
	camelBoundaryRegex = regexp.MustCompile(`([a-z0-9])([A-Z])`)

	quoteReplacer     = strings.NewReplacer("‘", "'", "’", "'", "“", `"`, "”", `"`)
	separatorReplacer = strings.NewReplacer("&", " and ", ",", " and ")

	diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeTitle canonicalizes a raw track title into a comparable form
func NormalizeTitle(raw string) string {
	s := raw

	// Everything after a pipe is channel noise
	if idx := strings.IndexByte(s, '|'); idx != -1 {
		s = s[:idx]
	}

	s = quoteReplacer.Replace(s)
	s = removeDiacritics(s)
	s = featClauseRegex.ReplaceAllString(s, "")
	s = annotationRegex.ReplaceAllString(s, "")

	// Stripping one suffix can expose another
	for {
		stripped := dashSuffixRegex.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	s = strings.ToLower(s)
	return collapseWhitespace(s)
}

// NormalizeArtist canonicalizes a raw artist or channel name into a
// comparable form. The CamelCase split runs before lowercasing, so that
// concatenated channel names like "ArtistNameVEVO" come apart.
func NormalizeArtist(raw string) string {
	s := quoteReplacer.Replace(raw)
	s = removeDiacritics(s)
	s = camelBoundaryRegex.ReplaceAllString(s, "$1 $2")

	// Stripping must leave a name behind: "Topic" can be an actual artist
	for {
		stripped := channelSuffixRegex.ReplaceAllString(s, "")
		if stripped == s || strings.TrimSpace(stripped) == "" {
			break
		}
		s = stripped
	}

	// Unify multi-artist separator styles before comparing
	s = separatorReplacer.Replace(s)

	s = strings.ToLower(s)
	return collapseWhitespace(s)
}

// BuildSearchQuery returns the normalized text query used to look a
// track up on another platform
func BuildSearchQuery(track model.Track) string {
	return strings.TrimSpace(NormalizeArtist(track.Artist) + " " + NormalizeTitle(track.Title))
}

func removeDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
