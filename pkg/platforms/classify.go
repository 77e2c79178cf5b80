package platforms

import (
	"regexp"
	"strings"
)

// Classification is the outcome of recognizing an input URL: the platform
// it belongs to, the entity type, and the platform-native id.
type Classification struct {
	Platform Platform
	Type     EntityType
	ID       string
}

// urlPattern maps one URL shape to its platform and entity type. The id
// is always capture group 1.
type urlPattern struct {
	platform Platform
	typ      EntityType
	re       *regexp.Regexp
}

// Patterns are ordered and mutually exclusive by domain; the first match
// wins. Character classes double as id validation, so ids can never
// contain path separators or traversal sequences.
var urlPatterns = []urlPattern{
	{Spotify, EntitySong, regexp.MustCompile(`(?i)open\.spotify\.com/(?:intl-[a-z]+/)?track/([a-zA-Z0-9]+)`)},
	{Spotify, EntityAlbum, regexp.MustCompile(`(?i)open\.spotify\.com/(?:intl-[a-z]+/)?album/([a-zA-Z0-9]+)`)},
	{Spotify, EntitySong, regexp.MustCompile(`(?i)spotify:track:([a-zA-Z0-9]+)`)},
	{AppleMusic, EntitySong, regexp.MustCompile(`(?i)music\.apple\.com/.+/album/.+[?&]i=(\d+)`)},
	{AppleMusic, EntitySong, regexp.MustCompile(`(?i)music\.apple\.com/(?:[a-z]{2}/)?song/(?:[^/?#]+/)?(\d+)`)},
	{YouTube, EntitySong, regexp.MustCompile(`(?i)(?:music\.|www\.|m\.)?youtube\.com/watch\?(?:[^#]*&)?v=([a-zA-Z0-9_-]+)`)},
	{YouTube, EntitySong, regexp.MustCompile(`(?i)youtu\.be/([a-zA-Z0-9_-]+)`)},
	{Deezer, EntitySong, regexp.MustCompile(`(?i)deezer\.com/(?:[a-z]{2}/)?track/(\d+)`)},
	{Deezer, EntityAlbum, regexp.MustCompile(`(?i)deezer\.com/(?:[a-z]{2}/)?album/(\d+)`)},
	{Tidal, EntitySong, regexp.MustCompile(`(?i)(?:listen\.)?tidal\.com/(?:browse/)?track/(\d+)`)},
	{AmazonMusic, EntitySong, regexp.MustCompile(`(?i)music\.amazon\.com/(?:[a-z]{2}/)?(?:albums/[A-Z0-9]+\?[^#]*trackAsin=|tracks/)([A-Z0-9]+)`)},
	{AmazonMusic, EntitySong, regexp.MustCompile(`(?i)amazon\.com/music/player/([A-Z0-9]+)`)},
}

// Classify inspects an arbitrary input string and determines which
// platform it belongs to along with the native entity id. The second
// return value is false when no known pattern matches; callers must
// treat that as a client input error rather than a system fault.
func Classify(rawURL string) (Classification, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Classification{}, false
	}

	for _, p := range urlPatterns {
		matches := p.re.FindStringSubmatch(rawURL)
		if len(matches) < 2 {
			continue
		}
		id := matches[1]
		if !validID(id) {
			continue
		}
		return Classification{Platform: p.platform, Type: p.typ, ID: id}, true
	}

	return Classification{}, false
}

// validID rejects ids that are empty or could be abused for path
// traversal when embedded in reconstructed URLs.
func validID(id string) bool {
	if id == "" {
		return false
	}
	if strings.ContainsAny(id, "/\\?#%") || strings.Contains(id, "..") {
		return false
	}
	return true
}

// KnownPlatform reports whether p is in the fixed platform set.
func KnownPlatform(p Platform) bool {
	switch p {
	case Spotify, AppleMusic, YouTube, Deezer, Tidal, AmazonMusic:
		return true
	}
	return false
}

// CanonicalURL reconstructs the platform page URL for a classified
// entity. It is used to turn a decoded share token back into a
// resolvable input. The second return value is false for unknown
// platforms.
func CanonicalURL(c Classification) (string, bool) {
	switch c.Platform {
	case Spotify:
		if c.Type == EntityAlbum {
			return "https://open.spotify.com/album/" + c.ID, true
		}
		return "https://open.spotify.com/track/" + c.ID, true
	case AppleMusic:
		return "https://music.apple.com/song/" + c.ID, true
	case YouTube:
		return "https://music.youtube.com/watch?v=" + c.ID, true
	case Deezer:
		if c.Type == EntityAlbum {
			return "https://www.deezer.com/album/" + c.ID, true
		}
		return "https://www.deezer.com/track/" + c.ID, true
	case Tidal:
		return "https://tidal.com/track/" + c.ID, true
	case AmazonMusic:
		return "https://music.amazon.com/tracks/" + c.ID, true
	}
	return "", false
}
