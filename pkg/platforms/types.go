// Package platforms provides per-platform adapters for resolving music links
// across streaming services, plus the URL classifier and share-token codec.
package platforms

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Platform identifies a supported streaming service.
type Platform string

const (
	Spotify     Platform = "spotify"
	AppleMusic  Platform = "appleMusic"
	YouTube     Platform = "youtube"
	Deezer      Platform = "deezer"
	Tidal       Platform = "tidal"
	AmazonMusic Platform = "amazonMusic"
)

// EntityType is the kind of catalog entity a link points at.
type EntityType string

const (
	EntitySong  EntityType = "song"
	EntityAlbum EntityType = "album"
)

// LinkKind distinguishes exact catalog links from query-page fallbacks.
type LinkKind string

const (
	// LinkDirect points at the exact catalog entity.
	LinkDirect LinkKind = "direct"
	// LinkSearch points at a search results page because no exact id
	// could be resolved. Callers must treat these as lower confidence.
	LinkSearch LinkKind = "search"
)

var (
	// ErrNotFound is returned when a valid id or query matches no entity.
	ErrNotFound = errors.New("entity not found")
	// ErrUnsupported is returned when a platform never offers the
	// requested capability.
	ErrUnsupported = errors.New("capability not supported")
)

// Track holds canonical metadata extracted from the source platform.
// It is immutable once produced.
type Track struct {
	Platform        Platform
	Type            EntityType
	ID              string
	Title           string
	Artist          string
	ISRC            string
	Thumbnail       string
	ThumbnailWidth  int
	ThumbnailHeight int
	URL             string // canonical page URL on the platform
}

// EntityKey returns the stable cross-request identifier for the track,
// e.g. "SPOTIFY::SONG::3n3Ppam7vgaVa1iaRUc9Lp".
func (t *Track) EntityKey() string {
	return EntityKey(t.Platform, t.Type, t.ID)
}

// EntityKey builds the PLATFORM::TYPE::id identifier used for cache keys
// and response entity maps.
func EntityKey(p Platform, entityType EntityType, id string) string {
	return fmt.Sprintf("%s::%s::%s",
		strings.ToUpper(string(p)), strings.ToUpper(string(entityType)), id)
}

// Link is a per-platform result of a resolution.
type Link struct {
	Platform  Platform
	URL       string
	EntityKey string
	Kind      LinkKind
}

// Adapter is the base contract every platform adapter implements. The two
// capabilities below are optional and detected by interface assertion.
type Adapter interface {
	// Platform returns the platform tag this adapter serves.
	Platform() Platform
}

// Extractor is the capability of turning a platform-native id into
// canonical track metadata. Platforms without a usable public catalog API
// do not implement it.
type Extractor interface {
	Adapter

	// Extract fetches canonical metadata for a native id. It returns
	// ErrNotFound when the id matches no entity.
	Extract(ctx context.Context, entityType EntityType, id string) (*Track, error)
}

// Searcher is the capability of locating an equivalent entity by artist
// and title (and optionally ISRC). Implementations return ErrNotFound
// when no plausible match exists and never fabricate a direct link; when
// only a query URL can be produced they return a Link with Kind
// LinkSearch.
type Searcher interface {
	Adapter

	Search(ctx context.Context, artist, title, isrc string) (*Link, error)
}
