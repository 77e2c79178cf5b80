package core

import (
	"context"
	"errors"

	"unitune/pkg/platforms"
)

// Resolution-level error taxonomy. These four are user visible; every
// other fan-out failure is downgraded to omitting that platform from the
// response.
var (
	// ErrUnrecognizedInput means neither the classifier nor the token
	// codec recognized the input. A client input error, not a fault.
	ErrUnrecognizedInput = errors.New("unrecognized input")
	// ErrUnsupportedSource means the input's platform has no extract
	// capability and can never act as a resolution source.
	ErrUnsupportedSource = errors.New("unsupported source platform")
	// ErrEntityNotFound means the id was valid but matches no entity.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrUpstreamTimeout means source extraction did not complete within
	// the resolution deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)

// LinkEntry is one per-platform link in the response document.
type LinkEntry struct {
	URL            string `json:"url"`
	EntityUniqueID string `json:"entityUniqueId"`
	LinkKind       string `json:"linkKind"`
}

// Entity is the canonical track record in the response document.
type Entity struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	ArtistName      string   `json:"artistName"`
	ThumbnailURL    string   `json:"thumbnailUrl,omitempty"`
	ThumbnailWidth  int      `json:"thumbnailWidth,omitempty"`
	ThumbnailHeight int      `json:"thumbnailHeight,omitempty"`
	APIProvider     string   `json:"apiProvider"`
	Platforms       []string `json:"platforms"`
}

// Resolution is the fully assembled outcome of resolving one input link:
// the canonical entity, every equivalent per-platform link, and the
// share page URL. It is an immutable value object; a Resolution is never
// partially cached.
type Resolution struct {
	EntityUniqueID     string               `json:"entityUniqueId"`
	UserCountry        string               `json:"userCountry"`
	PageURL            string               `json:"pageUrl"`
	LinksByPlatform    map[string]LinkEntry `json:"linksByPlatform"`
	EntitiesByUniqueID map[string]Entity    `json:"entitiesByUniqueId"`
}

// ResultCache stores fully assembled resolutions keyed by entity key.
// Implementations are internally synchronized and best effort: a failed
// store only forfeits the speed-up.
type ResultCache interface {
	Get(key string) (*Resolution, bool)
	Put(key string, res *Resolution)

	// MarkNotFound and WasNotFound form the negative cache for ids that
	// previously resolved to nothing.
	MarkNotFound(key string)
	WasNotFound(key string) bool
}

// CoverSource supplies canonical cover art (and ISRC backfill) for a
// resolution regardless of the source platform. In production this is
// the Spotify client.
type CoverSource interface {
	// SearchTrack locates the equivalent Spotify track for the given
	// artist and title, preferring an ISRC match when available.
	SearchTrack(ctx context.Context, artist, title, isrc string) (*platforms.Track, error)
}

// MatchJudgment is the match ranker's verdict over a candidate list.
// Index refers into the candidate slice handed to PickBestMatch.
type MatchJudgment struct {
	Index      int
	Confidence float64
	Reasoning  string
}

// MatchRanker disambiguates search candidates that fuzzy scoring cannot
// separate. Implementations may call remote LLM backends; callers treat
// any error as "no opinion" and keep the fuzzy ordering.
type MatchRanker interface {
	PickBestMatch(ctx context.Context, artist, title string, candidates []platforms.Track) (*MatchJudgment, error)
}
