package core

import (
	"sort"
	"strings"

	"unitune/pkg/platforms"
)

// Assembler builds the final resolution document from the canonical
// track and the merged fan-out links.
type Assembler struct {
	baseURL     string
	userCountry string
}

// NewAssembler creates an assembler issuing share links under baseURL.
func NewAssembler(baseURL, userCountry string) *Assembler {
	return &Assembler{baseURL: baseURL, userCountry: userCountry}
}

// Assemble merges the canonical track and per-platform links into a
// Resolution. Links whose entity key prefix contradicts their own
// platform tag are dropped as malformed adapter output.
func (a *Assembler) Assemble(track *platforms.Track, links []*platforms.Link) *Resolution {
	entityKey := track.EntityKey()

	linksByPlatform := make(map[string]LinkEntry, len(links))
	for _, link := range links {
		if link == nil || link.URL == "" {
			continue
		}
		if !entityKeyMatchesPlatform(link.EntityKey, link.Platform) {
			continue
		}
		key := link.EntityKey
		if key == "" {
			// Search-kind links carry no catalog id of their own; they
			// reference the canonical entity.
			key = entityKey
		}
		linksByPlatform[string(link.Platform)] = LinkEntry{
			URL:            link.URL,
			EntityUniqueID: key,
			LinkKind:       string(link.Kind),
		}
	}

	present := make([]string, 0, len(linksByPlatform))
	for p := range linksByPlatform {
		present = append(present, p)
	}
	sort.Strings(present)

	return &Resolution{
		EntityUniqueID: entityKey,
		UserCountry:    a.userCountry,
		PageURL:        platforms.ShareURL(a.baseURL, track.Platform, track.Type, track.ID),
		LinksByPlatform: linksByPlatform,
		EntitiesByUniqueID: map[string]Entity{
			entityKey: {
				ID:              track.ID,
				Type:            string(track.Type),
				Title:           track.Title,
				ArtistName:      track.Artist,
				ThumbnailURL:    track.Thumbnail,
				ThumbnailWidth:  track.ThumbnailWidth,
				ThumbnailHeight: track.ThumbnailHeight,
				APIProvider:     string(track.Platform),
				Platforms:       present,
			},
		},
	}
}

// entityKeyMatchesPlatform verifies the invariant that a link's entity
// key names the link's own platform. Empty keys are allowed for
// search-kind links.
func entityKeyMatchesPlatform(entityKey string, p platforms.Platform) bool {
	if entityKey == "" {
		return true
	}
	return strings.HasPrefix(entityKey, strings.ToUpper(string(p))+"::")
}
