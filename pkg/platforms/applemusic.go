package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// iTunesLookupURL is the iTunes/Apple Music API lookup endpoint.
const iTunesLookupURL = "https://itunes.apple.com/lookup"

// AppleMusicAdapter resolves Apple Music tracks. Extraction uses the
// iTunes lookup API; search only produces a music.apple.com query link
// since the catalog search requires developer credentials.
type AppleMusicAdapter struct {
	client    *http.Client
	lookupURL string
}

// NewAppleMusicAdapter creates a new Apple Music adapter.
func NewAppleMusicAdapter() *AppleMusicAdapter {
	return &AppleMusicAdapter{
		client:    newHTTPClient(),
		lookupURL: iTunesLookupURL,
	}
}

// Platform returns the platform tag.
func (a *AppleMusicAdapter) Platform() Platform { return AppleMusic }

// iTunesLookupResponse represents the response from the iTunes lookup API.
type iTunesLookupResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackID        int64  `json:"trackId"`
		TrackName      string `json:"trackName"`
		ArtistName     string `json:"artistName"`
		ArtworkURL100  string `json:"artworkUrl100"`
		TrackViewURL   string `json:"trackViewUrl"`
		CollectionName string `json:"collectionName"`
	} `json:"results"`
}

// Extract fetches canonical metadata for an Apple Music track id.
func (a *AppleMusicAdapter) Extract(ctx context.Context, entityType EntityType, id string) (*Track, error) {
	if entityType != EntitySong {
		return nil, ErrUnsupported
	}

	reqURL := fmt.Sprintf("%s?id=%s&entity=song", a.lookupURL, url.QueryEscape(id))

	var lookup iTunesLookupResponse
	if err := fetchJSON(ctx, a.client, reqURL, &lookup); err != nil {
		return nil, err
	}
	if lookup.ResultCount == 0 || len(lookup.Results) == 0 {
		return nil, ErrNotFound
	}

	result := lookup.Results[0]
	pageURL := result.TrackViewURL
	if pageURL == "" {
		pageURL = "https://music.apple.com/song/" + id
	}

	return &Track{
		Platform:        AppleMusic,
		Type:            EntitySong,
		ID:              id,
		Title:           result.TrackName,
		Artist:          result.ArtistName,
		Thumbnail:       upscaleArtwork(result.ArtworkURL100),
		ThumbnailWidth:  640,
		ThumbnailHeight: 640,
		URL:             pageURL,
	}, nil
}

// upscaleArtwork swaps the 100x100 artwork path for a larger rendition.
// iTunes serves any requested size through the same CDN path scheme.
func upscaleArtwork(artworkURL string) string {
	return strings.Replace(artworkURL, "100x100bb", "640x640bb", 1)
}

// Search emits a music.apple.com search link. No direct catalog match is
// possible without Apple developer credentials, so the result is always
// a search-kind link.
func (a *AppleMusicAdapter) Search(_ context.Context, artist, title, _ string) (*Link, error) {
	query := url.QueryEscape(artist + " " + title)
	return &Link{
		Platform: AppleMusic,
		URL:      "https://music.apple.com/search?term=" + query,
		Kind:     LinkSearch,
	}, nil
}
