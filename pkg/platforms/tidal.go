package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// tidalAPIBaseURL is the public Tidal catalog API (no auth required).
	tidalAPIBaseURL = "https://api.tidal.com/v1"
	// tidalCountryCode is the market used for catalog lookups.
	tidalCountryCode = "US"
	// tidalImageSize is the requested cover art resolution.
	tidalImageSize = 640
)

// TidalAdapter resolves Tidal tracks through the public catalog API. It
// supports both extraction and search.
type TidalAdapter struct {
	client  *http.Client
	baseURL string
}

// NewTidalAdapter creates a new Tidal adapter.
func NewTidalAdapter() *TidalAdapter {
	return &TidalAdapter{
		client:  newHTTPClient(),
		baseURL: tidalAPIBaseURL,
	}
}

// Platform returns the platform tag.
func (a *TidalAdapter) Platform() Platform { return Tidal }

// tidalTrack is the track shape returned by the public API.
type tidalTrack struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ISRC     string `json:"isrc"`
	Duration int    `json:"duration"`
	Artist   struct {
		Name string `json:"name"`
	} `json:"artist"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Cover string `json:"cover"`
	} `json:"album"`
}

func (t *tidalTrack) artistName() string {
	if t.Artist.Name != "" {
		return t.Artist.Name
	}
	if len(t.Artists) > 0 {
		return t.Artists[0].Name
	}
	return ""
}

// thumbnailURL converts the album cover id into a resources.tidal.com
// image URL. Cover ids use dashes where the image path uses slashes.
func (t *tidalTrack) thumbnailURL() string {
	if t.Album.Cover == "" {
		return ""
	}
	path := strings.ReplaceAll(t.Album.Cover, "-", "/")
	return fmt.Sprintf("https://resources.tidal.com/images/%s/%dx%d.jpg", path, tidalImageSize, tidalImageSize)
}

// Extract fetches canonical metadata for a Tidal track id.
func (a *TidalAdapter) Extract(ctx context.Context, entityType EntityType, id string) (*Track, error) {
	if entityType != EntitySong {
		return nil, ErrUnsupported
	}

	reqURL := fmt.Sprintf("%s/tracks/%s?countryCode=%s", a.baseURL, url.PathEscape(id), tidalCountryCode)

	var track tidalTrack
	if err := fetchJSON(ctx, a.client, reqURL, &track); err != nil {
		return nil, err
	}
	if track.Title == "" {
		return nil, ErrNotFound
	}

	return &Track{
		Platform:        Tidal,
		Type:            EntitySong,
		ID:              id,
		Title:           track.Title,
		Artist:          track.artistName(),
		ISRC:            track.ISRC,
		Thumbnail:       track.thumbnailURL(),
		ThumbnailWidth:  tidalImageSize,
		ThumbnailHeight: tidalImageSize,
		URL:             "https://tidal.com/browse/track/" + id,
	}, nil
}

// tidalSearchResponse is the shape of the public search endpoint.
type tidalSearchResponse struct {
	Items []tidalTrack `json:"items"`
}

// Search finds an equivalent track on Tidal, trying ISRC first for
// accuracy and falling back to a text query. When the API yields nothing
// a listen.tidal.com search link is returned instead.
func (a *TidalAdapter) Search(ctx context.Context, artist, title, isrc string) (*Link, error) {
	if isrc != "" {
		if link, err := a.searchQuery(ctx, isrc); err == nil {
			return link, nil
		}
	}

	link, err := a.searchQuery(ctx, artist+" "+title)
	if err == nil {
		return link, nil
	}

	query := url.QueryEscape(artist + " " + title)
	return &Link{
		Platform: Tidal,
		URL:      "https://listen.tidal.com/search?q=" + query,
		Kind:     LinkSearch,
	}, nil
}

func (a *TidalAdapter) searchQuery(ctx context.Context, query string) (*Link, error) {
	reqURL := fmt.Sprintf("%s/search/tracks?query=%s&limit=1&countryCode=%s",
		a.baseURL, url.QueryEscape(query), tidalCountryCode)

	var result tidalSearchResponse
	if err := fetchJSON(ctx, a.client, reqURL, &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	id := fmt.Sprintf("%d", result.Items[0].ID)
	return &Link{
		Platform:  Tidal,
		URL:       "https://tidal.com/browse/track/" + id,
		EntityKey: EntityKey(Tidal, EntitySong, id),
		Kind:      LinkDirect,
	}, nil
}
