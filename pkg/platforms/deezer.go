package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// deezerAPIBaseURL is the public Deezer API; no key needed.
const deezerAPIBaseURL = "https://api.deezer.com"

// DeezerAdapter resolves Deezer tracks and albums via the keyless public
// API. It supports both extraction and search.
type DeezerAdapter struct {
	client  *http.Client
	baseURL string
}

// NewDeezerAdapter creates a new Deezer adapter.
func NewDeezerAdapter() *DeezerAdapter {
	return &DeezerAdapter{
		client:  newHTTPClient(),
		baseURL: deezerAPIBaseURL,
	}
}

// Platform returns the platform tag.
func (a *DeezerAdapter) Platform() Platform { return Deezer }

// deezerEntity covers the track and album shapes; Deezer signals missing
// entities with an embedded error object rather than a 404.
type deezerEntity struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	ISRC   string `json:"isrc"`
	Cover  string `json:"cover_xl"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
	Error *struct {
		Code int `json:"code"`
	} `json:"error"`
}

// Extract fetches canonical metadata for a Deezer track or album id.
func (a *DeezerAdapter) Extract(ctx context.Context, entityType EntityType, id string) (*Track, error) {
	path := "track"
	if entityType == EntityAlbum {
		path = "album"
	}
	reqURL := fmt.Sprintf("%s/%s/%s", a.baseURL, path, url.PathEscape(id))

	var entity deezerEntity
	if err := fetchJSON(ctx, a.client, reqURL, &entity); err != nil {
		return nil, err
	}
	if entity.Error != nil || entity.ID == 0 {
		return nil, ErrNotFound
	}

	pageURL := entity.Link
	if pageURL == "" {
		pageURL = fmt.Sprintf("https://www.deezer.com/%s/%s", path, id)
	}

	return &Track{
		Platform:        Deezer,
		Type:            entityType,
		ID:              id,
		Title:           entity.Title,
		Artist:          entity.Artist.Name,
		ISRC:            entity.ISRC,
		Thumbnail:       entity.Cover,
		ThumbnailWidth:  1000,
		ThumbnailHeight: 1000,
		URL:             pageURL,
	}, nil
}

type deezerSearchResponse struct {
	Data []deezerEntity `json:"data"`
}

// Search finds an equivalent track on Deezer, trying the ISRC endpoint
// first and a quoted field query second. The deezer.com search page is
// the last-resort fallback link.
func (a *DeezerAdapter) Search(ctx context.Context, artist, title, isrc string) (*Link, error) {
	if isrc != "" {
		if link, err := a.searchByISRC(ctx, isrc); err == nil {
			return link, nil
		}
	}

	query := fmt.Sprintf(`artist:"%s" track:"%s"`, artist, title)
	reqURL := fmt.Sprintf("%s/search?q=%s", a.baseURL, url.QueryEscape(query))

	var result deezerSearchResponse
	if err := fetchJSON(ctx, a.client, reqURL, &result); err == nil && len(result.Data) > 0 {
		return deezerLink(&result.Data[0]), nil
	}

	fallback := url.QueryEscape(artist + " " + title)
	return &Link{
		Platform: Deezer,
		URL:      "https://www.deezer.com/search/" + fallback,
		Kind:     LinkSearch,
	}, nil
}

func (a *DeezerAdapter) searchByISRC(ctx context.Context, isrc string) (*Link, error) {
	reqURL := fmt.Sprintf("%s/track/isrc:%s", a.baseURL, url.PathEscape(isrc))

	var entity deezerEntity
	if err := fetchJSON(ctx, a.client, reqURL, &entity); err != nil {
		return nil, err
	}
	if entity.Error != nil || entity.ID == 0 {
		return nil, ErrNotFound
	}
	return deezerLink(&entity), nil
}

func deezerLink(entity *deezerEntity) *Link {
	id := fmt.Sprintf("%d", entity.ID)
	pageURL := entity.Link
	if pageURL == "" {
		pageURL = "https://www.deezer.com/track/" + id
	}
	return &Link{
		Platform:  Deezer,
		URL:       pageURL,
		EntityKey: EntityKey(Deezer, EntitySong, id),
		Kind:      LinkDirect,
	}
}
