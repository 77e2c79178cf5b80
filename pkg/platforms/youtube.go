package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const (
	// youTubeOEmbedURL is the YouTube oEmbed API endpoint.
	youTubeOEmbedURL = "https://www.youtube.com/oembed"
	// youTubeSearchAPIURL is the YouTube Data API v3 search endpoint.
	youTubeSearchAPIURL = "https://www.googleapis.com/youtube/v3/search"
	// youTubeSearchMaxResults bounds how many candidates we inspect.
	youTubeSearchMaxResults = 5
	// splitParts is the expected number of parts when splitting
	// "Artist - Title" strings.
	splitParts = 2
)

// titleNoisePattern matches common video-only decorations in titles.
var titleNoisePattern = regexp.MustCompile(
	`(?i)\s*[\(\[](official (music )?video|official audio|lyric video|lyrics|hd|4k)[\)\]]\s*`)

// camelBoundaryPattern finds lower-to-upper transitions for splitting
// VEVO channel names into artist names.
var camelBoundaryPattern = regexp.MustCompile(`([a-z])([A-Z])`)

// YouTubeAdapter resolves YouTube and YouTube Music links. Extraction
// uses the keyless oEmbed API; search uses the Data API v3 when an API
// key is configured and degrades to a music.youtube.com query link
// without one.
type YouTubeAdapter struct {
	client    *http.Client
	apiKey    string
	oembedURL string
	searchURL string
}

// NewYouTubeAdapter creates a new YouTube adapter. apiKey may be empty.
func NewYouTubeAdapter(apiKey string) *YouTubeAdapter {
	return &YouTubeAdapter{
		client:    newHTTPClient(),
		apiKey:    apiKey,
		oembedURL: youTubeOEmbedURL,
		searchURL: youTubeSearchAPIURL,
	}
}

// Platform returns the platform tag.
func (a *YouTubeAdapter) Platform() Platform { return YouTube }

// youTubeOEmbedResponse represents the response from YouTube's oEmbed API.
type youTubeOEmbedResponse struct {
	Title         string `json:"title"`
	AuthorName    string `json:"author_name"`
	ThumbnailURL  string `json:"thumbnail_url"`
	ThumbWidth    int    `json:"thumbnail_width"`
	ThumbHeight   int    `json:"thumbnail_height"`
	ProviderName  string `json:"provider_name"`
	ProviderURL   string `json:"provider_url"`
}

// Extract fetches metadata for a YouTube video id via oEmbed and derives
// track title and artist from the video title and channel name.
func (a *YouTubeAdapter) Extract(ctx context.Context, entityType EntityType, id string) (*Track, error) {
	if entityType != EntitySong {
		return nil, ErrUnsupported
	}

	videoURL := "https://www.youtube.com/watch?v=" + id
	reqURL := fmt.Sprintf("%s?url=%s&format=json", a.oembedURL, url.QueryEscape(videoURL))

	var oembed youTubeOEmbedResponse
	if err := fetchJSON(ctx, a.client, reqURL, &oembed); err != nil {
		return nil, err
	}

	title, artist := parseVideoTitle(oembed.Title, oembed.AuthorName)

	return &Track{
		Platform:        YouTube,
		Type:            EntitySong,
		ID:              id,
		Title:           title,
		Artist:          artist,
		Thumbnail:       oembed.ThumbnailURL,
		ThumbnailWidth:  oembed.ThumbWidth,
		ThumbnailHeight: oembed.ThumbHeight,
		URL:             "https://music.youtube.com/watch?v=" + id,
	}, nil
}

// parseVideoTitle derives a track title and artist from a YouTube video
// title and channel name. Common shapes: "Artist - Title (Official
// Video)" with any channel, or a bare title on a "Artist - Topic" or
// "ArtistVEVO" channel.
func parseVideoTitle(videoTitle, channel string) (title, artist string) {
	title = strings.TrimSpace(titleNoisePattern.ReplaceAllString(videoTitle, " "))

	if strings.Contains(title, " - ") {
		parts := strings.SplitN(title, " - ", splitParts)
		artist = strings.TrimSpace(parts[0])
		title = strings.TrimSpace(parts[1])
		return title, artist
	}

	switch {
	case strings.HasSuffix(channel, "VEVO"):
		artist = camelBoundaryPattern.ReplaceAllString(strings.TrimSuffix(channel, "VEVO"), "$1 $2")
	case strings.HasSuffix(channel, " - Topic"):
		artist = strings.TrimSuffix(channel, " - Topic")
	default:
		artist = channel
	}
	return title, strings.TrimSpace(artist)
}

// youTubeSearchResponse is the subset of the Data API search response we
// consume.
type youTubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search finds an equivalent video on YouTube Music. With an API key it
// queries the Data API preferring auto-generated Topic and VEVO channels
// (official uploads); without one it returns a query link.
func (a *YouTubeAdapter) Search(ctx context.Context, artist, title, _ string) (*Link, error) {
	if a.apiKey == "" {
		return a.searchLink(artist, title), nil
	}

	query := fmt.Sprintf("%s - %s official audio", artist, title)
	reqURL := fmt.Sprintf("%s?part=snippet&type=video&maxResults=%d&q=%s&key=%s",
		a.searchURL, youTubeSearchMaxResults, url.QueryEscape(query), url.QueryEscape(a.apiKey))

	var result youTubeSearchResponse
	if err := fetchJSON(ctx, a.client, reqURL, &result); err != nil {
		return a.searchLink(artist, title), nil
	}
	if len(result.Items) == 0 {
		return a.searchLink(artist, title), nil
	}

	pick := result.Items[0]
	for _, item := range result.Items {
		channel := item.Snippet.ChannelTitle
		if strings.Contains(channel, "Topic") || strings.Contains(channel, "VEVO") {
			pick = item
			break
		}
	}

	if pick.ID.VideoID == "" {
		return a.searchLink(artist, title), nil
	}

	return &Link{
		Platform:  YouTube,
		URL:       "https://music.youtube.com/watch?v=" + pick.ID.VideoID,
		EntityKey: EntityKey(YouTube, EntitySong, pick.ID.VideoID),
		Kind:      LinkDirect,
	}, nil
}

func (a *YouTubeAdapter) searchLink(artist, title string) *Link {
	query := url.QueryEscape(artist + " " + title)
	return &Link{
		Platform: YouTube,
		URL:      "https://music.youtube.com/search?q=" + query,
		Kind:     LinkSearch,
	}
}
