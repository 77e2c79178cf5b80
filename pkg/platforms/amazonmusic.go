package platforms

import (
	"context"
	"net/url"
)

// AmazonMusicAdapter is a search-only adapter. Amazon Music has no public
// catalog API, so the platform can never be a resolution source; the
// adapter only emits music.amazon.com search links as fan-out targets.
type AmazonMusicAdapter struct{}

// NewAmazonMusicAdapter creates a new Amazon Music adapter.
func NewAmazonMusicAdapter() *AmazonMusicAdapter {
	return &AmazonMusicAdapter{}
}

// Platform returns the platform tag.
func (a *AmazonMusicAdapter) Platform() Platform { return AmazonMusic }

// Search emits a music.amazon.com search link for the artist and title.
func (a *AmazonMusicAdapter) Search(_ context.Context, artist, title, _ string) (*Link, error) {
	query := url.QueryEscape(artist + " " + title)
	return &Link{
		Platform: AmazonMusic,
		URL:      "https://music.amazon.com/search/" + query,
		Kind:     LinkSearch,
	}, nil
}
