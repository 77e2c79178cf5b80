// Package spotify provides the Spotify Web API adapter: source
// extraction, cross-platform link search, and canonical cover art.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"unitune/internal/core"
	"unitune/pkg/fuzzy"
	"unitune/pkg/platforms"
)

const (
	// MaxSearchResults limits candidates considered per text search.
	MaxSearchResults = 5
	// MinMatchScore is the lowest fuzzy score accepted as a match.
	MinMatchScore = 0.4
	// AmbiguityMargin is the score gap under which the top candidates
	// count as tied and are handed to the match ranker.
	AmbiguityMargin = 0.1
)

// Client wraps the Spotify Web API behind the adapter capabilities.
// It is the only adapter that authenticates; everything it serves uses
// the app-level client credentials flow, never a user token.
type Client struct {
	config     *core.SpotifyConfig
	logger     *zap.Logger
	client     *spotify.Client
	normalizer *fuzzy.Normalizer
	ranker     core.MatchRanker
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger, ranker core.MatchRanker) *Client {
	return &Client{
		config:     config,
		logger:     logger,
		normalizer: fuzzy.NewNormalizer(),
		ranker:     ranker,
	}
}

// Connect authenticates with the client credentials flow. The token is
// fetched eagerly so misconfiguration surfaces at startup, then the
// underlying HTTP client refreshes it transparently.
func (c *Client) Connect(ctx context.Context) error {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return fmt.Errorf("spotify client credentials are required")
	}

	creds := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	if _, err := creds.Token(ctx); err != nil {
		return fmt.Errorf("spotify authentication failed: %w", err)
	}

	c.client = spotify.New(creds.Client(ctx))
	c.logger.Info("Spotify client authenticated")

	return nil
}

func (c *Client) Platform() platforms.Platform {
	return platforms.Spotify
}

// Extract loads canonical metadata for a Spotify track or album id.
func (c *Client) Extract(ctx context.Context, entityType platforms.EntityType, id string) (*platforms.Track, error) {
	if c.client == nil {
		return nil, fmt.Errorf("spotify client not authenticated")
	}

	switch entityType {
	case platforms.EntitySong:
		track, err := c.client.GetTrack(ctx, spotify.ID(id))
		if err != nil {
			return nil, c.mapError(err)
		}
		return c.convertTrack(track), nil
	case platforms.EntityAlbum:
		album, err := c.client.GetAlbum(ctx, spotify.ID(id))
		if err != nil {
			return nil, c.mapError(err)
		}
		return c.convertAlbum(album), nil
	default:
		return nil, platforms.ErrUnsupported
	}
}

// Search finds the Spotify link equivalent to a track from another
// platform. When no confident match exists it degrades to a search
// page link rather than failing.
func (c *Client) Search(ctx context.Context, artist, title, isrc string) (*platforms.Link, error) {
	match, err := c.SearchTrack(ctx, artist, title, isrc)
	if err != nil {
		if errors.Is(err, platforms.ErrNotFound) {
			return c.searchPageLink(artist, title), nil
		}
		return nil, err
	}

	return &platforms.Link{
		Platform:  platforms.Spotify,
		URL:       match.URL,
		EntityKey: match.EntityKey(),
		Kind:      platforms.LinkDirect,
	}, nil
}

// SearchTrack locates the best matching Spotify track. An ISRC match is
// authoritative; otherwise candidates from a field-filtered text search
// are ranked by fuzzy similarity, with the match ranker breaking ties.
func (c *Client) SearchTrack(ctx context.Context, artist, title, isrc string) (*platforms.Track, error) {
	if c.client == nil {
		return nil, fmt.Errorf("spotify client not authenticated")
	}

	if isrc != "" {
		if track, err := c.searchByISRC(ctx, isrc); err == nil {
			return track, nil
		}
	}

	return c.searchByText(ctx, artist, title)
}

func (c *Client) searchByISRC(ctx context.Context, isrc string) (*platforms.Track, error) {
	results, err := c.client.Search(ctx, "isrc:"+isrc, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, c.mapError(err)
	}

	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, platforms.ErrNotFound
	}

	return c.convertTrack(&results.Tracks.Tracks[0]), nil
}

func (c *Client) searchByText(ctx context.Context, artist, title string) (*platforms.Track, error) {
	query := fmt.Sprintf("track:%s artist:%s", title, artist)

	results, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(MaxSearchResults))
	if err != nil {
		return nil, c.mapError(err)
	}

	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, platforms.ErrNotFound
	}

	candidates := make([]*platforms.Track, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		candidates = append(candidates, c.convertTrack(&results.Tracks.Tracks[i]))
	}

	best := c.pickBest(ctx, artist, title, candidates)
	if best == nil {
		return nil, platforms.ErrNotFound
	}

	return best, nil
}

// pickBest scores candidates against the wanted artist and title and
// returns the winner, or nil when even the winner scores too low. Tied
// leaders go to the match ranker when one is configured.
func (c *Client) pickBest(ctx context.Context, artist, title string, candidates []*platforms.Track) *platforms.Track {
	wantTitle := c.normalizer.NormalizeTitle(title)
	wantArtist := c.normalizer.NormalizeArtist(artist)

	bestIdx, secondIdx := -1, -1
	bestScore, secondScore := 0.0, 0.0
	for i, candidate := range candidates {
		score := c.matchScore(candidate, wantArtist, wantTitle)
		if score > bestScore {
			secondIdx, secondScore = bestIdx, bestScore
			bestIdx, bestScore = i, score
		} else if score > secondScore {
			secondIdx, secondScore = i, score
		}
	}

	if bestIdx < 0 || bestScore < MinMatchScore {
		return nil
	}

	if c.ranker != nil && secondIdx >= 0 && bestScore-secondScore < AmbiguityMargin {
		tracks := make([]platforms.Track, len(candidates))
		for i, candidate := range candidates {
			tracks[i] = *candidate
		}

		judgment, err := c.ranker.PickBestMatch(ctx, artist, title, tracks)
		if err != nil {
			c.logger.Debug("Match ranker unavailable, keeping fuzzy winner", zap.Error(err))
		} else if judgment != nil && judgment.Index >= 0 && judgment.Index < len(candidates) {
			c.logger.Debug("Match ranker broke candidate tie",
				zap.Int("index", judgment.Index),
				zap.Float64("confidence", judgment.Confidence))
			return candidates[judgment.Index]
		}
	}

	return candidates[bestIdx]
}

func (c *Client) matchScore(candidate *platforms.Track, wantArtist, wantTitle string) float64 {
	gotTitle := c.normalizer.NormalizeTitle(candidate.Title)
	gotArtist := c.normalizer.NormalizeArtist(candidate.Artist)

	titleWeight := 0.7
	artistWeight := 0.3

	return titleWeight*c.normalizer.CalculateSimilarity(gotTitle, wantTitle) +
		artistWeight*c.normalizer.CalculateSimilarity(gotArtist, wantArtist)
}

func (c *Client) searchPageLink(artist, title string) *platforms.Link {
	query := strings.TrimSpace(artist + " " + title)
	return &platforms.Link{
		Platform: platforms.Spotify,
		URL:      "https://open.spotify.com/search/" + url.PathEscape(query),
		Kind:     platforms.LinkSearch,
	}
}

func (c *Client) convertTrack(track *spotify.FullTrack) *platforms.Track {
	var artists []string
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	out := &platforms.Track{
		Platform: platforms.Spotify,
		Type:     platforms.EntitySong,
		ID:       string(track.ID),
		Title:    track.Name,
		Artist:   strings.Join(artists, ", "),
		ISRC:     track.ExternalIDs["isrc"],
		URL:      track.ExternalURLs["spotify"],
	}

	c.applyLargestImage(out, track.Album.Images)

	return out
}

func (c *Client) convertAlbum(album *spotify.FullAlbum) *platforms.Track {
	var artists []string
	for _, artist := range album.Artists {
		artists = append(artists, artist.Name)
	}

	out := &platforms.Track{
		Platform: platforms.Spotify,
		Type:     platforms.EntityAlbum,
		ID:       string(album.ID),
		Title:    album.Name,
		Artist:   strings.Join(artists, ", "),
		URL:      album.ExternalURLs["spotify"],
	}

	c.applyLargestImage(out, album.Images)

	return out
}

func (c *Client) applyLargestImage(track *platforms.Track, images []spotify.Image) {
	for _, img := range images {
		if int(img.Width) > track.ThumbnailWidth {
			track.Thumbnail = img.URL
			track.ThumbnailWidth = int(img.Width)
			track.ThumbnailHeight = int(img.Height)
		}
	}
}

// mapError folds Spotify API errors into the adapter error taxonomy so
// the engine can tell a missing entity from an upstream fault.
func (c *Client) mapError(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == 404 {
		return platforms.ErrNotFound
	}
	return err
}
