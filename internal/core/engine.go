package core

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"unitune/pkg/platforms"
)

// Engine orchestrates a resolution: classify or decode the input,
// extract canonical metadata from the source platform, fan out searches
// to every other platform concurrently, and assemble the merged result.
// The Engine owns the partial-failure policy: a resolution succeeds as
// long as source extraction succeeded, no matter how many target
// searches failed.
type Engine struct {
	config    *ResolverConfig
	registry  *platforms.Registry
	cache     ResultCache
	cover     CoverSource
	assembler *Assembler
	logger    *zap.Logger
}

// NewEngine creates a resolution engine. cache and cover may be nil, in
// which case resolutions are uncached and thumbnails come from the
// source platform only.
func NewEngine(
	config *ResolverConfig,
	registry *platforms.Registry,
	cache ResultCache,
	cover CoverSource,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		config:    config,
		registry:  registry,
		cache:     cache,
		cover:     cover,
		assembler: NewAssembler(config.BaseURL, config.UserCountry),
		logger:    logger,
	}
}

// Resolve turns a music link or share token into a full Resolution.
// Returned errors are limited to the resolution-level taxonomy in
// types.go; per-platform fan-out failures only shrink the link set.
func (e *Engine) Resolve(ctx context.Context, input string) (*Resolution, error) {
	classification, ok := e.classify(input)
	if !ok {
		return nil, ErrUnrecognizedInput
	}

	extractor, ok := e.registry.Extractor(classification.Platform)
	if !ok {
		return nil, ErrUnsupportedSource
	}

	entityKey := platforms.EntityKey(classification.Platform, classification.Type, classification.ID)

	if e.cache != nil {
		if cached, hit := e.cache.Get(entityKey); hit {
			e.logger.Debug("Cache hit", zap.String("entity", entityKey))
			return cached, nil
		}
		if e.cache.WasNotFound(entityKey) {
			return nil, ErrEntityNotFound
		}
	}

	if e.config.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.OverallTimeout)
		defer cancel()
	}

	track, err := e.extract(ctx, extractor, classification)
	if err != nil {
		return nil, err
	}

	links := e.fanOut(ctx, track)

	resolution := e.assembler.Assemble(track, links)
	if e.cache != nil {
		e.cache.Put(entityKey, resolution)
	}

	return resolution, nil
}

// classify recognizes the input either as a direct platform URL or as a
// share token (structured or legacy).
func (e *Engine) classify(input string) (platforms.Classification, bool) {
	if c, ok := platforms.Classify(input); ok {
		return c, true
	}
	return platforms.Decode(input)
}

func (e *Engine) extract(
	ctx context.Context,
	extractor platforms.Extractor,
	c platforms.Classification,
) (*platforms.Track, error) {
	track, err := extractor.Extract(ctx, c.Type, c.ID)
	if err == nil {
		return track, nil
	}

	switch {
	case errors.Is(err, platforms.ErrNotFound):
		if e.cache != nil {
			e.cache.MarkNotFound(platforms.EntityKey(c.Platform, c.Type, c.ID))
		}
		return nil, ErrEntityNotFound
	case errors.Is(err, platforms.ErrUnsupported):
		return nil, ErrUnsupportedSource
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return nil, ErrUpstreamTimeout
	default:
		e.logger.Warn("Source extraction failed",
			zap.String("platform", string(c.Platform)),
			zap.String("id", c.ID),
			zap.Error(err))
		return nil, ErrEntityNotFound
	}
}

// fanOut searches every other platform for the track concurrently. The
// source platform's own link is inserted directly without a search; the
// Spotify link falls out of the cover-art lookup when available. Each
// call is independent: one adapter's failure or timeout never aborts
// the others, and failed platforms are simply omitted.
func (e *Engine) fanOut(ctx context.Context, track *platforms.Track) []*platforms.Link {
	var (
		mu    sync.Mutex
		links []*platforms.Link
	)

	add := func(link *platforms.Link) {
		mu.Lock()
		links = append(links, link)
		mu.Unlock()
	}

	// The source platform always appears with a direct self-link,
	// independent of fan-out completion.
	add(&platforms.Link{
		Platform:  track.Platform,
		URL:       track.URL,
		EntityKey: track.EntityKey(),
		Kind:      platforms.LinkDirect,
	})

	// Canonical cover art comes from Spotify regardless of the source
	// platform; the search result doubles as the Spotify link.
	artist, title, isrc := track.Artist, track.Title, track.ISRC
	spotifyDone := track.Platform == platforms.Spotify
	if !spotifyDone && e.cover != nil {
		match, err := e.searchCover(ctx, artist, title, isrc)
		if err == nil && match != nil {
			track.Thumbnail = match.Thumbnail
			track.ThumbnailWidth = match.ThumbnailWidth
			track.ThumbnailHeight = match.ThumbnailHeight
			if isrc == "" {
				isrc = match.ISRC
				track.ISRC = match.ISRC
			}
			add(&platforms.Link{
				Platform:  platforms.Spotify,
				URL:       match.URL,
				EntityKey: match.EntityKey(),
				Kind:      platforms.LinkDirect,
			})
			spotifyDone = true
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.config.MaxConcurrent > 0 {
		g.SetLimit(e.config.MaxConcurrent)
	}

	for _, searcher := range e.registry.Searchers() {
		platform := searcher.Platform()
		if platform == track.Platform {
			continue
		}
		if platform == platforms.Spotify && spotifyDone {
			continue
		}

		searcher := searcher
		g.Go(func() error {
			callCtx := gctx
			if e.config.AdapterTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, e.config.AdapterTimeout)
				defer cancel()
			}

			link, err := searcher.Search(callCtx, artist, title, isrc)
			if err != nil {
				if !errors.Is(err, platforms.ErrNotFound) {
					e.logger.Warn("Platform search failed",
						zap.String("platform", string(platform)),
						zap.Error(err))
				}
				return nil
			}
			if link == nil || link.Platform != platform {
				// Malformed adapter output is treated as that
				// platform's NotFound.
				e.logger.Warn("Platform search returned malformed link",
					zap.String("platform", string(platform)))
				return nil
			}
			add(link)
			return nil
		})
	}

	// Fan-out goroutines only ever return nil; Wait is for joining.
	_ = g.Wait()

	return links
}

func (e *Engine) searchCover(ctx context.Context, artist, title, isrc string) (*platforms.Track, error) {
	callCtx := ctx
	if e.config.AdapterTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.config.AdapterTimeout)
		defer cancel()
	}
	return e.cover.SearchTrack(callCtx, artist, title, isrc)
}
