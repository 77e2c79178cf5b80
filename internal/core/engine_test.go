package core

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"unitune/pkg/platforms"
)

// fakeAdapter is a configurable test double covering both capabilities.
type fakeAdapter struct {
	platform   platforms.Platform
	track      *platforms.Track
	extractErr error
	link       *platforms.Link
	searchErr  error
	delay      time.Duration

	extractCalls atomic.Int32
	searchCalls  atomic.Int32
}

func (f *fakeAdapter) Platform() platforms.Platform { return f.platform }

func (f *fakeAdapter) Extract(ctx context.Context, _ platforms.EntityType, _ string) (*platforms.Track, error) {
	f.extractCalls.Add(1)
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.track, nil
}

func (f *fakeAdapter) Search(ctx context.Context, _, _, _ string) (*platforms.Link, error) {
	f.searchCalls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.link, nil
}

// searchOnlyAdapter has no extract capability.
type searchOnlyAdapter struct {
	platform platforms.Platform
	link     *platforms.Link
}

func (s *searchOnlyAdapter) Platform() platforms.Platform { return s.platform }

func (s *searchOnlyAdapter) Search(context.Context, string, string, string) (*platforms.Link, error) {
	return s.link, nil
}

// memoryCache is a trivial ResultCache for tests.
type memoryCache struct {
	mu       sync.Mutex
	results  map[string]*Resolution
	missing  map[string]bool
	putCalls int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		results: make(map[string]*Resolution),
		missing: make(map[string]bool),
	}
}

func (m *memoryCache) Get(key string) (*Resolution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[key]
	return r, ok
}

func (m *memoryCache) Put(key string, res *Resolution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = res
	m.putCalls++
}

func (m *memoryCache) MarkNotFound(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing[key] = true
}

func (m *memoryCache) WasNotFound(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.missing[key]
}

func tidalTrackFixture() *platforms.Track {
	return &platforms.Track{
		Platform: platforms.Tidal,
		Type:     platforms.EntitySong,
		ID:       "258735410",
		Title:    "Bohemian Rhapsody",
		Artist:   "Queen",
		ISRC:     "GBUM71029604",
		URL:      "https://tidal.com/browse/track/258735410",
	}
}

func testResolverConfig() *ResolverConfig {
	return &ResolverConfig{
		BaseURL:        "https://unitune.art",
		AdapterTimeout: 200 * time.Millisecond,
		OverallTimeout: time.Second,
		MaxConcurrent:  4,
		UserCountry:    "US",
	}
}

func directLink(p platforms.Platform, id string) *platforms.Link {
	return &platforms.Link{
		Platform:  p,
		URL:       "https://" + string(p) + ".example/" + id,
		EntityKey: platforms.EntityKey(p, platforms.EntitySong, id),
		Kind:      platforms.LinkDirect,
	}
}

func TestEngine_Resolve_FullFanOut(t *testing.T) {
	t.Helper()

	source := &fakeAdapter{platform: platforms.Tidal, track: tidalTrackFixture()}
	deezer := &fakeAdapter{platform: platforms.Deezer, link: directLink(platforms.Deezer, "3135556")}
	amazon := &searchOnlyAdapter{
		platform: platforms.AmazonMusic,
		link: &platforms.Link{
			Platform: platforms.AmazonMusic,
			URL:      "https://music.amazon.com/search/Queen+Bohemian+Rhapsody",
			Kind:     platforms.LinkSearch,
		},
	}

	registry := platforms.NewRegistry(source, deezer, amazon)
	engine := NewEngine(testResolverConfig(), registry, nil, nil, zap.NewNop())

	res, err := engine.Resolve(context.Background(), "https://tidal.com/track/258735410")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if res.EntityUniqueID != "TIDAL::SONG::258735410" {
		t.Errorf("entityUniqueId = %q", res.EntityUniqueID)
	}

	// Source self-link is present, direct, and was not searched for.
	self, ok := res.LinksByPlatform["tidal"]
	if !ok {
		t.Fatal("source platform missing from linksByPlatform")
	}
	if self.LinkKind != "direct" || self.URL != "https://tidal.com/browse/track/258735410" {
		t.Errorf("self link = %+v", self)
	}
	if source.searchCalls.Load() != 0 {
		t.Error("engine searched the source platform")
	}

	if link := res.LinksByPlatform["deezer"]; link.LinkKind != "direct" {
		t.Errorf("deezer link = %+v", link)
	}
	if link := res.LinksByPlatform["amazonMusic"]; link.LinkKind != "search" {
		t.Errorf("amazonMusic link = %+v", link)
	}
	// Search links without own catalog id reference the canonical entity.
	if link := res.LinksByPlatform["amazonMusic"]; link.EntityUniqueID != res.EntityUniqueID {
		t.Errorf("search link entity = %q", link.EntityUniqueID)
	}

	entity, ok := res.EntitiesByUniqueID[res.EntityUniqueID]
	if !ok {
		t.Fatal("canonical entity missing")
	}
	if entity.Title != "Bohemian Rhapsody" || entity.ArtistName != "Queen" {
		t.Errorf("entity = %+v", entity)
	}

	// Share page URL embeds a token that decodes back to the source.
	c, ok := platforms.Decode(res.PageURL[len("https://unitune.art/s/"):])
	if !ok || c.Platform != platforms.Tidal || c.ID != "258735410" {
		t.Errorf("pageUrl token decodes to %+v", c)
	}
}

func TestEngine_Resolve_UnrecognizedInput(t *testing.T) {
	t.Helper()

	engine := NewEngine(testResolverConfig(), platforms.NewRegistry(), nil, nil, zap.NewNop())

	_, err := engine.Resolve(context.Background(), "https://example.com/nope")
	if !errors.Is(err, ErrUnrecognizedInput) {
		t.Errorf("Resolve() error = %v, want ErrUnrecognizedInput", err)
	}
}

func TestEngine_Resolve_UnsupportedSource(t *testing.T) {
	t.Helper()

	// Amazon Music is registered but search-only, so it can never be a
	// source. No partial result is produced.
	registry := platforms.NewRegistry(&searchOnlyAdapter{platform: platforms.AmazonMusic})
	engine := NewEngine(testResolverConfig(), registry, nil, nil, zap.NewNop())

	res, err := engine.Resolve(context.Background(), "https://music.amazon.com/tracks/B0CLV1GJHS")
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("Resolve() error = %v, want ErrUnsupportedSource", err)
	}
	if res != nil {
		t.Error("Resolve() returned a partial result for unsupported source")
	}
}

func TestEngine_Resolve_EntityNotFound(t *testing.T) {
	t.Helper()

	source := &fakeAdapter{platform: platforms.Tidal, extractErr: platforms.ErrNotFound}
	registry := platforms.NewRegistry(source)
	cache := newMemoryCache()
	engine := NewEngine(testResolverConfig(), registry, cache, nil, zap.NewNop())

	_, err := engine.Resolve(context.Background(), "https://tidal.com/track/999999")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrEntityNotFound", err)
	}

	// Second attempt is answered from the negative cache without a new
	// extraction.
	_, err = engine.Resolve(context.Background(), "https://tidal.com/track/999999")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if got := source.extractCalls.Load(); got != 1 {
		t.Errorf("extract called %d times, want 1", got)
	}
}

func TestEngine_Resolve_PartialFailureTolerated(t *testing.T) {
	t.Helper()

	source := &fakeAdapter{platform: platforms.Tidal, track: tidalTrackFixture()}
	good := &fakeAdapter{platform: platforms.Deezer, link: directLink(platforms.Deezer, "1")}
	failing := &fakeAdapter{platform: platforms.AppleMusic, searchErr: errors.New("upstream 500")}
	hanging := &fakeAdapter{platform: platforms.YouTube, delay: 5 * time.Second, link: directLink(platforms.YouTube, "x")}

	registry := platforms.NewRegistry(source, good, failing, hanging)
	engine := NewEngine(testResolverConfig(), registry, nil, nil, zap.NewNop())

	res, err := engine.Resolve(context.Background(), "https://tidal.com/track/258735410")
	if err != nil {
		t.Fatalf("Resolve() error = %v, want success despite failures", err)
	}

	if _, ok := res.LinksByPlatform["deezer"]; !ok {
		t.Error("healthy platform missing")
	}
	if _, ok := res.LinksByPlatform["appleMusic"]; ok {
		t.Error("failing platform present, want omitted")
	}
	if _, ok := res.LinksByPlatform["youtube"]; ok {
		t.Error("timed-out platform present, want omitted")
	}
	if _, ok := res.LinksByPlatform["tidal"]; !ok {
		t.Error("source platform missing")
	}
}

func TestEngine_Resolve_MalformedAdapterLinkOmitted(t *testing.T) {
	t.Helper()

	source := &fakeAdapter{platform: platforms.Tidal, track: tidalTrackFixture()}
	// Adapter claims the deezer slot but returns a link tagged for
	// another platform.
	lying := &fakeAdapter{platform: platforms.Deezer, link: directLink(platforms.AppleMusic, "1")}

	registry := platforms.NewRegistry(source, lying)
	engine := NewEngine(testResolverConfig(), registry, nil, nil, zap.NewNop())

	res, err := engine.Resolve(context.Background(), "https://tidal.com/track/258735410")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, ok := res.LinksByPlatform["deezer"]; ok {
		t.Error("malformed link present, want omitted")
	}
	if _, ok := res.LinksByPlatform["appleMusic"]; ok {
		t.Error("mis-tagged link leaked into another platform's slot")
	}
}

func TestEngine_Resolve_CachedSecondCall(t *testing.T) {
	t.Helper()

	source := &fakeAdapter{platform: platforms.Tidal, track: tidalTrackFixture()}
	target := &fakeAdapter{platform: platforms.Deezer, link: directLink(platforms.Deezer, "1")}

	registry := platforms.NewRegistry(source, target)
	cache := newMemoryCache()
	engine := NewEngine(testResolverConfig(), registry, cache, nil, zap.NewNop())

	first, err := engine.Resolve(context.Background(), "https://tidal.com/track/258735410")
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}

	// Equivalent inputs (browse URL, share token) hit the same entry.
	token := platforms.Encode(platforms.Tidal, platforms.EntitySong, "258735410")
	second, err := engine.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("cached resolution differs from original")
	}
	if got := target.searchCalls.Load(); got != 1 {
		t.Errorf("search called %d times, want 1 (second call served from cache)", got)
	}
	if got := source.extractCalls.Load(); got != 1 {
		t.Errorf("extract called %d times, want 1", got)
	}
}

// coverStub fakes the Spotify cover-art lookup.
type coverStub struct {
	track *platforms.Track
	err   error
}

func (c *coverStub) SearchTrack(context.Context, string, string, string) (*platforms.Track, error) {
	return c.track, c.err
}

func TestEngine_Resolve_SpotifyCoverEnrichment(t *testing.T) {
	t.Helper()

	track := tidalTrackFixture()
	track.ISRC = ""
	track.Thumbnail = ""
	source := &fakeAdapter{platform: platforms.Tidal, track: track}

	cover := &coverStub{track: &platforms.Track{
		Platform:        platforms.Spotify,
		Type:            platforms.EntitySong,
		ID:              "3n3Ppam7vgaVa1iaRUc9Lp",
		Title:           "Bohemian Rhapsody",
		Artist:          "Queen",
		ISRC:            "GBUM71029604",
		Thumbnail:       "https://i.scdn.co/image/cover",
		ThumbnailWidth:  640,
		ThumbnailHeight: 640,
		URL:             "https://open.spotify.com/track/3n3Ppam7vgaVa1iaRUc9Lp",
	}}

	registry := platforms.NewRegistry(source)
	engine := NewEngine(testResolverConfig(), registry, nil, cover, zap.NewNop())

	res, err := engine.Resolve(context.Background(), "https://tidal.com/track/258735410")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	spotifyLink, ok := res.LinksByPlatform["spotify"]
	if !ok {
		t.Fatal("spotify link missing, cover search should supply it")
	}
	if spotifyLink.EntityUniqueID != "SPOTIFY::SONG::3n3Ppam7vgaVa1iaRUc9Lp" {
		t.Errorf("spotify entity = %q", spotifyLink.EntityUniqueID)
	}

	entity := res.EntitiesByUniqueID[res.EntityUniqueID]
	if entity.ThumbnailURL != "https://i.scdn.co/image/cover" {
		t.Errorf("thumbnail = %q, want Spotify cover", entity.ThumbnailURL)
	}
}

func TestEngine_Resolve_ExtractTimeout(t *testing.T) {
	t.Helper()

	source := &fakeAdapter{platform: platforms.Tidal, extractErr: context.DeadlineExceeded}
	registry := platforms.NewRegistry(source)
	engine := NewEngine(testResolverConfig(), registry, nil, nil, zap.NewNop())

	_, err := engine.Resolve(context.Background(), "https://tidal.com/track/258735410")
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("Resolve() error = %v, want ErrUpstreamTimeout", err)
	}
}
