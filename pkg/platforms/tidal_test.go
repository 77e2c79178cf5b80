package platforms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTidalAdapter_Extract(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/tracks/") {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/404") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 258735410,
			"title": "Bohemian Rhapsody",
			"isrc": "GBUM71029604",
			"artist": {"name": "Queen"},
			"album": {"cover": "ab12-cd34-ef56"}
		}`))
	}))
	defer server.Close()

	adapter := NewTidalAdapter()
	adapter.baseURL = server.URL

	track, err := adapter.Extract(context.Background(), EntitySong, "258735410")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if track.Title != "Bohemian Rhapsody" {
		t.Errorf("title = %q, want Bohemian Rhapsody", track.Title)
	}
	if track.Artist != "Queen" {
		t.Errorf("artist = %q, want Queen", track.Artist)
	}
	if track.ISRC != "GBUM71029604" {
		t.Errorf("isrc = %q, want GBUM71029604", track.ISRC)
	}
	if track.EntityKey() != "TIDAL::SONG::258735410" {
		t.Errorf("entity key = %q", track.EntityKey())
	}
	wantThumb := "https://resources.tidal.com/images/ab12/cd34/ef56/640x640.jpg"
	if track.Thumbnail != wantThumb {
		t.Errorf("thumbnail = %q, want %q", track.Thumbnail, wantThumb)
	}
}

func TestTidalAdapter_Extract_NotFound(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	adapter := NewTidalAdapter()
	adapter.baseURL = server.URL

	_, err := adapter.Extract(context.Background(), EntitySong, "404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Extract() error = %v, want ErrNotFound", err)
	}
}

func TestTidalAdapter_Extract_Album_Unsupported(t *testing.T) {
	t.Helper()

	adapter := NewTidalAdapter()
	_, err := adapter.Extract(context.Background(), EntityAlbum, "123")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Extract() error = %v, want ErrUnsupported", err)
	}
}

func TestTidalAdapter_Search_Direct(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [{"id": 258735410, "title": "Bohemian Rhapsody"}]}`))
	}))
	defer server.Close()

	adapter := NewTidalAdapter()
	adapter.baseURL = server.URL

	link, err := adapter.Search(context.Background(), "Queen", "Bohemian Rhapsody", "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if link.Kind != LinkDirect {
		t.Errorf("kind = %v, want direct", link.Kind)
	}
	if link.URL != "https://tidal.com/browse/track/258735410" {
		t.Errorf("url = %q", link.URL)
	}
	if link.EntityKey != "TIDAL::SONG::258735410" {
		t.Errorf("entity key = %q", link.EntityKey)
	}
	if link.Platform != Tidal {
		t.Errorf("platform = %v, want tidal", link.Platform)
	}
}

func TestTidalAdapter_Search_FallbackLink(t *testing.T) {
	t.Helper()

	// Empty result set from the API degrades to a search-kind link
	// instead of an error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	adapter := NewTidalAdapter()
	adapter.baseURL = server.URL

	link, err := adapter.Search(context.Background(), "Nobody", "Nothing", "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if link.Kind != LinkSearch {
		t.Errorf("kind = %v, want search", link.Kind)
	}
	if !strings.HasPrefix(link.URL, "https://listen.tidal.com/search?q=") {
		t.Errorf("url = %q, want search page", link.URL)
	}
}
