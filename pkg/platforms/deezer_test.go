package platforms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDeezerAdapter_Extract(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/track/3135556":
			_, _ = w.Write([]byte(`{
				"id": 3135556,
				"title": "Harder, Better, Faster, Stronger",
				"link": "https://www.deezer.com/track/3135556",
				"isrc": "GBDUW0000059",
				"cover_xl": "https://e-cdns-images.dzcdn.net/cover.jpg",
				"artist": {"name": "Daft Punk"}
			}`))
		default:
			// Deezer reports missing entities with an error object, not
			// an HTTP 404.
			_, _ = w.Write([]byte(`{"error": {"code": 800}}`))
		}
	}))
	defer server.Close()

	adapter := NewDeezerAdapter()
	adapter.baseURL = server.URL

	track, err := adapter.Extract(context.Background(), EntitySong, "3135556")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if track.Title != "Harder, Better, Faster, Stronger" {
		t.Errorf("title = %q", track.Title)
	}
	if track.Artist != "Daft Punk" {
		t.Errorf("artist = %q, want Daft Punk", track.Artist)
	}
	if track.EntityKey() != "DEEZER::SONG::3135556" {
		t.Errorf("entity key = %q", track.EntityKey())
	}

	_, err = adapter.Extract(context.Background(), EntitySong, "0")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Extract(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeezerAdapter_Search_ISRCFirst(t *testing.T) {
	t.Helper()

	var sawISRC bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/track/isrc:") {
			sawISRC = true
			_, _ = w.Write([]byte(`{"id": 3135556, "title": "x", "link": "https://www.deezer.com/track/3135556"}`))
			return
		}
		t.Errorf("unexpected request %s, ISRC lookup should have matched", r.URL.Path)
	}))
	defer server.Close()

	adapter := NewDeezerAdapter()
	adapter.baseURL = server.URL

	link, err := adapter.Search(context.Background(), "Daft Punk", "Harder", "GBDUW0000059")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !sawISRC {
		t.Error("ISRC endpoint was not queried first")
	}
	if link.Kind != LinkDirect || link.EntityKey != "DEEZER::SONG::3135556" {
		t.Errorf("link = %+v", link)
	}
}

func TestDeezerAdapter_Search_FallbackLink(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	adapter := NewDeezerAdapter()
	adapter.baseURL = server.URL

	link, err := adapter.Search(context.Background(), "Nobody", "Nothing", "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if link.Kind != LinkSearch {
		t.Errorf("kind = %v, want search", link.Kind)
	}
	if !strings.HasPrefix(link.URL, "https://www.deezer.com/search/") {
		t.Errorf("url = %q, want search page", link.URL)
	}
}
