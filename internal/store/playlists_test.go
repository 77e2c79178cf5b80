package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T, maxTracks, ttlDays int) *PlaylistStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "playlists.db")
	store, err := NewPlaylistStore(path, maxTracks, ttlDays, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPlaylistStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func sampleTracks() []PlaylistTrack {
	return []PlaylistTrack{
		{Title: "Mr. Brightside", Artist: "The Killers", OriginalURL: "https://open.spotify.com/track/3n3Ppam7vgaVa1iaRUc9Lp"},
		{Title: "Smooth Operator", Artist: "Sade", OriginalURL: "https://tidal.com/track/258735410"},
	}
}

func TestPlaylistStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t, 500, 180)
	ctx := context.Background()

	created, err := store.Create(ctx, "Road Trip", "songs for the drive", sampleTracks())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.ID == "" {
		t.Error("Create() returned empty id")
	}
	if strings.ContainsAny(created.ID, "-_") {
		t.Errorf("id %q contains URL-unfriendly characters", created.ID)
	}
	if created.DeleteToken == "" {
		t.Error("Create() returned empty delete token")
	}
	if created.ExpiresAt == nil {
		t.Fatal("Create() returned nil expiry with TTL configured")
	}
	if wait := time.Until(*created.ExpiresAt); wait < 179*24*time.Hour {
		t.Errorf("expiry %v too close, want about 180 days out", wait)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.Title != "Road Trip" {
		t.Errorf("Title = %q, want %q", got.Title, "Road Trip")
	}
	if got.Description != "songs for the drive" {
		t.Errorf("Description = %q", got.Description)
	}
	if len(got.Tracks) != 2 {
		t.Fatalf("len(Tracks) = %d, want 2", len(got.Tracks))
	}
	if got.Tracks[0].OriginalURL != sampleTracks()[0].OriginalURL {
		t.Errorf("Tracks[0].OriginalURL = %q", got.Tracks[0].OriginalURL)
	}
}

func TestPlaylistStore_CreateValidation(t *testing.T) {
	store := newTestStore(t, 2, 180)
	ctx := context.Background()

	tests := []struct {
		name   string
		title  string
		tracks []PlaylistTrack
	}{
		{name: "Empty title", title: "  ", tracks: sampleTracks()},
		{name: "No tracks", title: "Empty", tracks: nil},
		{name: "Track without url", title: "Bad", tracks: []PlaylistTrack{{Title: "x"}}},
		{name: "Too many tracks", title: "Big", tracks: append(sampleTracks(), PlaylistTrack{OriginalURL: "https://deezer.com/track/1"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.title, "", tt.tracks); err == nil {
				t.Error("Create() expected validation error")
			}
		})
	}
}

func TestPlaylistStore_CreateWithoutTTL(t *testing.T) {
	store := newTestStore(t, 500, 0)

	created, err := store.Create(context.Background(), "Forever", "", sampleTracks())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil without TTL", created.ExpiresAt)
	}
}

func TestPlaylistStore_GetMissing(t *testing.T) {
	store := newTestStore(t, 500, 180)

	if _, err := store.Get(context.Background(), "nosuchid"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("Get() error = %v, want ErrPlaylistNotFound", err)
	}
}

func TestPlaylistStore_ExpiredDeletedOnRead(t *testing.T) {
	store := newTestStore(t, 500, 180)
	ctx := context.Background()

	created, err := store.Create(ctx, "Short Lived", "", sampleTracks())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Backdate the expiry to force the lazy deletion path.
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := store.db.Exec(`UPDATE playlists SET expires_at = ? WHERE id = ?`, past, created.ID); err != nil {
		t.Fatalf("failed to backdate expiry: %v", err)
	}

	if _, err := store.Get(ctx, created.ID); !errors.Is(err, ErrPlaylistExpired) {
		t.Fatalf("Get() error = %v, want ErrPlaylistExpired", err)
	}

	// The expired row is gone, so a second read is a plain miss.
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrPlaylistNotFound", err)
	}
}

func TestPlaylistStore_Delete(t *testing.T) {
	store := newTestStore(t, 500, 180)
	ctx := context.Background()

	created, err := store.Create(ctx, "Doomed", "", sampleTracks())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, created.ID, "wrong-token"); !errors.Is(err, ErrInvalidDeleteToken) {
		t.Errorf("Delete() with wrong token error = %v, want ErrInvalidDeleteToken", err)
	}

	if err := store.Delete(ctx, created.ID, created.DeleteToken); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Get(ctx, created.ID); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrPlaylistNotFound", err)
	}

	if err := store.Delete(ctx, created.ID, created.DeleteToken); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("Delete() of missing playlist error = %v, want ErrPlaylistNotFound", err)
	}
}
