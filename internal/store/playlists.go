// Package store provides SQLite-backed persistence for shared
// playlists.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	// idTokenBytes sizes the random playlist id before stripping.
	idTokenBytes = 8
	// deleteTokenBytes sizes the delete token.
	deleteTokenBytes = 24
	// idAttempts bounds retries on playlist id collision.
	idAttempts = 5
)

var (
	ErrPlaylistNotFound   = errors.New("playlist not found")
	ErrPlaylistExpired    = errors.New("playlist expired")
	ErrInvalidDeleteToken = errors.New("invalid delete token")
	ErrTooManyTracks      = errors.New("too many tracks")
)

// PlaylistTrack is one entry in a shared playlist. Only the original
// link is required; the rest is display metadata supplied by clients.
type PlaylistTrack struct {
	Title        string `json:"title,omitempty"`
	Artist       string `json:"artist,omitempty"`
	OriginalURL  string `json:"originalUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	AddedAt      string `json:"addedAt,omitempty"`
}

// Playlist is a stored shareable playlist. The delete token is only
// returned at creation time and guards deletion afterwards.
type Playlist struct {
	ID          string
	DeleteToken string
	Title       string
	Description string
	Tracks      []PlaylistTrack
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   *time.Time
}

// PlaylistStore persists playlists in SQLite. Expired playlists are
// deleted lazily on read.
type PlaylistStore struct {
	db        *sql.DB
	logger    *zap.Logger
	maxTracks int
	ttl       time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS playlists (
	id           TEXT PRIMARY KEY,
	delete_token TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT,
	tracks       TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL,
	expires_at   TIMESTAMP
)`

// NewPlaylistStore opens (or creates) the playlist database. A ttlDays
// of zero means playlists never expire.
func NewPlaylistStore(path string, maxTracks, ttlDays int, logger *zap.Logger) (*PlaylistStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create playlist schema: %w", err)
	}

	return &PlaylistStore{
		db:        db,
		logger:    logger,
		maxTracks: maxTracks,
		ttl:       time.Duration(ttlDays) * 24 * time.Hour,
	}, nil
}

func (s *PlaylistStore) Close() error {
	return s.db.Close()
}

// Create stores a new playlist and returns it with the generated id,
// delete token, and expiry.
func (s *PlaylistStore) Create(ctx context.Context, title, description string, tracks []PlaylistTrack) (*Playlist, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("playlist title is required")
	}
	if len(tracks) == 0 {
		return nil, errors.New("playlist tracks are required")
	}
	if s.maxTracks > 0 && len(tracks) > s.maxTracks {
		return nil, ErrTooManyTracks
	}
	for _, track := range tracks {
		if strings.TrimSpace(track.OriginalURL) == "" {
			return nil, errors.New("track originalUrl is required")
		}
	}

	deleteToken, err := randomToken(deleteTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate delete token: %w", err)
	}

	tracksJSON, err := json.Marshal(tracks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracks: %w", err)
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if s.ttl > 0 {
		t := now.Add(s.ttl)
		expiresAt = &t
	}

	for attempt := 0; attempt < idAttempts; attempt++ {
		id, err := randomPlaylistID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate playlist id: %w", err)
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO playlists (id, delete_token, title, description, tracks, created_at, updated_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, deleteToken, strings.TrimSpace(title), description, string(tracksJSON), now, now, nullableTime(expiresAt))
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, fmt.Errorf("failed to store playlist: %w", err)
		}

		s.logger.Info("Playlist created",
			zap.String("id", id),
			zap.Int("tracks", len(tracks)))

		return &Playlist{
			ID:          id,
			DeleteToken: deleteToken,
			Title:       strings.TrimSpace(title),
			Description: description,
			Tracks:      tracks,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   expiresAt,
		}, nil
	}

	return nil, errors.New("failed to allocate playlist id")
}

// Get loads a playlist by id. An expired playlist is deleted and
// reported as ErrPlaylistExpired.
func (s *PlaylistStore) Get(ctx context.Context, id string) (*Playlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, delete_token, title, description, tracks, created_at, updated_at, expires_at
		 FROM playlists WHERE id = ?`, id)

	var (
		playlist    Playlist
		description sql.NullString
		tracksJSON  string
		expiresAt   sql.NullTime
	)
	err := row.Scan(&playlist.ID, &playlist.DeleteToken, &playlist.Title, &description,
		&tracksJSON, &playlist.CreatedAt, &playlist.UpdatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}

	playlist.Description = description.String
	if expiresAt.Valid {
		t := expiresAt.Time
		playlist.ExpiresAt = &t

		if t.Before(time.Now().UTC()) {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id); err != nil {
				s.logger.Warn("Failed to delete expired playlist", zap.String("id", id), zap.Error(err))
			}
			return nil, ErrPlaylistExpired
		}
	}

	if err := json.Unmarshal([]byte(tracksJSON), &playlist.Tracks); err != nil {
		return nil, fmt.Errorf("failed to decode playlist tracks: %w", err)
	}

	return &playlist, nil
}

// Delete removes a playlist when the caller presents its delete token.
func (s *PlaylistStore) Delete(ctx context.Context, id, token string) error {
	row := s.db.QueryRowContext(ctx, `SELECT delete_token FROM playlists WHERE id = ?`, id)

	var deleteToken string
	err := row.Scan(&deleteToken)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPlaylistNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}

	if deleteToken != token {
		return ErrInvalidDeleteToken
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	s.logger.Info("Playlist deleted", zap.String("id", id))
	return nil
}

// randomPlaylistID generates a short URL-safe id without - or _ so it
// reads cleanly in share URLs.
func randomPlaylistID() (string, error) {
	token, err := randomToken(idTokenBytes)
	if err != nil {
		return "", err
	}
	return strings.NewReplacer("-", "", "_", "").Replace(token), nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
