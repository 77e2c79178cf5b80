package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"unitune/internal/core"
	"unitune/internal/store"
)

const (
	// maxBatchURLs bounds a single batch conversion request.
	maxBatchURLs = 10
	// batchConcurrency bounds how many batch items resolve in parallel.
	batchConcurrency = 4
	// maxBodyBytes bounds request bodies on the JSON endpoints.
	maxBodyBytes = 1 << 20
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"service":            "unitune",
		"spotify_configured": s.config.Spotify.ClientID != "",
		"youtube_configured": s.config.YouTube.APIKey != "",
		"playlist_storage":   s.playlists != nil,
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"service": "unitune",
	})
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>UniTune</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">🎵 UniTune</h1>
    <p>Self-hosted music link resolution service</p>

    <h2>Endpoints</h2>
    <div class="endpoint">🔗 <code>/v1-alpha.1/links?url=...</code> - Convert a music link</div>
    <div class="endpoint">📦 <code>POST /v1-alpha.1/batch</code> - Convert up to 10 links</div>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`))
}

// handleLinks is the main conversion endpoint, Odesli API compatible.
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	musicURL := r.URL.Query().Get("url")
	if musicURL == "" {
		s.metrics.RecordRequest("links", "400")
		writeError(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	s.resolveAndRespond(w, r, "links", musicURL)
}

// handleShareLink resolves a share token. The engine accepts both the
// structured base64 format and legacy percent-encoded URLs.
func (s *Server) handleShareLink(w http.ResponseWriter, r *http.Request) {
	s.resolveAndRespond(w, r, "share", r.PathValue("token"))
}

func (s *Server) resolveAndRespond(w http.ResponseWriter, r *http.Request, endpoint, input string) {
	start := time.Now()
	resolution, err := s.resolver.Resolve(r.Context(), input)
	s.metrics.RecordResolutionDuration(endpoint, time.Since(start))

	if err != nil {
		status, message := statusForError(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Resolution failed", zap.String("input", input), zap.Error(err))
		}
		s.metrics.RecordRequest(endpoint, strconv.Itoa(status))
		s.metrics.RecordResolution("error")
		writeError(w, message, status)
		return
	}

	s.metrics.RecordRequest(endpoint, "200")
	s.metrics.RecordResolution("ok")
	writeJSON(w, http.StatusOK, resolution)
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

type batchTrack struct {
	OriginalURL  string                    `json:"original_url"`
	Title        string                    `json:"title"`
	Artist       string                    `json:"artist"`
	ThumbnailURL string                    `json:"thumbnail_url,omitempty"`
	Links        map[string]core.LinkEntry `json:"links"`
}

type batchError struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

type batchResponse struct {
	Tracks       []batchTrack `json:"tracks"`
	SuccessCount int          `json:"success_count"`
	FailedCount  int          `json:"failed_count"`
	Errors       []batchError `json:"errors"`
}

// handleBatch converts up to maxBatchURLs links concurrently. Item
// failures are reported per index; the batch itself always succeeds.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.RecordRequest("batch", "400")
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if len(req.URLs) == 0 {
		s.metrics.RecordRequest("batch", "400")
		writeError(w, "Invalid request: urls array required", http.StatusBadRequest)
		return
	}
	if len(req.URLs) > maxBatchURLs {
		s.metrics.RecordRequest("batch", "400")
		writeError(w, "Maximum 10 URLs allowed", http.StatusBadRequest)
		return
	}

	// Indexed slots keep results in input order across goroutines.
	tracks := make([]*batchTrack, len(req.URLs))
	failures := make([]*batchError, len(req.URLs))

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchConcurrency)

	for idx, musicURL := range req.URLs {
		idx, musicURL := idx, musicURL
		g.Go(func() error {
			resolution, err := s.resolver.Resolve(ctx, musicURL)
			if err != nil {
				_, message := statusForError(err)
				failures[idx] = &batchError{Index: idx, URL: musicURL, Error: message}
				return nil
			}

			item := &batchTrack{
				OriginalURL: musicURL,
				Links:       resolution.LinksByPlatform,
			}
			if entity, ok := resolution.EntitiesByUniqueID[resolution.EntityUniqueID]; ok {
				item.Title = entity.Title
				item.Artist = entity.ArtistName
				item.ThumbnailURL = entity.ThumbnailURL
			}
			tracks[idx] = item
			return nil
		})
	}
	_ = g.Wait()

	resp := batchResponse{
		Tracks: make([]batchTrack, 0, len(req.URLs)),
		Errors: make([]batchError, 0),
	}
	for idx := range req.URLs {
		if tracks[idx] != nil {
			resp.Tracks = append(resp.Tracks, *tracks[idx])
			resp.SuccessCount++
		} else if failures[idx] != nil {
			resp.Errors = append(resp.Errors, *failures[idx])
		}
	}
	resp.FailedCount = len(resp.Errors)

	s.metrics.RecordRequest("batch", "200")
	writeJSON(w, http.StatusOK, resp)
}

type createPlaylistRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Tracks      []store.PlaylistTrack `json:"tracks"`
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.RecordPlaylistOp("create", "400")
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	playlist, err := s.playlists.Create(r.Context(), req.Title, req.Description, req.Tracks)
	if err != nil {
		s.metrics.RecordPlaylistOp("create", "400")
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var expiresAt *string
	if playlist.ExpiresAt != nil {
		v := playlist.ExpiresAt.UTC().Format(time.RFC3339)
		expiresAt = &v
	}

	s.metrics.RecordPlaylistOp("create", "201")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":          playlist.ID,
		"deleteToken": playlist.DeleteToken,
		"expiresAt":   expiresAt,
	})
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.playlists.Get(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrPlaylistExpired):
		s.metrics.RecordPlaylistOp("get", "404")
		writeError(w, "Playlist expired", http.StatusNotFound)
		return
	case errors.Is(err, store.ErrPlaylistNotFound):
		s.metrics.RecordPlaylistOp("get", "404")
		writeError(w, "Playlist not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.Error("Playlist lookup failed", zap.Error(err))
		s.metrics.RecordPlaylistOp("get", "500")
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var expiresAt *string
	if playlist.ExpiresAt != nil {
		v := playlist.ExpiresAt.UTC().Format(time.RFC3339)
		expiresAt = &v
	}

	s.metrics.RecordPlaylistOp("get", "200")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":          playlist.ID,
		"title":       playlist.Title,
		"description": playlist.Description,
		"tracks":      playlist.Tracks,
		"createdAt":   playlist.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   playlist.UpdatedAt.UTC().Format(time.RFC3339),
		"expiresAt":   expiresAt,
	})
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.metrics.RecordPlaylistOp("delete", "403")
		writeError(w, "Delete token required", http.StatusForbidden)
		return
	}

	err := s.playlists.Delete(r.Context(), r.PathValue("id"), token)
	switch {
	case errors.Is(err, store.ErrPlaylistNotFound):
		s.metrics.RecordPlaylistOp("delete", "404")
		writeError(w, "Playlist not found", http.StatusNotFound)
		return
	case errors.Is(err, store.ErrInvalidDeleteToken):
		s.metrics.RecordPlaylistOp("delete", "403")
		writeError(w, "Invalid delete token", http.StatusForbidden)
		return
	case err != nil:
		s.logger.Error("Playlist delete failed", zap.Error(err))
		s.metrics.RecordPlaylistOp("delete", "500")
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.metrics.RecordPlaylistOp("delete", "200")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// statusForError maps the resolution error taxonomy onto HTTP statuses
// and user facing messages.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrUnrecognizedInput):
		return http.StatusBadRequest,
			"Unsupported URL format. Supported platforms: Spotify, Apple Music, YouTube, Deezer, TIDAL, Amazon Music"
	case errors.Is(err, core.ErrUnsupportedSource):
		return http.StatusBadRequest, "This platform cannot be used as a source link"
	case errors.Is(err, core.ErrEntityNotFound):
		return http.StatusNotFound, "Track not found. Please check the URL and try again."
	case errors.Is(err, core.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "The source platform timed out. Please try again."
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]interface{}{
		"error":  message,
		"status": status,
	})
}
