// Package http exposes the public resolution API: link conversion,
// share links, batch conversion, and playlist management.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"unitune/internal/core"
	"unitune/internal/flood"
	"unitune/internal/store"
)

// Resolver is the engine capability the server needs.
type Resolver interface {
	Resolve(ctx context.Context, input string) (*core.Resolution, error)
}

// Playlists is the playlist persistence capability the server needs.
type Playlists interface {
	Create(ctx context.Context, title, description string, tracks []store.PlaylistTrack) (*store.Playlist, error)
	Get(ctx context.Context, id string) (*store.Playlist, error)
	Delete(ctx context.Context, id, token string) error
}

type Server struct {
	config    *core.Config
	logger    *zap.Logger
	server    *http.Server
	metrics   *Metrics
	resolver  Resolver
	playlists Playlists
	gate      *flood.Floodgate
}

// NewServer wires the API routes. playlists and gate may be nil, which
// disables the playlist endpoints and rate limiting respectively.
func NewServer(
	config *core.Config,
	resolver Resolver,
	playlists Playlists,
	gate *flood.Floodgate,
	logger *zap.Logger,
) *Server {
	s := &Server{
		config:    config,
		logger:    logger,
		metrics:   NewMetrics(),
		resolver:  resolver,
		playlists: playlists,
		gate:      gate,
	}

	s.server = createHTTPServer(&config.Server, s.setupRoutes())

	return s
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /v1-alpha.1/links", s.limited(s.handleLinks))
	mux.HandleFunc("POST /v1-alpha.1/batch", s.limited(s.handleBatch))
	mux.HandleFunc("GET /s/{token}", s.limited(s.handleShareLink))

	if s.playlists != nil {
		mux.HandleFunc("POST /v1/playlists", s.limited(s.handleCreatePlaylist))
		mux.HandleFunc("GET /v1/playlists/{id}", s.limited(s.handleGetPlaylist))
		mux.HandleFunc("DELETE /v1/playlists/{id}", s.limited(s.handleDeletePlaylist))
	}

	mux.HandleFunc("/", s.handleHome)

	return mux
}

// limited applies per-client rate limiting to public endpoints.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.gate == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !s.gate.Allow(clientKey(r)) {
			s.metrics.RecordRateLimited()
			writeError(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientKey identifies the caller for rate limiting: the first
// X-Forwarded-For hop behind a proxy, the remote address otherwise.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}
