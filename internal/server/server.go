// Package server provides the HTTP API for the multisearch backend: the
// history endpoints, the suggestion proxy, and optional static file serving.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZhanXPX/glance-multisearch/internal/history"
	"github.com/ZhanXPX/glance-multisearch/internal/suggest"
)

// Config holds server configuration.
type Config struct {
	// Port is the listen port (default: 3000).
	Port int

	// PublicDir, when non-empty, is served at / as static files.
	PublicDir string

	// ShutdownTimeout is the graceful shutdown timeout (default: 5s).
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:            3000,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server serves the multisearch API over HTTP.
type Server struct {
	cfg     Config
	history *history.Service
	suggest *suggest.Aggregator
	log     zerolog.Logger
	httpSrv *http.Server
}

// New wires the handlers to their collaborators.
func New(cfg Config, hist *history.Service, agg *suggest.Aggregator, log zerolog.Logger) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultConfig().Port
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	s := &Server{
		cfg:     cfg,
		history: hist,
		suggest: agg,
		log:     log.With().Str("component", "server").Logger(),
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.requestLogger(s.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the API mux. Exposed for httptest-based handler tests.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/history", s.handleGetHistory)
	mux.HandleFunc("POST /api/history", s.handlePostHistory)
	mux.HandleFunc("DELETE /api/history", s.handleDeleteHistory)
	mux.HandleFunc("GET /api/suggest", s.handleSuggest)

	if s.cfg.PublicDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.PublicDir)))
	}
	return mux
}

// Run starts the listener and blocks until ctx is cancelled, then shuts the
// server down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.cfg.Port).Msg("multisearch listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
