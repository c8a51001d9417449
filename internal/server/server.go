// Package server provides the HTTP server for LingYi.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/lingyi/internal/app"
	"github.com/ayusman/lingyi/internal/capture"
	"github.com/ayusman/lingyi/internal/desktop"
	"github.com/ayusman/lingyi/internal/logging"
	"github.com/ayusman/lingyi/internal/server/api"
	"github.com/ayusman/lingyi/internal/store"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 5 * time.Second

// Config holds the server configuration. Routes whose dependency is nil
// are not registered.
type Config struct {
	StaticDir string
	App       *app.App
	Desktop   *desktop.Desktop
	Store     *store.Store
	Preview   *capture.Preview
}

// Server represents the HTTP server for the LingYi application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	log    zerolog.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    logging.Module("server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.Handle("/api/settings", api.NewSettingsHandler(a))
		s.mux.Handle("/api/landmarks", NewLandmarksHandler(a))
		s.mux.Handle("/metrics", a.Metrics().Handler())

		if s.config.Preview != nil {
			s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview, a))
		}
	}

	if s.config.Desktop != nil {
		windows := api.NewWindowHandler(s.config.Desktop, s.config.Store)
		s.mux.Handle("/api/windows", windows)
		s.mux.Handle("/api/windows/", windows)
	}

	if s.config.Store != nil {
		s.mux.Handle("/api/events", api.NewEventHandler(s.config.Store))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["enabled"] = s.config.App.IsEnabled()
	}

	writeJSON(w, response)
}

// handleState handles GET /api/state with the latest GestureState.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.config.App.Snapshot())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
