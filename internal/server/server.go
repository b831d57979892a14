// Package server provides the HTTP server of the virtual painter.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/painter"
	"github.com/ayusman/chitra/internal/server/api"
	"github.com/ayusman/chitra/internal/store"
)

// shutdownTimeout bounds graceful shutdown of open requests.
const shutdownTimeout = 5 * time.Second

// FrameSource publishes the camera pipeline output.
type FrameSource interface {
	SubscribeFrames() (<-chan []byte, func())
	SubscribeStates() (<-chan painter.State, func())
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Manager   *painter.Manager
	Detector  detector.Detector
	Source    FrameSource
	PublicURL string
	Logger    *slog.Logger
}

// Server represents the HTTP server for the painter.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *slog.Logger
	proc   *process.Process
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logger.With("component", "server"),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Manager != nil {
		s.mux.Handle("/api/frames", api.NewFrameHandler(s.config.Manager, s.config.Detector, s.logger))

		sessions := api.NewSessionHandler(s.config.Manager, s.config.PublicURL)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)

		if s.config.Store != nil {
			s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Store, s.config.Manager))
		}
	}

	if s.config.Source != nil {
		s.mux.Handle("/video_feed", NewStreamHandler(s.config.Source))
		s.mux.Handle("/api/ws", NewStateHandler(s.config.Source, s.logger))
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
		"uptime": time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.Manager != nil {
		response["sessions"] = s.config.Manager.Len()
	}
	if s.proc != nil {
		if mem, err := s.proc.MemoryInfo(); err == nil {
			response["rss_bytes"] = mem.RSS
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// streams never finish on their own
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
	}
	return nil
}
