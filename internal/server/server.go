package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"frame-monitor/internal/models"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const version = "1.0.0"

// Source is the read side of the frame pipeline.
type Source interface {
	GetSnapshot() models.FrameMetrics
	GetCurrentStats() models.MonitorStats
	GetRecentDrops(limit int) []models.DropEvent
}

type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	router *mux.Router
	source Source
	opts   Options
	logger zerolog.Logger
}

// New builds the HTTP API. metrics and stream may be nil; middleware wraps every route.
func New(source Source, opts Options, logger zerolog.Logger, metrics, stream http.Handler, middleware ...mux.MiddlewareFunc) *Server {
	s := &Server{
		router: mux.NewRouter(),
		source: source,
		opts:   opts,
		logger: logger.With().Str("component", "server").Logger(),
	}
	s.router.Use(middleware...)
	s.setupRoutes(metrics, stream)
	return s
}

func (s *Server) setupRoutes(metrics, stream http.Handler) {
	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/analytics/current", s.getCurrentHandler).Methods("GET")
	s.router.HandleFunc("/analytics/stats", s.getStatsHandler).Methods("GET")
	s.router.HandleFunc("/analytics/drops", s.getDropsHandler).Methods("GET")
	if metrics != nil {
		s.router.Handle("/metrics/prometheus", metrics)
	}
	if stream != nil {
		s.router.Handle("/ws", stream)
	}
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	m := s.source.GetSnapshot()
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version,
		"state":     m.State,
		"frames":    m.Frames,
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) getCurrentHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.GetSnapshot())
}

func (s *Server) getStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.GetCurrentStats())
}

func (s *Server) getDropsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.source.GetRecentDrops(limit))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			done <- fmt.Errorf("could not gracefully shutdown the server: %w", err)
			return
		}
		close(done)
	}()

	s.logger.Info().Str("addr", s.opts.Addr).Msg("Server is ready to handle requests")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not listen on %s: %w", s.opts.Addr, err)
	}

	if err := <-done; err != nil {
		return err
	}
	s.logger.Info().Msg("Server stopped")
	return nil
}
