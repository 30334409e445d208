// Package server hosts the HTTP surface: a small JSON API for status,
// run history, log tailing, and manual sync triggers, plus the Overseerr
// webhook endpoint. Both share one listener and one chi router.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"langarr/internal/config"
	"langarr/internal/logging"
	"langarr/internal/store"
	"langarr/internal/syncer"
	"langarr/internal/worker"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 5 * time.Second

	// webhookRateLimit bounds webhook bursts per source IP per minute.
	webhookRateLimit = 60
)

// SyncService is the syncer surface the HTTP layer drives.
type SyncService interface {
	SyncAll(ctx context.Context, opts syncer.Options) error
	SyncOne(ctx context.Context, service, name string, opts syncer.Options) error
	ProcessWebhookItem(ctx context.Context, mediaType string, tmdbID, tvdbID int64) error
}

// Submitter accepts background tasks; satisfied by *worker.Pool.
type Submitter interface {
	Submit(task worker.Task) error
}

// Server is the HTTP front of the daemon. Implements suture.Service.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	hub     *logging.StreamHub
	sync    SyncService
	pool    Submitter
	logger  *slog.Logger
	version string
	started time.Time
}

// New constructs the HTTP server. The store and hub may be nil; the
// affected endpoints degrade to empty responses.
func New(cfg *config.Config, st *store.Store, hub *logging.StreamHub, sync SyncService, pool Submitter, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		cfg:     cfg,
		store:   st,
		hub:     hub,
		sync:    sync,
		pool:    pool,
		logger:  logging.NewComponentLogger(logger, "http"),
		version: version,
		started: time.Now(),
	}
}

// Routes builds the chi router for the API and webhook surfaces.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/status", s.handleStatus)
		api.Get("/runs", s.handleRuns)
		api.Get("/logs", s.handleLogs)
		api.Post("/sync", s.handleSync)
	})

	r.Route("/webhook", func(wh chi.Router) {
		wh.Use(httprate.LimitByIP(webhookRateLimit, time.Minute))
		wh.Post("/overseerr", s.handleWebhook)
	})

	return r
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("http server listening", logging.String("address", listener.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encode failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
