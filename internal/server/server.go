// Package server implements the worker's HTTP surface: liveness and
// readiness probes, Prometheus metrics, the current sync status, and a
// websocket feed of lifecycle events.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/internal/server/events"
	ws "github.com/agentstation/lineup/internal/server/websocket"
	"github.com/agentstation/lineup/pkg/logging"
)

// Backend is what the server reports on.
type Backend interface {
	// Ping checks the database is reachable.
	Ping(ctx context.Context) error
	// SyncStatus returns the running sync job, or nil when idle.
	SyncStatus(ctx context.Context) (*jobs.Snapshot, error)
}

// Server holds the HTTP server state.
type Server struct {
	backend  Backend
	config   Config
	broker   *events.Broker
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zerolog.Logger
	started  time.Time
}

// New creates a server. Call Start before serving websocket clients.
func New(backend Backend, cfg Config, logger *zerolog.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	defaults := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	s := &Server{
		backend: backend,
		config:  cfg,
		broker:  events.NewBroker(logger),
		hub:     ws.NewHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		started: time.Now(),
	}
	s.broker.Subscribe(s.hub)
	return s
}

// Start runs the broker and the websocket hub until ctx is done.
func (s *Server) Start(ctx context.Context) {
	go s.broker.Run(ctx)
	go s.hub.Run(ctx)
}

// Publish sends a lifecycle event to every websocket client.
func (s *Server) Publish(t events.Type, data any) {
	s.broker.Publish(t, data)
}

// ListenAndServe starts the background services and serves HTTP until ctx
// is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.Start(ctx)

	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("Worker server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("Worker server stopped")
	return nil
}
