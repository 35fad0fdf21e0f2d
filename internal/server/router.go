package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/agentstation/lineup/internal/server/events"
	"github.com/agentstation/lineup/internal/server/middleware"
	"github.com/agentstation/lineup/internal/server/response"
	ws "github.com/agentstation/lineup/internal/server/websocket"
	"github.com/agentstation/lineup/pkg/logging"
)

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/v1/sync", s.handleSyncStatus)
	if s.config.Metrics != nil {
		mux.Handle("GET /metrics", s.config.Metrics)
	}

	return middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
	)(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Msg("Database not reachable")
		response.ServiceUnavailable(w, "database not reachable")
		return
	}
	response.OK(w, map[string]any{
		"status":            "ready",
		"websocket_clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backend.SyncStatus(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Msg("Failed to read sync status")
		response.ErrorFromType(w, err)
		return
	}
	if snap == nil {
		response.OK(w, map[string]any{"status": "idle"})
		return
	}
	response.OK(w, snap)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	client := ws.NewClient(fmt.Sprintf("%s-%d", r.RemoteAddr, time.Now().UnixNano()), s.hub, conn)
	s.hub.Register(client)
	s.broker.Publish(events.ClientConnected, map[string]any{"remote_addr": r.RemoteAddr})

	go client.WritePump()
	go client.ReadPump()
}
