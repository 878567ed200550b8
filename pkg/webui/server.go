// Package webui exposes the form editing pipeline over HTTP and
// WebSocket: one REST surface for instruct/approve/revert and a
// socket for interactive chat editing.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/formdeck/formdeck/pkg/assistant"
	"github.com/formdeck/formdeck/pkg/logging"
	"github.com/formdeck/formdeck/pkg/providers"
	"github.com/formdeck/formdeck/pkg/session"
)

// Server wires the session manager and orchestrator to HTTP.
type Server struct {
	manager      *session.Manager
	orchestrator *assistant.Orchestrator
	provider     providers.Provider
	logger       *logging.Logger
	addr         string
	server       *http.Server
	upgrader     websocket.Upgrader
	isRunning    bool
	mutex        sync.RWMutex
	startTime    time.Time
}

// NewServer builds an HTTP server on addr.
func NewServer(addr string, manager *session.Manager, orchestrator *assistant.Orchestrator, provider providers.Provider, logger *logging.Logger) *Server {
	return &Server{
		manager:      manager,
		orchestrator: orchestrator,
		provider:     provider,
		logger:       logger,
		addr:         addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
			},
		},
		startTime: time.Now(),
	}
}

// Start begins serving and shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.isRunning {
		s.mutex.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mutex.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/forms/{id}", s.handleGetForm)
	mux.HandleFunc("POST /api/forms/{id}/instruct", s.handleInstruct)
	mux.HandleFunc("POST /api/forms/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/forms/{id}/revert", s.handleRevert)
	mux.HandleFunc("GET /api/forms/{id}/preview", s.handlePreview)
	mux.HandleFunc("/ws/forms/{id}", s.handleFormSocket)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"status": "ok",
			"uptime": time.Since(s.startTime).String(),
		}
		if hc, ok := s.provider.(providers.HealthChecker); ok {
			if err := hc.CheckHealth(r.Context()); err != nil {
				status["status"] = "degraded"
				status["provider_error"] = err.Error()
			}
		}
		writeJSON(w, http.StatusOK, status)
	})

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Logf("HTTP server listening on %s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops the server, giving in-flight requests a grace period.
func (s *Server) Shutdown() error {
	s.mutex.Lock()
	if !s.isRunning {
		s.mutex.Unlock()
		return nil
	}
	s.isRunning = false
	s.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
