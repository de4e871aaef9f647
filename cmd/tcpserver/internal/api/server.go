package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/logger"
)

// StatsProvider is implemented by *core.Server.
type StatsProvider interface {
	ActiveConnections() int
	Accepted() int64
}

// Stats is the body of /stats.
type Stats struct {
	Ready             bool  `json:"ready"`
	ActiveConnections int   `json:"active_connections"`
	Accepted          int64 `json:"accepted"`
}

type HealthServer struct {
	server *http.Server
	ready  atomic.Bool
	stats  atomic.Value // StatsProvider
}

func NewHealthServer(addr string) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}

	// Default to not ready until the TCP socket is bound
	hs.ready.Store(false)

	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/ready", hs.handleReady)
	mux.HandleFunc("/stats", hs.handleStats)

	return hs
}

func (s *HealthServer) Start() {
	go func() {
		logger.Info("Health server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()
}

func (s *HealthServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HealthServer) SetReady(ready bool) {
	s.ready.Store(ready)
}

// SetStats attaches the server whose counters /stats reports.
func (s *HealthServer) SetStats(p StatsProvider) {
	s.stats.Store(p)
}

// Handler exposes the routes, mainly for tests.
func (s *HealthServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready.Load() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	}
}

func (s *HealthServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := Stats{Ready: s.ready.Load()}
	if p, ok := s.stats.Load().(StatsProvider); ok {
		stats.ActiveConnections = p.ActiveConnections()
		stats.Accepted = p.Accepted()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		logger.Error("Failed to encode stats", "error", err)
	}
}
