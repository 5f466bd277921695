// Package api exposes the analytics datasets over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shopdash/shopdash/internal/analytics"
	"github.com/shopdash/shopdash/internal/metrics"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds all dependencies for the HTTP API.
type Server struct {
	analytics *analytics.Service
	db        Pinger
	metrics   *metrics.Metrics
	logger    *zap.Logger
	origins   map[string]bool
	mux       *http.ServeMux
	now       func() time.Time
}

// NewServer creates a new API server with all routes configured. allowedOrigins is
// the CORS allow-list; browser requests from any other origin are refused.
func NewServer(svc *analytics.Service, database Pinger, m *metrics.Metrics, allowedOrigins []string, logger *zap.Logger) *Server {
	s := &Server{
		analytics: svc,
		db:        database,
		metrics:   m,
		logger:    logger.With(zap.String("component", "api")),
		origins:   make(map[string]bool, len(allowedOrigins)),
		mux:       http.NewServeMux(),
		now:       time.Now,
	}
	for _, o := range allowedOrigins {
		s.origins[strings.TrimRight(o, "/")] = true
	}

	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.corsMiddleware(h)
	h = securityHeadersMiddleware(h)
	h = s.loggingMiddleware(h)
	h = requestIDMiddleware(h)
	h = s.recoverMiddleware(h)
	return h
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/ready", s.handleReady)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	// Analytics
	s.mux.HandleFunc("GET /api/analytics/dashboard", s.handleDashboard)
	for _, ds := range analytics.Datasets() {
		s.mux.HandleFunc("GET /api/analytics/"+ds.Path, s.handleDataset(ds))
	}

	s.mux.HandleFunc("/", s.handleNotFound)
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Message:   "Analytics API is running",
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
}

// handleReady checks the database, unlike handleHealth which only proves the
// process is serving.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed",
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found")
}
