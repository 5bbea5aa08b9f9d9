package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes health, readiness, metrics and the control API.
type Server struct {
	httpServer *http.Server
	ctrl       Controller
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// the /api routes.
func NewServer(addr string, ctrl Controller, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ctrl:   ctrl,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ctrl))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/stations", s.handleStations)
	mux.HandleFunc("GET /api/stations/{id}", s.handleStation)
	mux.HandleFunc("PUT /api/selection", s.handleSelect)
	mux.HandleFunc("DELETE /api/selection", s.handleDeselect)
	mux.HandleFunc("GET /api/configuration", s.handleConfiguration)
	mux.HandleFunc("PATCH /api/configuration", s.handlePatchConfiguration)
	mux.HandleFunc("POST /api/transport/{action}", s.handleTransport)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
