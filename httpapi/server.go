// Package httpapi exposes the workflow engine over HTTP. It is a thin
// adapter: requests are decoded into the engine's declarative types,
// responses are the run records the engine produces. Run failures are
// reported in-band as terminal run statuses, not transport errors.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/smallnest/graphflow/engine"
	"github.com/smallnest/graphflow/log"
)

// Server is the HTTP server of the workflow engine API.
type Server struct {
	service    *engine.Service
	httpServer *http.Server
	handlers   *Handlers
	logger     log.Logger
}

// NewServer creates a server listening on addr, serving the given service.
func NewServer(addr string, service *engine.Service, logger log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	handlers := NewHandlers(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handlers.HandleRoot)
	mux.HandleFunc("POST /graph/create", handlers.HandleCreateGraph)
	mux.HandleFunc("POST /graph/run", handlers.HandleRunGraph)
	mux.HandleFunc("GET /graph/state/{run_id}", handlers.HandleGetRun)
	mux.HandleFunc("GET /graph/list", handlers.HandleListGraphs)
	mux.HandleFunc("GET /runs/list", handlers.HandleListRuns)
	mux.HandleFunc("GET /tools", handlers.HandleListTools)
	mux.HandleFunc("GET /health", handlers.HandleHealth)

	return &Server{
		service:  service,
		handlers: handlers,
		logger:   logger,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("workflow engine API listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handlers returns the handler set, for tests.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Handler returns the root http.Handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
