// Package server provides the HTTP serving surface: the source catalog
// and multi-source tile dispatch.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"tileserv/internal/logging"
	"tileserv/internal/source"
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Logger for structured logging.
	Logger *slog.Logger
}

// Server serves the catalog and tile endpoints over HTTP.
//
// The registry is held behind an atomic pointer: requests read it
// lock-free, and reconfiguration swaps in a whole new instance
// (SetRegistry). A registry is never mutated after construction.
type Server struct {
	addr     string
	registry atomic.Pointer[source.Registry]
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	draining atomic.Bool
}

// New creates a Server around an initial registry.
func New(reg *source.Registry, cfg Config) *Server {
	s := &Server{
		addr:   cfg.Addr,
		logger: logging.Default(cfg.Logger).With("component", "server"),
	}
	s.registry.Store(reg)
	return s
}

// SetRegistry replaces the served registry. In-flight requests keep the
// instance they started with.
func (s *Server) SetRegistry(reg *source.Registry) {
	s.registry.Store(reg)
	s.logger.Info("registry replaced", "sources", reg.Len())
}

// Registry returns the currently served registry.
func (s *Server) Registry() *source.Registry {
	return s.registry.Load()
}

// Handler builds the full HTTP handler: routes plus middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /catalog", s.handleCatalog)
	mux.HandleFunc("GET /{ids}/{z}/{x}/{y}", s.handleTile)
	s.registerProbes(mux)

	var h http.Handler = mux
	h = compressMiddleware(h)
	h = corsMiddleware(h)
	h = s.requestLogMiddleware(h)
	return h
}

// registerProbes adds liveness and readiness probe endpoints.
func (s *Server) registerProbes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.draining.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

// Start begins listening. It returns once the listener is bound; Serve
// errors after that are logged.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("listening", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests and stops the server. The readiness
// probe fails while draining so load balancers stop sending traffic.
func (s *Server) Shutdown(ctx context.Context) error {
	s.draining.Store(true)

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
