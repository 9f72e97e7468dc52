// Package server exposes the search orchestrator over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/beeper/livelink-bridge/pkg/search"
)

const (
	ShutdownTimeout = 10 * time.Second
	RequestIDHeader = "Request-Id"
)

// Server holds the router and its dependencies.
type Server struct {
	Router   chi.Router
	orch     *search.Orchestrator
	registry *prometheus.Registry
	log      zerolog.Logger
	started  time.Time
}

// Config holds what New needs to assemble a server.
type Config struct {
	Orchestrator *search.Orchestrator
	// Registry receives the process collectors; the orchestrator's metrics
	// should be registered on the same registry.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// New creates a chi router with all routes configured.
func New(cfg Config) *Server {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(hlog.NewHandler(cfg.Log))
	r.Use(hlog.RequestIDHandler("request_id", RequestIDHeader))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(chiMiddleware.Recoverer)

	s := &Server{
		Router:   r,
		orch:     cfg.Orchestrator,
		registry: registry,
		log:      cfg.Log,
		started:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.Router
	r.Get(search.SearchPath, s.handleSearch)
	r.Get(search.DescriptorPath, s.handleDescriptor)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains for up
// to ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}
