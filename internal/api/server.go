// Package api serves the crafting game over HTTP.
//
// Routes:
//
//	GET  /api/health    liveness
//	GET  /api/elements  every element, oldest first
//	GET  /api/recipes   every recipe, newest first
//	POST /api/combine   {"a","b","userId"} resolves a combination
//	GET  /metrics       Prometheus exposition
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/cauldron/internal/craft"
	"github.com/mesh-intelligence/cauldron/pkg/types"
)

const (
	routeHealth   = "/api/health"
	routeElements = "/api/elements"
	routeRecipes  = "/api/recipes"
	routeCombine  = "/api/combine"
	routeMetrics  = "/metrics"
)

// Combiner is the game engine the server exposes. *craft.Resolver
// implements it.
type Combiner interface {
	ResolveCombination(ctx context.Context, nameA, nameB, discoverer string) (*craft.Combination, error)
	Elements(ctx context.Context) ([]*types.Element, error)
	Recipes(ctx context.Context) ([]*types.Recipe, error)
}

var _ Combiner = (*craft.Resolver)(nil)

// Server routes HTTP requests to a Combiner.
type Server struct {
	combiner Combiner
	logger   *slog.Logger
	metrics  *Metrics
	handler  http.Handler
}

// NewServer builds the handler tree. A nil logger means slog.Default().
func NewServer(combiner Combiner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		combiner: combiner,
		logger:   logger,
		metrics:  NewMetrics(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+routeHealth, s.handleHealth)
	mux.HandleFunc("GET "+routeElements, s.handleElements)
	mux.HandleFunc("GET "+routeRecipes, s.handleRecipes)
	mux.HandleFunc("POST "+routeCombine, s.handleCombine)
	mux.Handle("GET "+routeMetrics, promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	s.handler = Chain(mux,
		RequestID(),
		RecoverPanic(logger),
		AccessLog(logger, s.metrics),
		CORS(),
	)
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves on cfg.ListenAddr() until ctx is done, then shuts
// down gracefully within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg Config) error {
	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr(), err)
	}
	return s.Serve(ctx, ln, cfg)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener, cfg Config) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
