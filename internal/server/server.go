// Package server exposes enumeration over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/bucketwalk/internal/errors"
	"github.com/3leaps/bucketwalk/internal/observability"
	"github.com/3leaps/bucketwalk/internal/server/handlers"
	"github.com/3leaps/bucketwalk/internal/server/middleware"
)

// Server is the bucketwalk HTTP server.
type Server struct {
	host string
	port int

	enumerator handlers.Enumerator
	metrics    *observability.Metrics
	logger     *zap.Logger
	timeouts   Timeouts

	router chi.Router
	http   *http.Server
}

// Timeouts configures the underlying http.Server.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

// DefaultTimeouts suit enumerations that run for minutes.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Read:     30 * time.Second,
		Write:    5 * time.Minute,
		Idle:     120 * time.Second,
		Shutdown: 10 * time.Second,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithEnumerator sets the enumerator behind POST /v1/enumerations.
func WithEnumerator(e handlers.Enumerator) Option {
	return func(s *Server) { s.enumerator = e }
}

// WithMetrics instruments requests and serves /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the request and lifecycle logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTimeouts overrides DefaultTimeouts. Zero fields keep the default.
func WithTimeouts(t Timeouts) Option {
	return func(s *Server) {
		def := DefaultTimeouts()
		if t.Read <= 0 {
			t.Read = def.Read
		}
		if t.Write <= 0 {
			t.Write = def.Write
		}
		if t.Idle <= 0 {
			t.Idle = def.Idle
		}
		if t.Shutdown <= 0 {
			t.Shutdown = def.Shutdown
		}
		s.timeouts = t
	}
}

// New creates a server listening on host:port once Start is called.
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host:     host,
		port:     port,
		logger:   zap.NewNop(),
		timeouts: DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recovery)
	r.Use(observability.TracingMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.NotFound(apperrors.NotFoundHandler)
	r.MethodNotAllowed(apperrors.MethodNotAllowedHandler)

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/version", handlers.VersionHandler)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/enumerations", handlers.EnumerateHandler(s.enumerator, s.logger))
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.timeouts.Read,
		WriteTimeout: s.timeouts.Write,
		IdleTimeout:  s.timeouts.Idle,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", s.http.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeouts.Shutdown)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
