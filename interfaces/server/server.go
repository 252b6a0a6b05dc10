// Package server exposes the chatbot over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/felixgeelhaar/hoopstats/application"
	"github.com/felixgeelhaar/hoopstats/domain/artifact"
	domainconfig "github.com/felixgeelhaar/hoopstats/domain/config"
	"github.com/felixgeelhaar/hoopstats/infrastructure/logging"
	"github.com/felixgeelhaar/hoopstats/infrastructure/observability"
	"github.com/felixgeelhaar/hoopstats/infrastructure/telemetry"
)

// Asker answers one chat message.
type Asker interface {
	Ask(ctx context.Context, query string) (application.Reply, error)
}

// MetricsSource snapshots recorded metrics.
type MetricsSource interface {
	Collect(ctx context.Context) (metricdata.ResourceMetrics, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RateLimit      bool
	Rate           int
	Burst          int
}

// FromConfig maps the server section of the application config.
func FromConfig(sc domainconfig.ServerConfig) Config {
	return Config{
		Addr:           sc.Addr,
		AllowedOrigins: sc.AllowedOrigins,
		ReadTimeout:    sc.ReadTimeout.Duration(),
		WriteTimeout:   sc.WriteTimeout.Duration(),
		RateLimit:      sc.RateLimit.Enabled,
		Rate:           sc.RateLimit.Rate,
		Burst:          sc.RateLimit.Burst,
	}
}

// Server serves the chat API.
type Server struct {
	config    Config
	asker     Asker
	artifacts artifact.Store
	source    MetricsSource
	tracer    trace.Tracer
	metrics   telemetry.Metrics
	handler   http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithArtifacts serves stored charts under /charts/{id}.
func WithArtifacts(s artifact.Store) Option {
	return func(srv *Server) {
		srv.artifacts = s
	}
}

// WithMetricsSource serves a metrics snapshot under /metrics.
func WithMetricsSource(m MetricsSource) Option {
	return func(srv *Server) {
		srv.source = m
	}
}

// WithTracer traces every request.
func WithTracer(t trace.Tracer) Option {
	return func(srv *Server) {
		srv.tracer = t
	}
}

// WithMetrics records rate-limited requests.
func WithMetrics(m telemetry.Metrics) Option {
	return func(srv *Server) {
		srv.metrics = m
	}
}

// New creates a server for asker.
func New(asker Asker, cfg Config, opts ...Option) *Server {
	s := &Server{
		config:  cfg,
		asker:   asker,
		tracer:  noop.NewTracerProvider().Tracer("hoopstats"),
		metrics: telemetry.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /charts/{id}", s.handleChart)

	var h http.Handler = mux
	if cfg.RateLimit {
		h = rateLimit(cfg.Rate, cfg.Burst, s.metrics)(h)
	}
	h = cors(cfg.AllowedOrigins)(h)
	h = observability.HTTPMiddleware(s.tracer)(h)
	h = requestLog(h)
	s.handler = h
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Add(logging.Component("server")).
			Add(logging.Str("addr", ln.Addr().String())).
			Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logging.Info().Add(logging.Component("server")).Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
