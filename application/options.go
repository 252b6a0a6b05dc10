package application

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/hoopstats/domain/artifact"
	"github.com/felixgeelhaar/hoopstats/domain/conversation"
	"github.com/felixgeelhaar/hoopstats/infrastructure/render"
	"github.com/felixgeelhaar/hoopstats/infrastructure/search"
	"github.com/felixgeelhaar/hoopstats/infrastructure/telemetry"
)

// Option configures the chatbot.
type Option func(*ChatbotConfig)

// WithModel sets the model client every stage calls.
func WithModel(m search.Completer) Option {
	return func(c *ChatbotConfig) {
		c.Model = m
	}
}

// WithSearcher sets the search stage backend.
func WithSearcher(s search.Searcher) Option {
	return func(c *ChatbotConfig) {
		c.Searcher = s
	}
}

// WithRenderer sets the chart renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(c *ChatbotConfig) {
		c.Renderer = r
	}
}

// WithRenderConcurrency bounds concurrent chart renders.
func WithRenderConcurrency(n int) Option {
	return func(c *ChatbotConfig) {
		c.RenderConcurrency = n
	}
}

// WithRenderQueue lets up to n renders wait at most timeout for a free
// slot once the concurrency bound is reached.
func WithRenderQueue(n int, timeout time.Duration) Option {
	return func(c *ChatbotConfig) {
		c.RenderQueue = n
		c.RenderQueueTimeout = timeout
	}
}

// WithVisualization turns the visualize stage on or off.
func WithVisualization(enabled bool) Option {
	return func(c *ChatbotConfig) {
		c.DisableVisualization = !enabled
	}
}

// WithArtifactStore saves every rendered chart to s.
func WithArtifactStore(s artifact.Store) Option {
	return func(c *ChatbotConfig) {
		c.Artifacts = s
	}
}

// WithHistory records every answered turn in s.
func WithHistory(s conversation.Store) Option {
	return func(c *ChatbotConfig) {
		c.History = s
	}
}

// WithTracer sets the tracer stage spans are started on.
func WithTracer(t trace.Tracer) Option {
	return func(c *ChatbotConfig) {
		c.Tracer = t
	}
}

// WithMetrics sets where stage measurements go.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *ChatbotConfig) {
		c.Metrics = m
	}
}
