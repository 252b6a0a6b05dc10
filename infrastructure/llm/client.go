package llm

import (
	"context"
	"time"

	"github.com/felixgeelhaar/hoopstats/domain/config"
	"github.com/felixgeelhaar/hoopstats/infrastructure/logging"
	"github.com/felixgeelhaar/hoopstats/infrastructure/resilience"
	"github.com/felixgeelhaar/hoopstats/infrastructure/telemetry"
)

// Client runs provider calls for pipeline stages through a resilience
// executor, filling each request from the stage settings.
type Client struct {
	provider Provider
	models   config.ModelsConfig
	executor *resilience.Executor[CompletionResponse]
	metrics  telemetry.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithExecutor sets the executor model calls run through.
func WithExecutor(e *resilience.Executor[CompletionResponse]) ClientOption {
	return func(c *Client) {
		c.executor = e
	}
}

// WithMetrics sets where token usage is recorded.
func WithMetrics(m telemetry.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NonRetryable lists the provider errors a retry cannot fix.
var NonRetryable = []error{ErrUnauthorized, ErrBadRequest, ErrEmptyResponse}

// NewClient creates a client for provider using the stage settings in models.
// Without WithExecutor, calls are retried with the default executor settings.
func NewClient(provider Provider, models config.ModelsConfig, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		models:   models,
		metrics:  telemetry.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.executor == nil {
		cfg := resilience.DefaultExecutorConfig()
		cfg.NonRetryableErrors = NonRetryable
		if t := models.Timeout.Duration(); t > 0 {
			cfg.Timeout = t
		}
		c.executor = resilience.NewExecutor[CompletionResponse](cfg)
	}
	return c
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Complete sends req for stage. Model, temperature and max tokens left
// zero in req are taken from the stage configuration.
func (c *Client) Complete(ctx context.Context, stage string, req CompletionRequest) (CompletionResponse, error) {
	sc := c.models.Stage(stage)
	if req.Model == "" {
		req.Model = sc.Model
	}
	if req.Temperature == 0 {
		req.Temperature = sc.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = sc.MaxTokens
	}

	start := time.Now()
	resp, err := c.executor.Execute(ctx, func(ctx context.Context) (CompletionResponse, error) {
		return c.provider.Complete(ctx, req)
	})
	elapsed := time.Since(start)

	if err != nil {
		logging.Warn().
			Add(logging.Stage(stage)).
			Add(logging.Provider(c.provider.Name())).
			Add(logging.Model(req.Model)).
			Add(logging.Duration(elapsed)).
			Add(logging.ErrorField(err)).
			Msg("model call failed")
		return CompletionResponse{}, err
	}

	logging.Debug().
		Add(logging.Stage(stage)).
		Add(logging.Provider(c.provider.Name())).
		Add(logging.Model(req.Model)).
		Add(logging.Tokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)).
		Add(logging.Duration(elapsed)).
		Msg("model call completed")
	c.metrics.RecordTokens(ctx, stage, c.provider.Name(), resp.Usage.TotalTokens)
	return resp, nil
}

// CircuitState reports the model circuit breaker state.
func (c *Client) CircuitState() string {
	return c.executor.CircuitBreakerState()
}
