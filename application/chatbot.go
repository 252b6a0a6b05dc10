// Package application runs the chatbot pipeline: search, extract, an
// optional chart, an optional prediction and the final answer.
package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/felixgeelhaar/hoopstats/domain/artifact"
	"github.com/felixgeelhaar/hoopstats/domain/config"
	"github.com/felixgeelhaar/hoopstats/domain/conversation"
	"github.com/felixgeelhaar/hoopstats/infrastructure/llm"
	"github.com/felixgeelhaar/hoopstats/infrastructure/logging"
	"github.com/felixgeelhaar/hoopstats/infrastructure/observability"
	"github.com/felixgeelhaar/hoopstats/infrastructure/render"
	"github.com/felixgeelhaar/hoopstats/infrastructure/resilience"
	"github.com/felixgeelhaar/hoopstats/infrastructure/search"
	"github.com/felixgeelhaar/hoopstats/infrastructure/telemetry"
)

// Chatbot answers basketball statistics questions.
type Chatbot struct {
	model      search.Completer
	searcher   search.Searcher
	renderer   *render.Renderer
	renderExec *resilience.Executor[render.Result]
	visualize  bool
	artifacts  artifact.Store
	history    conversation.Store
	tracer     trace.Tracer
	metrics    telemetry.Metrics
}

// defaultRenderQueue is the wait queue used when only a concurrency bound is set.
const defaultRenderQueue = 64

// ChatbotConfig contains the chatbot dependencies. Only Model is required.
type ChatbotConfig struct {
	Model                search.Completer
	Searcher             search.Searcher
	Renderer             *render.Renderer
	RenderConcurrency    int
	RenderQueue          int
	RenderQueueTimeout   time.Duration
	DisableVisualization bool
	Artifacts            artifact.Store
	History              conversation.Store
	Tracer               trace.Tracer
	Metrics              telemetry.Metrics
}

// NewChatbot creates a chatbot. Without a searcher the search stage asks
// the model directly.
func NewChatbot(opts ...Option) (*Chatbot, error) {
	var cfg ChatbotConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Model == nil {
		return nil, ErrModelRequired
	}

	c := &Chatbot{
		model:     cfg.Model,
		searcher:  cfg.Searcher,
		renderer:  cfg.Renderer,
		visualize: !cfg.DisableVisualization,
		artifacts: cfg.Artifacts,
		history:   cfg.History,
		tracer:    cfg.Tracer,
		metrics:   cfg.Metrics,
	}
	if c.searcher == nil {
		c.searcher = search.NewModelSearcher(cfg.Model, nil)
	}
	if c.renderer == nil {
		c.renderer = render.New()
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("hoopstats")
	}
	if c.metrics == nil {
		c.metrics = telemetry.NoopMetrics{}
	}
	queue := cfg.RenderQueue
	if queue == 0 && cfg.RenderConcurrency > 0 {
		queue = defaultRenderQueue
	}
	c.renderExec = resilience.NewExecutorWithOptions[render.Result](
		resilience.WithMaxConcurrent(cfg.RenderConcurrency),
		resilience.WithQueue(queue, cfg.RenderQueueTimeout),
		resilience.WithoutRetry(),
		resilience.WithoutCircuitBreaker(),
		resilience.WithTimeout(0),
	)
	return c, nil
}

// Reply is the outcome of one question.
type Reply struct {
	QueryID        string           `json:"query_id"`
	Query          string           `json:"query"`
	Answer         string           `json:"answer"`
	SearchResults  string           `json:"search_results"`
	StructuredData string           `json:"structured_data"`
	Visualization  string           `json:"visualization,omitempty"`
	Prediction     string           `json:"prediction,omitempty"`
	Chart          *render.Artifact `json:"-"`
	ChartReason    render.Reason    `json:"chart_reason,omitempty"`
	ChartRef       *artifact.Ref    `json:"chart_ref,omitempty"`
	Cached         bool             `json:"cached"`
	Duration       time.Duration    `json:"duration"`
}

// ChartBase64 returns the chart PNG as base64, or "" without a chart.
func (r Reply) ChartBase64() string {
	if r.Chart == nil {
		return ""
	}
	return r.Chart.Base64()
}

// Ask runs the pipeline for query. Search, extract and answer failures
// fail the request; chart and prediction failures only leave those parts
// of the reply empty.
func (c *Chatbot) Ask(ctx context.Context, query string) (Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Reply{}, ErrEmptyQuery
	}

	start := time.Now()
	reply := Reply{QueryID: uuid.New().String(), Query: query}

	ctx, span := c.tracer.Start(ctx, "chat.ask", trace.WithAttributes(observability.AttrQueryID.String(reply.QueryID)))
	var err error
	defer func() { observability.End(span, err) }()

	logging.Info().
		Add(logging.QueryID(reply.QueryID)).
		Add(logging.Str("query", query)).
		Msg("processing query")

	var found search.Response
	err = c.stage(ctx, reply.QueryID, config.StageSearch, func(ctx context.Context) error {
		var serr error
		found, serr = c.searcher.Search(ctx, query)
		return serr
	})
	if err != nil {
		return Reply{}, err
	}
	reply.SearchResults = found.Summary
	reply.Cached = found.Cached

	err = c.stage(ctx, reply.QueryID, config.StageExtract, func(ctx context.Context) error {
		resp, cerr := c.model.Complete(ctx, config.StageExtract, llm.Prompt(extractInstructions, extractPrompt(reply.SearchResults)))
		reply.StructuredData = strings.TrimSpace(resp.Content)
		return cerr
	})
	if err != nil {
		return Reply{}, err
	}

	if c.visualize && NeedsVisualization(query) {
		c.runVisualization(ctx, &reply)
	}

	if NeedsPrediction(query) {
		perr := c.stage(ctx, reply.QueryID, config.StagePredict, func(ctx context.Context) error {
			resp, cerr := c.model.Complete(ctx, config.StagePredict, llm.Prompt(predictInstructions, predictPrompt(query, reply.StructuredData)))
			reply.Prediction = strings.TrimSpace(resp.Content)
			return cerr
		})
		if perr != nil {
			reply.Prediction = ""
		}
	}

	err = c.stage(ctx, reply.QueryID, config.StageAnswer, func(ctx context.Context) error {
		prompt := answerPrompt(query, reply.SearchResults, reply.StructuredData, reply.Visualization, reply.Prediction)
		resp, cerr := c.model.Complete(ctx, config.StageAnswer, llm.Prompt(answerInstructions, prompt))
		reply.Answer = strings.TrimSpace(resp.Content)
		return cerr
	})
	if err != nil {
		return Reply{}, err
	}

	reply.Duration = time.Since(start)
	c.record(ctx, reply)

	logging.Info().
		Add(logging.QueryID(reply.QueryID)).
		Add(logging.Duration(reply.Duration)).
		Add(logging.Cached(reply.Cached)).
		Add(logging.Reason(string(reply.ChartReason))).
		Msg("response ready")
	return reply, nil
}

// stage runs fn inside a span, timing it and wrapping its error.
func (c *Chatbot) stage(ctx context.Context, queryID, name string, fn func(context.Context) error) (err error) {
	ctx, span := observability.StartStage(ctx, c.tracer, name, observability.AttrQueryID.String(queryID))
	start := time.Now()
	defer func() {
		d := time.Since(start)
		c.metrics.RecordStage(ctx, name, d, err)
		observability.End(span, err)

		ev := logging.Info()
		if err != nil {
			ev = logging.Warn().Add(logging.ErrorField(err))
		}
		ev.Add(logging.QueryID(queryID)).
			Add(logging.Stage(name)).
			Add(logging.Duration(d)).
			Msg("stage finished")
	}()

	if err = fn(ctx); err != nil {
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

// History returns up to limit recent turns, newest first.
func (c *Chatbot) History(ctx context.Context, limit int) ([]conversation.Turn, error) {
	if c.history == nil {
		return nil, nil
	}
	return c.history.Recent(ctx, limit)
}

func (c *Chatbot) record(ctx context.Context, reply Reply) {
	if c.history == nil {
		return
	}
	turn := conversation.NewTurn(reply.Query, reply.Answer)
	turn.ID = reply.QueryID
	turn.Data = reply.StructuredData
	turn.Visualization = reply.Visualization
	if reply.ChartRef != nil {
		turn.ChartID = reply.ChartRef.ID
	}
	if err := c.history.Append(ctx, turn); err != nil {
		logging.Warn().
			Add(logging.QueryID(reply.QueryID)).
			Add(logging.Component("history")).
			Add(logging.ErrorField(err)).
			Msg("failed to record turn")
	}
}
