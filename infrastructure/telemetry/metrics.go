// Package telemetry records OpenTelemetry metrics for the chatbot pipeline.
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records pipeline measurements.
type Metrics interface {
	// RecordStage records the duration and outcome of one pipeline stage.
	RecordStage(ctx context.Context, stage string, d time.Duration, err error)
	// RecordChart records a render attempt; reason is "none" on success.
	RecordChart(ctx context.Context, kind, reason string)
	// RecordCacheLookup records a cache hit or miss in a namespace.
	RecordCacheLookup(ctx context.Context, namespace string, hit bool)
	// RecordTokens records model tokens consumed by a stage.
	RecordTokens(ctx context.Context, stage, provider string, n int)
	// RecordRateLimited records a request rejected by the rate limiter.
	RecordRateLimited(ctx context.Context, route string)
}

// Instrument names.
const (
	MetricStageDuration = "hoopstats.stage.duration"
	MetricStageErrors   = "hoopstats.stage.errors"
	MetricChartRenders  = "hoopstats.chart.renders"
	MetricCacheHits     = "hoopstats.cache.hits"
	MetricCacheMisses   = "hoopstats.cache.misses"
	MetricModelTokens   = "hoopstats.model.tokens"
	MetricRateLimitHits = "hoopstats.ratelimit.hits"
)

// MetricsProvider implements Metrics with OpenTelemetry instruments.
type MetricsProvider struct {
	stageDuration metric.Float64Histogram
	stageErrors   metric.Int64Counter
	chartRenders  metric.Int64Counter
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	modelTokens   metric.Int64Counter
	rateLimitHits metric.Int64Counter
}

var _ Metrics = (*MetricsProvider)(nil)

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// MeterProvider supplies the meter. Nil uses the global provider.
	MeterProvider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/hoopstats",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates the pipeline instruments.
func NewMetricsProvider(cfg MetricsConfig) (*MetricsProvider, error) {
	if cfg.MeterName == "" {
		cfg.MeterName = DefaultMetricsConfig().MeterName
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(cfg.MeterName, metric.WithInstrumentationVersion(cfg.MeterVersion))

	p := &MetricsProvider{}
	var err, e error

	p.stageDuration, e = meter.Float64Histogram(MetricStageDuration,
		metric.WithDescription("Duration of pipeline stages"),
		metric.WithUnit("ms"))
	err = errors.Join(err, e)

	p.stageErrors, e = meter.Int64Counter(MetricStageErrors,
		metric.WithDescription("Number of failed pipeline stages"),
		metric.WithUnit("{error}"))
	err = errors.Join(err, e)

	p.chartRenders, e = meter.Int64Counter(MetricChartRenders,
		metric.WithDescription("Number of chart render attempts by outcome"),
		metric.WithUnit("{render}"))
	err = errors.Join(err, e)

	p.cacheHits, e = meter.Int64Counter(MetricCacheHits,
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"))
	err = errors.Join(err, e)

	p.cacheMisses, e = meter.Int64Counter(MetricCacheMisses,
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"))
	err = errors.Join(err, e)

	p.modelTokens, e = meter.Int64Counter(MetricModelTokens,
		metric.WithDescription("Model tokens consumed"),
		metric.WithUnit("{token}"))
	err = errors.Join(err, e)

	p.rateLimitHits, e = meter.Int64Counter(MetricRateLimitHits,
		metric.WithDescription("Number of rate-limited requests"),
		metric.WithUnit("{hit}"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return p, nil
}

// RecordStage records the duration and outcome of a stage.
func (p *MetricsProvider) RecordStage(ctx context.Context, stage string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("success", err == nil),
	)
	p.stageDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	if err != nil {
		p.stageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	}
}

// RecordChart records a render attempt.
func (p *MetricsProvider) RecordChart(ctx context.Context, kind, reason string) {
	p.chartRenders.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", reason),
	))
}

// RecordCacheLookup records a cache hit or miss.
func (p *MetricsProvider) RecordCacheLookup(ctx context.Context, namespace string, hit bool) {
	attrs := metric.WithAttributes(attribute.String("namespace", namespace))
	if hit {
		p.cacheHits.Add(ctx, 1, attrs)
		return
	}
	p.cacheMisses.Add(ctx, 1, attrs)
}

// RecordTokens records model token usage. Non-positive counts are ignored.
func (p *MetricsProvider) RecordTokens(ctx context.Context, stage, provider string, n int) {
	if n <= 0 {
		return
	}
	p.modelTokens.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("provider", provider),
	))
}

// RecordRateLimited records a rate-limited request.
func (p *MetricsProvider) RecordRateLimited(ctx context.Context, route string) {
	p.rateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

var _ Metrics = NoopMetrics{}

func (NoopMetrics) RecordStage(context.Context, string, time.Duration, error) {}
func (NoopMetrics) RecordChart(context.Context, string, string)               {}
func (NoopMetrics) RecordCacheLookup(context.Context, string, bool)           {}
func (NoopMetrics) RecordTokens(context.Context, string, string, int)         {}
func (NoopMetrics) RecordRateLimited(context.Context, string)                 {}
