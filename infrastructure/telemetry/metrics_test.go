package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics builds a provider backed by a private manual reader.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	t.Helper()
	reader := metric.NewManualReader()
	meterProvider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = meterProvider.Shutdown(context.Background()) })

	cfg := DefaultMetricsConfig()
	cfg.MeterProvider = meterProvider
	mp, err := NewMetricsProvider(cfg)
	if err != nil {
		t.Fatalf("failed to create metrics provider: %v", err)
	}
	return reader, mp
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s data = %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_RecordStage(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordStage(ctx, "search", 120*time.Millisecond, nil)
	mp.RecordStage(ctx, "extract", 80*time.Millisecond, errors.New("boom"))

	got := collect(t, reader)
	hist, ok := got[MetricStageDuration].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("stage duration data = %T", got[MetricStageDuration].Data)
	}
	if len(hist.DataPoints) != 2 {
		t.Errorf("duration data points = %d, want 2", len(hist.DataPoints))
	}
	if n := sumOf(t, got[MetricStageErrors]); n != 1 {
		t.Errorf("stage errors = %d, want 1", n)
	}
}

func TestMetricsProvider_RecordChart(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordChart(ctx, "bar", "none")
	mp.RecordChart(ctx, "bar", "none")
	mp.RecordChart(ctx, "line", "no_data")

	sum := collect(t, reader)[MetricChartRenders].Data.(metricdata.Sum[int64])
	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		reason, _ := dp.Attributes.Value(attribute.Key("reason"))
		counts[reason.AsString()] += dp.Value
	}
	if counts["none"] != 2 || counts["no_data"] != 1 {
		t.Errorf("renders by reason = %v", counts)
	}
}

func TestMetricsProvider_RecordCacheLookup(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordCacheLookup(ctx, "search", true)
	mp.RecordCacheLookup(ctx, "search", false)
	mp.RecordCacheLookup(ctx, "search", false)

	got := collect(t, reader)
	if n := sumOf(t, got[MetricCacheHits]); n != 1 {
		t.Errorf("hits = %d, want 1", n)
	}
	if n := sumOf(t, got[MetricCacheMisses]); n != 2 {
		t.Errorf("misses = %d, want 2", n)
	}
}

func TestMetricsProvider_RecordTokens(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordTokens(ctx, "answer", "openai", 150)
	mp.RecordTokens(ctx, "answer", "openai", 0)
	mp.RecordTokens(ctx, "search", "openai", 50)

	if n := sumOf(t, collect(t, reader)[MetricModelTokens]); n != 200 {
		t.Errorf("tokens = %d, want 200", n)
	}
}

func TestMetricsProvider_RecordRateLimited(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	mp.RecordRateLimited(context.Background(), "/chat")

	if n := sumOf(t, collect(t, reader)[MetricRateLimitHits]); n != 1 {
		t.Errorf("rate limit hits = %d, want 1", n)
	}
}

func TestNoopMetrics(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetrics{}
	ctx := context.Background()
	m.RecordStage(ctx, "search", time.Second, nil)
	m.RecordChart(ctx, "bar", "none")
	m.RecordCacheLookup(ctx, "search", true)
	m.RecordTokens(ctx, "answer", "openai", 1)
	m.RecordRateLimited(ctx, "/chat")
}
