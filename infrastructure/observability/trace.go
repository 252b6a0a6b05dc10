package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrStage     = attribute.Key("hoopstats.stage")
	AttrQueryID   = attribute.Key("hoopstats.query_id")
	AttrModel     = attribute.Key("hoopstats.model")
	AttrChartKind = attribute.Key("hoopstats.chart.kind")
	AttrReason    = attribute.Key("hoopstats.chart.reason")
	AttrCached    = attribute.Key("hoopstats.cached")
)

// StartStage starts an internal span named "stage.<stage>".
func StartStage(ctx context.Context, tracer trace.Tracer, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, AttrStage.String(stage))
	return tracer.Start(ctx, "stage."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End marks span failed when err is non-nil and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
