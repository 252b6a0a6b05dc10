package application

import (
	"bytes"
	"context"
	"strings"

	"github.com/felixgeelhaar/hoopstats/domain/artifact"
	"github.com/felixgeelhaar/hoopstats/domain/chart"
	"github.com/felixgeelhaar/hoopstats/domain/config"
	"github.com/felixgeelhaar/hoopstats/infrastructure/llm"
	"github.com/felixgeelhaar/hoopstats/infrastructure/logging"
	"github.com/felixgeelhaar/hoopstats/infrastructure/observability"
	"github.com/felixgeelhaar/hoopstats/infrastructure/render"
)

// ReasonVisualizeFailed records that the visualize model call failed, so no
// proposal reached the renderer.
const ReasonVisualizeFailed render.Reason = "visualize_failed"

// runVisualization asks for a chart proposal, normalizes it, renders it
// and stores the image. Every failure is logged and recorded in
// reply.ChartReason; none is returned.
func (c *Chatbot) runVisualization(ctx context.Context, reply *Reply) {
	err := c.stage(ctx, reply.QueryID, config.StageVisualize, func(ctx context.Context) error {
		resp, cerr := c.model.Complete(ctx, config.StageVisualize, llm.Prompt(visualizeInstructions, visualizePrompt(reply.Query, reply.StructuredData)))
		reply.Visualization = strings.TrimSpace(resp.Content)
		return cerr
	})
	if err != nil {
		reply.Visualization = ""
		reply.ChartReason = ReasonVisualizeFailed
		c.metrics.RecordChart(ctx, "", string(ReasonVisualizeFailed))
		return
	}

	reply.Chart, reply.ChartReason = c.RenderChart(ctx, reply.QueryID, chart.RawText(reply.Visualization))
	if reply.Chart == nil || c.artifacts == nil {
		return
	}

	ref, serr := c.artifacts.Store(ctx, bytes.NewReader(reply.Chart.PNG),
		artifact.PNG(reply.Chart.Title).
			WithMetadata("kind", reply.Chart.Kind.String()).
			WithMetadata("query_id", reply.QueryID))
	if serr != nil {
		logging.Warn().
			Add(logging.QueryID(reply.QueryID)).
			Add(logging.Component("artifacts")).
			Add(logging.ErrorField(serr)).
			Msg("failed to save chart")
		return
	}
	reply.ChartRef = &ref
	logging.Info().
		Add(logging.QueryID(reply.QueryID)).
		Add(logging.Str("chart_id", ref.ID)).
		Add(logging.Str("location", ref.Location)).
		Msg("chart saved")
}

// RenderChart normalizes payload and renders it under the render
// concurrency bound. It returns nil and the reason when no image results.
func (c *Chatbot) RenderChart(ctx context.Context, queryID string, payload chart.Payload) (*render.Artifact, render.Reason) {
	_, span := observability.StartStage(ctx, c.tracer, "render", observability.AttrQueryID.String(queryID))

	spec, err := chart.Normalize(payload)
	if err != nil {
		span.SetAttributes(observability.AttrReason.String(string(render.ReasonNoData)))
		observability.End(span, nil)
		logging.Info().
			Add(logging.QueryID(queryID)).
			Add(logging.Reason(string(render.ReasonNoData))).
			Add(logging.ErrorField(err)).
			Msg("no usable chart in proposal")
		c.metrics.RecordChart(ctx, "", string(render.ReasonNoData))
		return nil, render.ReasonNoData
	}

	res, err := c.renderExec.Execute(ctx, func(context.Context) (render.Result, error) {
		return c.renderer.Render(spec), nil
	})
	if err != nil {
		res = render.Result{Reason: render.ReasonRenderFailed, Err: err}
	}

	span.SetAttributes(
		observability.AttrChartKind.String(spec.Kind.String()),
		observability.AttrReason.String(string(res.Reason)),
	)
	observability.End(span, res.Err)
	c.metrics.RecordChart(ctx, spec.Kind.String(), string(res.Reason))

	if !res.OK() {
		return nil, res.Reason
	}
	return res.Artifact, render.ReasonNone
}
