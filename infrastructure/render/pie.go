package render

import (
	"bytes"
	"fmt"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/felixgeelhaar/hoopstats/domain/chart"
)

type slice struct {
	Label string
	Value float64
}

// pieSlices derives the slices for spec under policy. Non-positive entries
// are dropped since they have no area.
func pieSlices(spec chart.Spec, policy PieSlices) []slice {
	var out []slice
	add := func(label string, v float64) {
		if v > 0 {
			out = append(out, slice{Label: label, Value: v})
		}
	}

	if policy != PieSlicesSeries && len(spec.Labels) > 0 {
		aligned := spec.AlignedSeries()
		if len(aligned) == 1 || (policy == PieSlicesLabels && len(aligned) > 0) {
			for i, label := range spec.Labels {
				add(label, aligned[0].Values[i])
			}
			return out
		}
	}

	for i, s := range spec.Series {
		add(spec.Config.LegendName(i, s.Name), s.Sum())
	}
	return out
}

func (r *Renderer) piePlan(spec chart.Spec, slices []slice) job {
	return job{draw: func(buf *bytes.Buffer) (*Artifact, error) {
		var total float64
		for _, s := range slices {
			total += s.Value
		}

		values := make([]gochart.Value, len(slices))
		labels := make([]string, len(slices))
		for i, s := range slices {
			labels[i] = s.Label
			values[i] = gochart.Value{
				Label: fmt.Sprintf("%s (%.1f%%)", s.Label, s.Value/total*100),
				Value: s.Value,
				Style: gochart.Style{
					FillColor:   color(spec.Config, i),
					StrokeColor: drawing.ColorWhite,
					StrokeWidth: 2,
					FontSize:    spec.Config.AxisFontSize,
				},
			}
		}

		pc := gochart.PieChart{
			Title:      spec.Title,
			TitleStyle: gochart.Style{FontSize: spec.Config.TitleFontSize},
			Width:      r.config.Width,
			Height:     r.config.Height,
			DPI:        r.config.DPI,
			Font:       r.config.Font,
			Background: gochart.Style{
				Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
			},
			Values: values,
		}
		if err := pc.Render(gochart.PNG, buf); err != nil {
			return nil, err
		}
		return &Artifact{
			Kind:        chart.KindPie,
			Labels:      labels,
			SeriesNames: spec.SeriesNames(),
		}, nil
	}}
}
