package render

import (
	"bytes"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/felixgeelhaar/hoopstats/domain/chart"
)

func (r *Renderer) linePlan(spec chart.Spec, series []chart.Series) job {
	return job{draw: func(buf *bytes.Buffer) (*Artifact, error) {
		cfg := spec.Config
		labels := spec.Labels

		xs := make([]float64, len(labels))
		for i := range xs {
			xs[i] = float64(i)
		}

		c := r.baseChart(spec)
		c.XAxis = categoryAxis(labels, cfg.XAxisLabel, cfg.AxisFontSize)
		c.YAxis = valueAxis(cfg.YAxisLabel, cfg.AxisFontSize, lineRange(series))

		names := make([]string, len(series))
		for j, s := range series {
			names[j] = cfg.LegendName(j, s.Name)
			col := color(cfg, j)
			c.Series = append(c.Series, gochart.ContinuousSeries{
				Name: names[j],
				Style: gochart.Style{
					StrokeColor: col,
					StrokeWidth: 2,
					DotColor:    col,
					DotWidth:    4,
				},
				XValues: xs,
				YValues: append([]float64(nil), s.Values...),
			})
		}
		c.Elements = []gochart.Renderable{gochart.Legend(&c)}

		if err := c.Render(gochart.PNG, buf); err != nil {
			return nil, err
		}
		return &Artifact{
			Kind:        chart.KindLine,
			Labels:      append([]string(nil), labels...),
			SeriesNames: names,
			Legend:      true,
		}, nil
	}}
}

// lineRange fits the y range to the data with 5% padding on each side.
func lineRange(series []chart.Series) *gochart.ContinuousRange {
	first := true
	var lo, hi float64
	for _, s := range series {
		for _, v := range s.Values {
			if first {
				lo, hi, first = v, v, false
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.05
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
