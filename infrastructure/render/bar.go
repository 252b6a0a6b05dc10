package render

import (
	"bytes"
	"errors"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/felixgeelhaar/hoopstats/domain/chart"
)

// bar is one rectangle of a grouped bar chart in data coordinates. Label
// slot i is centred on x = i.
type bar struct {
	Label  int
	Series int
	X0, X1 float64
	Value  float64
}

// layoutBars places labelCount x len(series) bars. The bars of one label
// sit side by side and together span groupWidth; each bar is
// groupWidth/len(series) wide.
func layoutBars(labelCount int, series []chart.Series, groupWidth float64) []bar {
	if labelCount == 0 || len(series) == 0 {
		return nil
	}
	w := groupWidth / float64(len(series))
	bars := make([]bar, 0, labelCount*len(series))
	for i := 0; i < labelCount; i++ {
		left := float64(i) - groupWidth/2
		for j, s := range series {
			var v float64
			if i < len(s.Values) {
				v = s.Values[i]
			}
			bars = append(bars, bar{
				Label:  i,
				Series: j,
				X0:     left + float64(j)*w,
				X1:     left + float64(j+1)*w,
				Value:  v,
			})
		}
	}
	return bars
}

// barSeries draws the bars of one series. go-chart has no grouped bar
// chart, so bars are drawn as boxes against the chart's continuous ranges.
type barSeries struct {
	name  string
	style gochart.Style
	bars  []bar
}

var (
	_ gochart.Series         = barSeries{}
	_ gochart.ValuesProvider = barSeries{}
)

func (s barSeries) GetName() string             { return s.name }
func (s barSeries) GetStyle() gochart.Style     { return s.style }
func (s barSeries) GetYAxis() gochart.YAxisType { return gochart.YAxisPrimary }
func (s barSeries) Len() int                    { return len(s.bars) }

func (s barSeries) GetValues(i int) (float64, float64) {
	b := s.bars[i]
	return (b.X0 + b.X1) / 2, b.Value
}

func (s barSeries) Validate() error {
	if len(s.bars) == 0 {
		return errors.New("bar series has no bars")
	}
	return nil
}

func (s barSeries) Render(r gochart.Renderer, canvasBox gochart.Box, xrange, yrange gochart.Range, defaults gochart.Style) {
	style := s.style.InheritFrom(defaults)
	for _, b := range s.bars {
		top := canvasBox.Bottom - yrange.Translate(math.Max(b.Value, 0))
		bottom := canvasBox.Bottom - yrange.Translate(math.Min(b.Value, 0))
		if top == bottom {
			top--
		}
		gochart.Draw.Box(r, gochart.Box{
			Top:    top,
			Left:   canvasBox.Left + xrange.Translate(b.X0),
			Right:  canvasBox.Left + xrange.Translate(b.X1),
			Bottom: bottom,
		}, style)
	}
}

// valueRange returns a y range that always includes zero and never has a
// zero span, with headroom above the tallest bar.
func valueRange(series []chart.Series) *gochart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, s := range series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.05
	if hi > 0 {
		hi += pad
	}
	if lo < 0 {
		lo -= pad
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

// categoryAxis returns ticks centred under each label slot. go-chart sizes
// the x range from the tick extremes, so unlabeled ticks pin the half slot
// on each side.
func categoryAxis(labels []string, name string, fontSize float64) gochart.XAxis {
	edge := float64(len(labels)) - 0.5
	ticks := make([]gochart.Tick, 0, len(labels)+2)
	ticks = append(ticks, gochart.Tick{Value: -0.5})
	for i, label := range labels {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: label})
	}
	ticks = append(ticks, gochart.Tick{Value: edge})
	return gochart.XAxis{
		Name:         name,
		Style:        gochart.Style{FontSize: fontSize},
		NameStyle:    gochart.Style{FontSize: fontSize},
		TickPosition: gochart.TickPositionUnderTick,
		Range:        &gochart.ContinuousRange{Min: -0.5, Max: edge},
		Ticks:        ticks,
	}
}

func valueAxis(name string, fontSize float64, rng *gochart.ContinuousRange) gochart.YAxis {
	return gochart.YAxis{
		Name:      name,
		Style:     gochart.Style{FontSize: fontSize},
		NameStyle: gochart.Style{FontSize: fontSize},
		Range:     rng,
	}
}

func (r *Renderer) barPlan(spec chart.Spec, labels []string, series []chart.Series, fallback bool) job {
	return job{draw: func(buf *bytes.Buffer) (*Artifact, error) {
		cfg := spec.Config
		bars := layoutBars(len(labels), series, cfg.BarWidth)

		c := r.baseChart(spec)
		c.XAxis = categoryAxis(labels, cfg.XAxisLabel, cfg.AxisFontSize)
		c.YAxis = valueAxis(cfg.YAxisLabel, cfg.AxisFontSize, valueRange(series))

		names := make([]string, len(series))
		for j, s := range series {
			names[j] = cfg.LegendName(j, s.Name)
			col := color(cfg, j)
			var own []bar
			for _, b := range bars {
				if b.Series == j {
					own = append(own, b)
				}
			}
			c.Series = append(c.Series, barSeries{
				name: names[j],
				style: gochart.Style{
					FillColor:   col,
					StrokeColor: col,
					StrokeWidth: 1,
				},
				bars: own,
			})
		}

		legend := len(series) > 1
		if legend {
			c.Elements = []gochart.Renderable{gochart.Legend(&c)}
		}

		if err := c.Render(gochart.PNG, buf); err != nil {
			return nil, err
		}
		return &Artifact{
			Kind:        chart.KindBar,
			Labels:      append([]string(nil), labels...),
			SeriesNames: names,
			Bars:        len(bars),
			Legend:      legend,
			Fallback:    fallback,
		}, nil
	}}
}
