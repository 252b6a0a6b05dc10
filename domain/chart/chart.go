// Package chart provides the canonical chart description produced from
// untrusted model output and consumed by the renderer.
package chart

import "strings"

// Kind identifies the rendering strategy for a chart.
type Kind string

// Supported chart kinds.
const (
	KindBar  Kind = "bar"
	KindLine Kind = "line"
	KindPie  Kind = "pie"
)

// DefaultTitle is used when the payload carries no usable title.
const DefaultTitle = "Chart"

// IsValid returns true if the kind is one of the supported kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindBar, KindLine, KindPie:
		return true
	default:
		return false
	}
}

// String returns the kind as a string.
func (k Kind) String() string {
	return string(k)
}

// ParseKind maps the kind spellings models produce ("bar_chart", "Line",
// "pie") to a canonical kind. Unrecognised values are returned lower-cased
// so the renderer can take its fallback path; empty input yields "".
func ParseKind(s string) Kind {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "bar", "bars", "bar_chart", "bar chart", "barchart", "grouped_bar":
		return KindBar
	case "line", "lines", "line_chart", "line chart", "linechart":
		return KindLine
	case "pie", "pie_chart", "pie chart", "piechart", "donut":
		return KindPie
	default:
		return Kind(v)
	}
}

// Series is a named, ordered list of numeric values plotted together.
type Series struct {
	Name   string
	Values []float64
}

// Len returns the number of values in the series.
func (s Series) Len() int {
	return len(s.Values)
}

// Sum returns the sum of the series values.
func (s Series) Sum() float64 {
	var total float64
	for _, v := range s.Values {
		total += v
	}
	return total
}

// Spec is the canonical, validated description of one chart request.
// A Spec is treated as immutable once Normalize returns it.
type Spec struct {
	Kind   Kind
	Title  string
	Labels []string
	Series []Series
	Config Config
}

// SeriesNames returns the series names in legend order.
func (s Spec) SeriesNames() []string {
	names := make([]string, len(s.Series))
	for i, series := range s.Series {
		names[i] = series.Name
	}
	return names
}

// AlignedSeries returns the series whose length equals the label count.
func (s Spec) AlignedSeries() []Series {
	out := make([]Series, 0, len(s.Series))
	for _, series := range s.Series {
		if len(series.Values) == len(s.Labels) {
			out = append(out, series)
		}
	}
	return out
}

// Aligned returns spec restricted to AlignedSeries. Legend and color
// overrides follow their series, so a dropped series takes its entries with it.
func (s Spec) Aligned() Spec {
	keep := make([]int, 0, len(s.Series))
	for i, series := range s.Series {
		if len(series.Values) == len(s.Labels) {
			keep = append(keep, i)
		}
	}
	out := s
	out.Series = make([]Series, len(keep))
	for j, i := range keep {
		out.Series[j] = s.Series[i]
	}
	out.Config = s.Config.Subset(keep)
	return out
}

// Config holds presentation options. Zero values are replaced by the
// defaults from DefaultConfig during normalization.
type Config struct {
	// XAxisLabel labels the category axis (default: none).
	XAxisLabel string
	// YAxisLabel labels the value axis (default: "Values").
	YAxisLabel string
	// Colors are hex colors assigned to series in order.
	Colors []string
	// Legend overrides the legend name of the series at the same index.
	Legend []string
	// TitleFontSize is the title font size in points (default: 16).
	TitleFontSize float64
	// AxisFontSize is the axis label font size in points (default: 12).
	AxisFontSize float64
	// BarWidth is the fraction of a label slot covered by one bar group (default: 0.8).
	BarWidth float64
}

// DefaultColors is the fallback series palette.
var DefaultColors = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// DefaultConfig returns the presentation defaults.
func DefaultConfig() Config {
	return Config{
		YAxisLabel:    "Values",
		TitleFontSize: 16,
		AxisFontSize:  12,
		BarWidth:      0.8,
	}
}

// WithDefaults fills unset presentation options with their defaults.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.YAxisLabel) == "" {
		c.YAxisLabel = d.YAxisLabel
	}
	if c.TitleFontSize <= 0 {
		c.TitleFontSize = d.TitleFontSize
	}
	if c.AxisFontSize <= 0 {
		c.AxisFontSize = d.AxisFontSize
	}
	if c.BarWidth <= 0 || c.BarWidth > 1 {
		c.BarWidth = d.BarWidth
	}
	return c
}

// Color returns the color for the series at index i.
func (c Config) Color(i int) string {
	if i >= 0 && i < len(c.Colors) && strings.TrimSpace(c.Colors[i]) != "" {
		return c.Colors[i]
	}
	return DefaultColors[i%len(DefaultColors)]
}

// LegendName returns the legend label for the series at index i.
func (c Config) LegendName(i int, name string) string {
	if i >= 0 && i < len(c.Legend) && strings.TrimSpace(c.Legend[i]) != "" {
		return c.Legend[i]
	}
	return name
}

// Subset returns c with the per-series overrides of the series at idx, in
// that order.
func (c Config) Subset(idx []int) Config {
	c.Legend = pick(c.Legend, idx)
	c.Colors = pick(c.Colors, idx)
	return c
}

func pick(values []string, idx []int) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(idx))
	for j, i := range idx {
		if i >= 0 && i < len(values) {
			out[j] = values[i]
		}
	}
	return out
}
