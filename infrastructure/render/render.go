// Package render rasterises canonical chart specs into PNG artifacts using
// go-chart.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/freetype/truetype"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/felixgeelhaar/hoopstats/domain/chart"
	"github.com/felixgeelhaar/hoopstats/infrastructure/logging"
)

// Reason classifies why a render produced no artifact.
type Reason string

// Render outcomes.
const (
	ReasonNone         Reason = "none"
	ReasonNoData       Reason = "no_data"
	ReasonRenderFailed Reason = "render_failed"
)

// Result is the outcome of one render. Artifact is nil unless Reason is
// ReasonNone.
type Result struct {
	Artifact *Artifact
	Reason   Reason
	Err      error
}

// OK reports whether an artifact was produced.
func (r Result) OK() bool {
	return r.Reason == ReasonNone && r.Artifact != nil
}

// PieSlices selects how pie slices are derived from a spec.
type PieSlices string

// Pie slice policies.
const (
	// PieSlicesAuto uses the labels as slices when exactly one series
	// matches them, otherwise one slice per series.
	PieSlicesAuto PieSlices = "auto"
	// PieSlicesSeries always draws one slice per series (value = series sum).
	PieSlicesSeries PieSlices = "series"
	// PieSlicesLabels draws one slice per label from the first matching series.
	PieSlicesLabels PieSlices = "labels"
)

// ParsePieSlices parses a policy name, defaulting to auto.
func ParsePieSlices(s string) PieSlices {
	switch PieSlices(strings.ToLower(strings.TrimSpace(s))) {
	case PieSlicesSeries:
		return PieSlicesSeries
	case PieSlicesLabels:
		return PieSlicesLabels
	default:
		return PieSlicesAuto
	}
}

// Config configures the renderer.
type Config struct {
	// Width is the canvas width in pixels.
	Width int
	// Height is the canvas height in pixels.
	Height int
	// DPI is the raster resolution.
	DPI float64
	// PieSlices selects the pie slice policy.
	PieSlices PieSlices
	// Font overrides the Go Regular default face.
	Font *truetype.Font
}

// DefaultConfig returns a 10x6 inch canvas at 100 DPI.
func DefaultConfig() Config {
	return Config{
		Width:     1000,
		Height:    600,
		DPI:       100,
		PieSlices: PieSlicesAuto,
	}
}

// Option configures a Renderer.
type Option func(*Config)

// WithSize sets the canvas size in pixels.
func WithSize(width, height int) Option {
	return func(c *Config) {
		if width > 0 {
			c.Width = width
		}
		if height > 0 {
			c.Height = height
		}
	}
}

// WithDPI sets the raster resolution.
func WithDPI(dpi float64) Option {
	return func(c *Config) {
		if dpi > 0 {
			c.DPI = dpi
		}
	}
}

// WithPieSlices sets the pie slice policy.
func WithPieSlices(p PieSlices) Option {
	return func(c *Config) {
		c.PieSlices = p
	}
}

// WithFont sets the font face.
func WithFont(f *truetype.Font) Option {
	return func(c *Config) {
		c.Font = f
	}
}

// Renderer turns chart specs into PNG artifacts. It holds no per-render
// state and is safe for concurrent use.
type Renderer struct {
	config Config
	pool   sync.Pool
}

// New creates a renderer.
func New(opts ...Option) *Renderer {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Font == nil {
		if f, err := DefaultFont(); err == nil {
			config.Font = f
		} else {
			logging.Warn().
				Add(logging.Component("render")).
				Add(logging.ErrorField(err)).
				Msg("falling back to built-in chart font")
		}
	}
	return &Renderer{
		config: config,
		pool: sync.Pool{
			New: func() any { return new(bytes.Buffer) },
		},
	}
}

// Config returns the renderer configuration.
func (r *Renderer) Config() Config {
	return r.config
}

// Render draws spec. It never panics: backend errors and panics become
// ReasonRenderFailed, specs without plottable data become ReasonNoData.
func (r *Renderer) Render(spec chart.Spec) (res Result) {
	spec.Config = spec.Config.WithDefaults()
	defer func() {
		if p := recover(); p != nil {
			res = Result{Reason: ReasonRenderFailed, Err: fmt.Errorf("%w: panic: %v", ErrRenderFailed, p)}
			r.logResult(spec, res, 0)
		}
	}()

	j, ok := r.plan(spec)
	if !ok {
		res = Result{Reason: ReasonNoData, Err: ErrNoData}
		r.logResult(spec, res, 0)
		return res
	}
	return r.execute(spec, j)
}

// execute runs j against a pooled canvas buffer that is released on every
// exit path, including panics.
func (r *Renderer) execute(spec chart.Spec, j job) (res Result) {
	start := time.Now()

	buf := r.acquire()
	defer r.release(buf)

	defer func() {
		if p := recover(); p != nil {
			res = Result{Reason: ReasonRenderFailed, Err: fmt.Errorf("%w: panic: %v", ErrRenderFailed, p)}
		}
		r.logResult(spec, res, time.Since(start))
	}()

	art, err := j.draw(buf)
	if err != nil {
		return Result{Reason: ReasonRenderFailed, Err: fmt.Errorf("%w: %w", ErrRenderFailed, err)}
	}

	art.PNG = bytes.Clone(buf.Bytes())
	art.Title = spec.Title
	art.Width = r.config.Width
	art.Height = r.config.Height
	return Result{Artifact: art, Reason: ReasonNone}
}

// job is a planned render: draw writes the PNG to buf and returns the
// artifact metadata.
type job struct {
	draw func(buf *bytes.Buffer) (*Artifact, error)
}

// plan picks the strategy for spec, falling back to a single-series bar
// chart when the requested kind lacks its minimum data.
func (r *Renderer) plan(spec chart.Spec) (job, bool) {
	switch spec.Kind {
	case chart.KindBar:
		if aligned := spec.Aligned(); len(spec.Labels) > 0 && len(aligned.Series) > 0 {
			return r.barPlan(aligned, spec.Labels, aligned.Series, false), true
		}
	case chart.KindLine:
		if aligned := spec.Aligned(); len(spec.Labels) > 0 && len(aligned.Series) > 0 {
			return r.linePlan(aligned, aligned.Series), true
		}
	case chart.KindPie:
		if slices := pieSlices(spec, r.config.PieSlices); len(slices) > 0 {
			return r.piePlan(spec, slices), true
		}
	}
	return r.fallbackPlan(spec)
}

// fallbackPlan renders the first series holding values as bars, reusing
// the labels when they match and numbering the bars otherwise.
func (r *Renderer) fallbackPlan(spec chart.Spec) (job, bool) {
	for i, s := range spec.Series {
		if len(s.Values) == 0 {
			continue
		}
		labels := spec.Labels
		if len(labels) != len(s.Values) {
			labels = make([]string, len(s.Values))
			for i := range labels {
				labels[i] = strconv.Itoa(i + 1)
			}
		}
		single := spec
		single.Config = spec.Config.Subset([]int{i})
		return r.barPlan(single, labels, []chart.Series{s}, true), true
	}
	return job{}, false
}

func (r *Renderer) baseChart(spec chart.Spec) gochart.Chart {
	cfg := spec.Config
	return gochart.Chart{
		Title:      spec.Title,
		TitleStyle: gochart.Style{FontSize: cfg.TitleFontSize},
		Width:      r.config.Width,
		Height:     r.config.Height,
		DPI:        r.config.DPI,
		Font:       r.config.Font,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
	}
}

func (r *Renderer) acquire() *bytes.Buffer {
	buf, _ := r.pool.Get().(*bytes.Buffer)
	if buf == nil {
		buf = new(bytes.Buffer)
	}
	buf.Reset()
	return buf
}

func (r *Renderer) release(buf *bytes.Buffer) {
	buf.Reset()
	r.pool.Put(buf)
}

func (r *Renderer) logResult(spec chart.Spec, res Result, d time.Duration) {
	switch res.Reason {
	case ReasonNone:
		logging.Debug().
			Add(logging.Component("render")).
			Add(logging.ChartKind(string(spec.Kind))).
			Add(logging.Count("bytes", res.Artifact.Size())).
			Add(logging.Duration(d)).
			Msg("chart rendered")
	case ReasonRenderFailed:
		logging.Error().
			Add(logging.Component("render")).
			Add(logging.ChartKind(string(spec.Kind))).
			Add(logging.Reason(string(res.Reason))).
			Add(logging.ErrorField(res.Err)).
			Msg("chart render failed")
	default:
		logging.Info().
			Add(logging.Component("render")).
			Add(logging.ChartKind(string(spec.Kind))).
			Add(logging.Reason(string(res.Reason))).
			Msg("chart skipped")
	}
}

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{6}|[0-9a-fA-F]{3})$`)

// color resolves the configured color for series i, falling back to the
// default palette when the configured value is not a hex color.
func color(cfg chart.Config, i int) drawing.Color {
	raw := strings.TrimSpace(cfg.Color(i))
	if !hexColor.MatchString(raw) {
		raw = chart.DefaultColors[i%len(chart.DefaultColors)]
	}
	return drawing.ColorFromHex(strings.TrimPrefix(raw, "#"))
}
