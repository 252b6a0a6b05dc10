package chart

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// kindKeys are the payload keys that may state the chart kind, in lookup order.
var kindKeys = []string{"visualization_type", "chart_type", "kind", "type"}

// reservedKeys never become series even when they hold numeric arrays.
var reservedKeys = map[string]bool{
	"labels":          true,
	"datasets":        true,
	"colors":          true,
	"legend":          true,
	"figsize":         true,
	"bar_width":       true,
	"title_font_size": true,
	"axis_font_size":  true,
	"x_axis_label":    true,
	"y_axis_label":    true,
	"config":          true,
	"data":            true,
	"title":           true,
}

// Normalize turns an untrusted payload into a canonical Spec. It returns an
// error wrapping ErrNoSpec when no JSON object can be recovered or when the
// object holds no numeric series. It never panics on malformed input.
func Normalize(p Payload) (Spec, error) {
	var root *object
	switch v := p.(type) {
	case Structured:
		if v == nil {
			return Spec{}, fmt.Errorf("%w: empty mapping", ErrNoSpec)
		}
		root = fromMap(v)
	case RawText:
		obj, err := extractObject(string(v))
		if err != nil {
			return Spec{}, fmt.Errorf("%w: %w", ErrNoSpec, err)
		}
		root = obj
	case nil:
		return Spec{}, fmt.Errorf("%w: nil payload", ErrNoSpec)
	default:
		return Spec{}, fmt.Errorf("%w: unsupported payload %T", ErrNoSpec, p)
	}
	return normalizeObject(root)
}

// NormalizeText is shorthand for Normalize(RawText(text)).
func NormalizeText(text string) (Spec, error) {
	return Normalize(RawText(text))
}

func normalizeObject(root *object) (Spec, error) {
	source := root
	if data, ok := root.get("data"); ok {
		if obj, ok := data.(*object); ok {
			source = obj
		}
	}

	cfgObj, _ := objectAt(root, "config")

	spec := Spec{
		Title:  titleOf(root, cfgObj),
		Labels: labelsOf(source, root),
		Config: configOf(root, cfgObj),
	}

	spec.Series = seriesOf(source)
	if len(spec.Series) == 0 && source != root {
		spec.Series = seriesOf(root)
	}
	if len(spec.Series) == 0 {
		return Spec{}, fmt.Errorf("%w: no numeric series", ErrNoSpec)
	}

	spec.Kind = kindOf(root, cfgObj)
	if spec.Kind == "" {
		spec.Kind = InferKind(spec.Title, spec.Labels, len(spec.Series))
	}

	if (spec.Kind == KindBar || spec.Kind == KindLine) && len(spec.Labels) > 0 {
		spec = spec.Aligned()
	}
	return spec, nil
}

func objectAt(o *object, key string) (*object, bool) {
	v, ok := o.get(key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(*object)
	return obj, ok
}

func titleOf(root, cfg *object) string {
	if s, ok := stringAt(root, "title"); ok {
		return s
	}
	if cfg != nil {
		if s, ok := stringAt(cfg, "title"); ok {
			return s
		}
	}
	return DefaultTitle
}

func kindOf(root, cfg *object) Kind {
	for _, o := range []*object{root, cfg} {
		if o == nil {
			continue
		}
		for _, key := range kindKeys {
			if s, ok := stringAt(o, key); ok {
				return ParseKind(s)
			}
		}
	}
	return ""
}

func stringAt(o *object, key string) (string, bool) {
	v, ok := o.get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func labelsOf(source, root *object) []string {
	for _, o := range []*object{source, root} {
		v, ok := o.get("labels")
		if !ok {
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		labels := make([]string, 0, len(arr))
		for _, e := range arr {
			labels = append(labels, labelText(e))
		}
		return labels
	}
	return []string{}
}

func labelText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(v)
	}
}

// seriesOf collects, in key order, every numeric array of o that is not a
// reserved key. Datasets are flattened first.
func seriesOf(o *object) []Series {
	var out []Series
	seen := make(map[string]bool)
	add := func(name string, v any) {
		if seen[name] {
			return
		}
		values, ok := numbers(v)
		if !ok {
			return
		}
		seen[name] = true
		out = append(out, Series{Name: name, Values: values})
	}

	if v, ok := o.get("datasets"); ok {
		if arr, ok := v.([]any); ok {
			for i, e := range arr {
				ds, ok := e.(*object)
				if !ok {
					continue
				}
				name, ok := stringAt(ds, "label")
				if !ok {
					name = fmt.Sprintf("Series %d", i+1)
				}
				if data, ok := ds.get("data"); ok {
					add(name, data)
				}
			}
		}
	}

	for _, key := range o.keys {
		if reservedKeys[strings.ToLower(key)] {
			continue
		}
		add(key, o.values[key])
	}
	return out
}

// numbers returns the values of v when it is a non-empty array whose every
// element is a number. Booleans and numeric strings are not numbers.
func numbers(v any) ([]float64, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	values := make([]float64, len(arr))
	for i, e := range arr {
		f, ok := toFloat(e)
		if !ok {
			return nil, false
		}
		values[i] = f
	}
	return values, true
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// configOf reads presentation options from the config object, falling back
// to the same keys at the payload root.
func configOf(root, cfg *object) Config {
	var c Config
	sources := []*object{cfg, root}

	for _, o := range sources {
		if o == nil {
			continue
		}
		if c.XAxisLabel == "" {
			c.XAxisLabel, _ = stringAt(o, "x_axis_label")
		}
		if c.YAxisLabel == "" {
			c.YAxisLabel, _ = stringAt(o, "y_axis_label")
		}
		if c.Colors == nil {
			c.Colors = stringsAt(o, "colors")
		}
		if c.Legend == nil {
			c.Legend = stringsAt(o, "legend")
		}
		if c.TitleFontSize == 0 {
			c.TitleFontSize = numberAt(o, "title_font_size")
		}
		if c.AxisFontSize == 0 {
			c.AxisFontSize = numberAt(o, "axis_font_size")
		}
		if c.BarWidth == 0 {
			c.BarWidth = numberAt(o, "bar_width")
		}
	}
	return c.WithDefaults()
}

func stringsAt(o *object, key string) []string {
	v, ok := o.get(key)
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func numberAt(o *object, key string) float64 {
	v, ok := o.get(key)
	if !ok {
		return 0
	}
	f, ok := toFloat(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}
