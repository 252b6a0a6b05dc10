package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	"github.com/felixgeelhaar/hoopstats/domain/chart"
)

// ContentType is the media type of every artifact.
const ContentType = "image/png"

// Artifact is one rendered chart. PNG holds the encoded image; Base64 and
// Decode adapt it for presentation layers that want text or a bitmap.
type Artifact struct {
	PNG    []byte
	Kind   chart.Kind
	Title  string
	Width  int
	Height int

	// Labels are the category or slice labels actually drawn.
	Labels []string
	// SeriesNames are the series actually drawn, in legend order.
	SeriesNames []string
	// Bars is the number of bars drawn for bar charts.
	Bars int
	// Legend reports whether a legend was drawn.
	Legend bool
	// Fallback reports whether the spec was rendered through the bar fallback.
	Fallback bool
}

// Base64 returns the PNG encoded as standard base64.
func (a *Artifact) Base64() string {
	return base64.StdEncoding.EncodeToString(a.PNG)
}

// DataURI returns the PNG as a data URI suitable for an img tag.
func (a *Artifact) DataURI() string {
	return "data:" + ContentType + ";base64," + a.Base64()
}

// Decode decodes the PNG into a bitmap.
func (a *Artifact) Decode() (image.Image, error) {
	return png.Decode(bytes.NewReader(a.PNG))
}

// Size returns the encoded size in bytes.
func (a *Artifact) Size() int {
	return len(a.PNG)
}
