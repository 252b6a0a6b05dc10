package render

import "errors"

// Render errors carried in Result.Err.
var (
	// ErrNoData indicates the spec lacks the data any chart kind needs.
	ErrNoData = errors.New("chart has no plottable data")

	// ErrRenderFailed indicates the drawing backend failed or panicked.
	ErrRenderFailed = errors.New("chart render failed")
)
