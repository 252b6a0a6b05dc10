package chart

import "errors"

// Domain errors for chart normalization.
var (
	// ErrNoSpec indicates the payload holds no usable chart description.
	ErrNoSpec = errors.New("no usable chart spec")

	// ErrNoJSONObject indicates no JSON object could be located in model text.
	ErrNoJSONObject = errors.New("no JSON object found")

	// ErrNotObject indicates the decoded JSON value is not an object.
	ErrNotObject = errors.New("JSON value is not an object")
)
