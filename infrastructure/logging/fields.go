package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for chatbot pipeline logging.

// QueryID adds a query ID field.
func QueryID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("query_id", id)
	}
}

// Stage adds a pipeline stage field (search, extract, visualize, predict, answer).
func Stage(stage string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("stage", stage)
	}
}

// ChartKind adds a chart kind field.
func ChartKind(kind string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("chart_kind", kind)
	}
}

// Model adds a model name field.
func Model(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("model", name)
	}
}

// Provider adds a model provider field.
func Provider(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("provider", name)
	}
}

// Tokens adds prompt and completion token counts.
func Tokens(prompt, completion int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("prompt_tokens", prompt).Int("completion_tokens", completion)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Cached adds a cached field.
func Cached(cached bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("cached", cached)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Count adds a count field with a custom key.
func Count(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, n)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
