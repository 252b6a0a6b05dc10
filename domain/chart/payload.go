package chart

// Payload is the untrusted input handed to Normalize. It is either an
// already decoded mapping (Structured) or raw model text (RawText).
type Payload interface {
	isPayload()
}

// Structured is a payload that is already shaped as a mapping.
type Structured map[string]any

// RawText is model output that may embed a JSON object in prose, in a
// fenced code block, or as the entire string.
type RawText string

func (Structured) isPayload() {}
func (RawText) isPayload()    {}
