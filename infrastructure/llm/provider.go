// Package llm provides language-model providers for the chatbot pipeline.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a chat completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Name returns the provider name for logging.
	Name() string
}

// CompletionRequest represents a chat completion request.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Prompt builds a request with a system instruction and one user message.
func Prompt(system, user string) CompletionRequest {
	req := CompletionRequest{}
	if system != "" {
		req.Messages = append(req.Messages, Message{Role: RoleSystem, Content: system})
	}
	req.Messages = append(req.Messages, Message{Role: RoleUser, Content: user})
	return req
}

// System returns the content of the first system message.
func (r CompletionRequest) System() string {
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a chat completion response.
type CompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider errors. ErrUnauthorized and ErrBadRequest are never retried.
var (
	ErrUnauthorized    = errors.New("provider rejected credentials")
	ErrBadRequest      = errors.New("provider rejected request")
	ErrRateLimited     = errors.New("provider rate limited")
	ErrUnavailable     = errors.New("provider unavailable")
	ErrEmptyResponse   = errors.New("provider returned no content")
	ErrMissingAPIKey   = errors.New("api key is required")
	ErrUnknownProvider = errors.New("unknown provider")
)

// APIError is an error reported by a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s error (status %d)", e.Provider, e.StatusCode)
	if e.Type != "" {
		msg += " " + e.Type
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap returns the error class for the status code.
func (e *APIError) Unwrap() error {
	return e.kind
}

// maxErrorBody bounds how much of a provider error body ends up in errors
// and logs.
const maxErrorBody = 512

// sanitizeProviderError classifies a non-200 response by status code and
// truncates its body.
func sanitizeProviderError(provider string, status int, body []byte) error {
	msg := string(body)
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return &APIError{
		Provider:   provider,
		StatusCode: status,
		Message:    msg,
		kind:       classifyStatus(status),
	}
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrBadRequest
	}
}
