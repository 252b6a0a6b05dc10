package llm

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

// ErrScriptExhausted is returned once every scripted step has been used.
var ErrScriptExhausted = errors.New("script exhausted")

// ScriptStep is one expected call and its reply.
type ScriptStep struct {
	// ExpectSystem, when set, must be a substring of the request's system message.
	ExpectSystem string

	// Condition is an optional additional check on the request.
	Condition func(CompletionRequest) bool

	// Content is the reply text.
	Content string

	// Err, when set, is returned instead of a reply.
	Err error
}

// ScriptedProvider replays a fixed sequence of replies for deterministic
// tests and records every request it receives.
type ScriptedProvider struct {
	mu       sync.Mutex
	steps    []ScriptStep
	index    int
	requests []CompletionRequest
}

// NewScriptedProvider creates a scripted provider with the given steps.
func NewScriptedProvider(steps ...ScriptStep) *ScriptedProvider {
	return &ScriptedProvider{steps: steps}
}

// Name returns the provider name.
func (p *ScriptedProvider) Name() string {
	return "scripted"
}

// Complete returns the next scripted reply.
func (p *ScriptedProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return CompletionResponse{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.index >= len(p.steps) {
		return CompletionResponse{}, ErrScriptExhausted
	}

	step := p.steps[p.index]
	if step.ExpectSystem != "" && !strings.Contains(req.System(), step.ExpectSystem) {
		return CompletionResponse{}, &UnexpectedRequestError{StepIndex: p.index, Want: step.ExpectSystem}
	}
	if step.Condition != nil && !step.Condition(req) {
		return CompletionResponse{}, &UnexpectedRequestError{StepIndex: p.index, Want: "condition"}
	}

	p.index++
	if step.Err != nil {
		return CompletionResponse{}, step.Err
	}
	return CompletionResponse{
		ID:      "scripted-" + strconv.Itoa(p.index),
		Model:   req.Model,
		Content: step.Content,
	}, nil
}

// Requests returns a copy of the recorded requests.
func (p *ScriptedProvider) Requests() []CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CompletionRequest(nil), p.requests...)
}

// Reset rewinds the script and forgets recorded requests.
func (p *ScriptedProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = 0
	p.requests = nil
}

// IsComplete returns true if all steps have been executed.
func (p *ScriptedProvider) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index >= len(p.steps)
}

// UnexpectedRequestError indicates a request did not match its step.
type UnexpectedRequestError struct {
	StepIndex int
	Want      string
}

func (e *UnexpectedRequestError) Error() string {
	return "unexpected request at step " + strconv.Itoa(e.StepIndex) + ": want " + e.Want
}

var _ Provider = (*ScriptedProvider)(nil)
