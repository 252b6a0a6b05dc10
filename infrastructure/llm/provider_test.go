package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestPrompt(t *testing.T) {
	t.Parallel()

	req := Prompt("be concise", "who won?")
	if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem || req.Messages[1].Role != RoleUser {
		t.Fatalf("Messages = %+v", req.Messages)
	}
	if req.System() != "be concise" {
		t.Errorf("System() = %q", req.System())
	}

	bare := Prompt("", "who won?")
	if len(bare.Messages) != 1 || bare.System() != "" {
		t.Errorf("Prompt without system = %+v", bare.Messages)
	}
}

func TestSanitizeProviderError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrUnavailable},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusNotFound, ErrBadRequest},
	}
	for _, tt := range tests {
		err := sanitizeProviderError("openai", tt.status, []byte("nope"))
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.want)
		}
	}

	long := strings.Repeat("x", 2000)
	err := sanitizeProviderError("ollama", 500, []byte(long))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *APIError", err)
	}
	if len(apiErr.Message) != maxErrorBody+3 || !strings.HasSuffix(apiErr.Message, "...") {
		t.Errorf("message length = %d", len(apiErr.Message))
	}
	if !strings.Contains(err.Error(), "ollama error (status 500)") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestScriptedProvider(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := NewScriptedProvider(
		ScriptStep{ExpectSystem: "search", Content: "facts"},
		ScriptStep{Err: boom},
		ScriptStep{Condition: func(r CompletionRequest) bool { return r.Model == "gpt-4o" }, Content: "final"},
	)
	ctx := context.Background()

	resp, err := p.Complete(ctx, Prompt("you search", "q"))
	if err != nil || resp.Content != "facts" || resp.ID != "scripted-1" {
		t.Fatalf("step 1 = %+v, %v", resp, err)
	}
	if _, err := p.Complete(ctx, Prompt("x", "q")); !errors.Is(err, boom) {
		t.Fatalf("step 2 error = %v, want boom", err)
	}

	var unexpected *UnexpectedRequestError
	if _, err := p.Complete(ctx, Prompt("x", "q")); !errors.As(err, &unexpected) || unexpected.StepIndex != 2 {
		t.Fatalf("step 3 mismatch error = %v", err)
	}
	req := Prompt("x", "q")
	req.Model = "gpt-4o"
	if resp, err := p.Complete(ctx, req); err != nil || resp.Content != "final" {
		t.Fatalf("step 3 = %+v, %v", resp, err)
	}
	if !p.IsComplete() {
		t.Error("IsComplete() = false")
	}
	if _, err := p.Complete(ctx, req); !errors.Is(err, ErrScriptExhausted) {
		t.Errorf("after script error = %v, want ErrScriptExhausted", err)
	}
	if n := len(p.Requests()); n != 5 {
		t.Errorf("recorded requests = %d, want 5", n)
	}

	p.Reset()
	if p.IsComplete() || len(p.Requests()) != 0 {
		t.Error("Reset() did not rewind")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.Complete(cancelled, req); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled error = %v", err)
	}
}
