package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/hoopstats/domain/config"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chat/completions" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var body struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Model != "gpt-4o-mini" || len(body.Messages) != 2 {
			t.Errorf("body = %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Jokic averaged 30.2 PPG."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	resp, err := p.Complete(context.Background(), Prompt("system", "user"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Jokic averaged 30.2 PPG." || resp.ID != "chatcmpl-1" || resp.Usage.TotalTokens != 20 {
		t.Errorf("resp = %+v", resp)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestOpenAIProvider_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{"error": {"message": "slow down", "type": "requests"}}`, ErrRateLimited},
		{"server html", http.StatusBadGateway, `<html>bad gateway</html>`, ErrUnavailable},
		{"no choices", http.StatusOK, `{"id": "x", "choices": []}`, ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"})
			_, err := p.Complete(context.Background(), Prompt("", "q"))
			if !errors.Is(err, tt.want) {
				t.Errorf("Complete() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak-test" || r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("headers = %v", r.Header)
		}
		var body anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.System != "be concise" || len(body.Messages) != 1 || body.Messages[0].Role != RoleUser {
			t.Errorf("body = %+v", body)
		}
		if body.MaxTokens != 1024 {
			t.Errorf("max_tokens = %d, want default 1024", body.MaxTokens)
		}
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Giannis: "}, {"type": "text", "text": "31.1 PPG"}],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(AnthropicConfig{APIKey: "ak-test", BaseURL: srv.URL, Model: "claude-3-5-haiku-latest"})
	resp, err := p.Complete(context.Background(), Prompt("be concise", "q"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Giannis: 31.1 PPG" || resp.Usage.TotalTokens != 15 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAnthropicProvider_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewAnthropicProvider(AnthropicConfig{APIKey: "ak-test", BaseURL: srv.URL})
	if _, err := p.Complete(context.Background(), Prompt("", "q")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Complete() error = %v, want ErrUnavailable", err)
	}
}

func TestOllamaProvider_Complete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Stream || body.Model != "llama3" || body.Options == nil || body.Options.NumPredict != 200 {
			t.Errorf("body = %+v", body)
		}
		_, _ = w.Write([]byte(`{"model": "llama3", "message": {"role": "assistant", "content": "42"}, "done": true, "prompt_eval_count": 7, "eval_count": 3}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL, Model: "llama3"})
	req := Prompt("", "q")
	req.MaxTokens = 200
	resp, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "42" || resp.Usage.TotalTokens != 10 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOllamaProvider_EmptyContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"model": "llama3", "message": {"role": "assistant", "content": ""}, "done": true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL})
	if _, err := p.Complete(context.Background(), Prompt("", "q")); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Complete() error = %v, want ErrEmptyResponse", err)
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.ModelsConfig
		wantName string
		wantErr  error
	}{
		{"openai", config.ModelsConfig{Provider: "openai", APIKey: "k"}, "openai", nil},
		{"openai without key", config.ModelsConfig{Provider: "openai"}, "", ErrMissingAPIKey},
		{"anthropic", config.ModelsConfig{Provider: "anthropic", APIKey: "k"}, "anthropic", nil},
		{"anthropic without key", config.ModelsConfig{Provider: "anthropic"}, "", ErrMissingAPIKey},
		{"ollama", config.ModelsConfig{Provider: "ollama"}, "ollama", nil},
		{"unknown", config.ModelsConfig{Provider: "watson"}, "", ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := NewProvider(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewProvider() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}
