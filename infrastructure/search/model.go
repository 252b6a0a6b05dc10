package search

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/hoopstats/domain/config"
	"github.com/felixgeelhaar/hoopstats/infrastructure/llm"
)

// Completer runs a model call for a pipeline stage.
type Completer interface {
	Complete(ctx context.Context, stage string, req llm.CompletionRequest) (llm.CompletionResponse, error)
}

// ModelSearcher answers a query with the search stage model. With a web
// client attached the model summarizes fetched results instead of relying
// on what it already knows.
type ModelSearcher struct {
	model        Completer
	web          *Tavily
	instructions string
}

// ModelOption configures a ModelSearcher.
type ModelOption func(*ModelSearcher)

// WithWeb grounds the model on Tavily results.
func WithWeb(t *Tavily) ModelOption {
	return func(s *ModelSearcher) {
		s.web = t
	}
}

// WithInstructions replaces the system prompt.
func WithInstructions(instructions string) ModelOption {
	return func(s *ModelSearcher) {
		s.instructions = instructions
	}
}

// NewModelSearcher creates a searcher steered to trusted.
func NewModelSearcher(model Completer, trusted []string, opts ...ModelOption) *ModelSearcher {
	s := &ModelSearcher{
		model:        model,
		instructions: Instructions(trusted),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the searcher name.
func (s *ModelSearcher) Name() string {
	if s.web != nil {
		return "model+tavily"
	}
	return "model"
}

// Search implements Searcher.
func (s *ModelSearcher) Search(ctx context.Context, query string) (Response, error) {
	if strings.TrimSpace(query) == "" {
		return Response{}, ErrEmptyQuery
	}

	prompt := query
	var results []Result
	if s.web != nil {
		var err error
		results, err = s.web.Results(ctx, query)
		if err != nil {
			return Response{}, err
		}
		if len(results) > 0 {
			prompt = "Query: " + query + "\n\nWeb results:\n" + FormatResults(results)
		}
	}

	resp, err := s.model.Complete(ctx, config.StageSearch, llm.Prompt(s.instructions, prompt))
	if err != nil {
		return Response{}, err
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return Response{}, ErrNoResults
	}
	return Response{Query: query, Summary: summary, Results: results}, nil
}

var _ Searcher = (*ModelSearcher)(nil)
