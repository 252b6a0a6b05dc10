package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Tavily calls the Tavily search API.
type Tavily struct {
	apiKey     string
	baseURL    string
	maxResults int
	domains    []string
	client     *http.Client
}

// TavilyConfig configures the Tavily client.
type TavilyConfig struct {
	APIKey         string        // Required
	BaseURL        string        // Default: https://api.tavily.com
	MaxResults     int           // Default: 5
	IncludeDomains []string      // Restricts results to these domains
	Timeout        time.Duration // Default: 10s
}

// NewTavily constructs a Tavily search client.
func NewTavily(cfg TavilyConfig) *Tavily {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Tavily{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxResults: maxResults,
		domains:    cfg.IncludeDomains,
		client:     &http.Client{Timeout: timeout},
	}
}

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Name returns the searcher name.
func (t *Tavily) Name() string {
	return "tavily"
}

// Results posts query to Tavily and returns at most MaxResults hits.
func (t *Tavily) Results(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return nil, fmt.Errorf("tavily: %w", ErrMissingAPIKey)
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:         t.apiKey,
		Query:          query,
		SearchDepth:    "basic",
		MaxResults:     t.maxResults,
		IncludeDomains: t.domains,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tavily: parse response: %w", err)
	}

	results := make([]Result, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if len(results) >= t.maxResults {
			break
		}
	}
	return results, nil
}

// Search implements Searcher with the raw results as the summary.
func (t *Tavily) Search(ctx context.Context, query string) (Response, error) {
	if strings.TrimSpace(query) == "" {
		return Response{}, ErrEmptyQuery
	}
	results, err := t.Results(ctx, query)
	if err != nil {
		return Response{}, err
	}
	if len(results) == 0 {
		return Response{}, ErrNoResults
	}
	return Response{Query: query, Summary: FormatResults(results), Results: results}, nil
}

var _ Searcher = (*Tavily)(nil)
