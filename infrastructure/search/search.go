// Package search finds the facts a basketball question is answered from.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Response is the outcome of a search. Summary is the text handed to the
// extraction stage.
type Response struct {
	Query   string   `json:"query"`
	Summary string   `json:"summary"`
	Results []Result `json:"results,omitempty"`
	Cached  bool     `json:"-"`
}

// Searcher finds facts for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (Response, error)
	Name() string
}

// Search errors.
var (
	ErrEmptyQuery    = errors.New("search query is empty")
	ErrMissingAPIKey = errors.New("search api key is required")
	ErrNoResults     = errors.New("search returned no results")
)

// FormatResults renders results as bullet points.
func FormatResults(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s", r.Title, strings.TrimSpace(r.Snippet))
		if r.URL != "" {
			fmt.Fprintf(&b, " (%s)", r.URL)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Instructions returns the search stage system prompt steering answers to
// the trusted sources.
func Instructions(trusted []string) string {
	var b strings.Builder
	b.WriteString("You are an NBA stats research assistant. Given a query about anything from the NBA, ")
	b.WriteString("find the answer and summarize it accurately in concise bullet points. ")
	if len(trusted) > 0 {
		b.WriteString("Always prioritize official or authoritative basketball sources like ")
		b.WriteString(strings.Join(trusted, ", "))
		b.WriteString(". ")
	}
	b.WriteString("Return only the essential information that answers the query clearly and precisely, ")
	b.WriteString("with no filler or unrelated data. Keep it short and factual.")
	return b.String()
}
