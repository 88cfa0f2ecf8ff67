// Package search runs one web search against Brave or Tavily and renders
// the hits as a plain-text summary for prompt injection.
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Item is one search hit.
type Item struct {
	Title   string
	URL     string
	Snippet string
}

// Result is the outcome of one search.
type Result struct {
	Query  string
	Answer string // provider-written answer, if any
	Items  []Item
}

// Summary renders the result as numbered plain text. Empty results give "".
func (r *Result) Summary() string {
	if r == nil || (r.Answer == "" && len(r.Items) == 0) {
		return ""
	}
	var b strings.Builder
	if r.Answer != "" {
		b.WriteString(r.Answer)
		b.WriteString("\n\n")
	}
	for i, it := range r.Items {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n   %s\n", i+1, it.Title, it.URL, it.Snippet)
	}
	return strings.TrimSpace(b.String())
}

// Searcher performs a single, non-retried search call.
type Searcher interface {
	Search(ctx context.Context, query string) (*Result, error)
}

// Options configure a backend.
type Options struct {
	Driver  string // "brave" or "tavily"
	APIKey  string
	BaseURL string // override for tests and proxies
	Count   int
}

// New creates a searcher for the configured driver.
func New(opts Options) (Searcher, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("search: %s API key not configured", opts.Driver)
	}
	if opts.Count <= 0 {
		opts.Count = 5
	}
	if opts.Count > 20 {
		opts.Count = 20
	}
	client := &http.Client{Timeout: 30 * time.Second}

	switch opts.Driver {
	case "brave":
		return &Brave{apiKey: opts.APIKey, baseURL: orDefault(opts.BaseURL, braveURL), count: opts.Count, client: client}, nil
	case "tavily":
		return &Tavily{apiKey: opts.APIKey, baseURL: orDefault(opts.BaseURL, tavilyURL), count: opts.Count, client: client}, nil
	default:
		return nil, fmt.Errorf("search: unknown driver %q", opts.Driver)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return strings.TrimSuffix(s, "/")
}
