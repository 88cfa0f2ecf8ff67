package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	. "github.com/roelfdiedericks/floragate/internal/logging"
)

const braveURL = "https://api.search.brave.com/res/v1/web/search"

// Brave searches with the Brave Search API
type Brave struct {
	apiKey  string
	baseURL string
	count   int
	client  *http.Client
}

// braveResponse represents the Brave Search API response
type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs one query.
func (s *Brave) Search(ctx context.Context, query string) (*Result, error) {
	reqURL, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("brave: bad base url: %w", err)
	}
	q := reqURL.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(s.count))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		L_debug("brave: API error", "status", resp.StatusCode)
		return nil, fmt.Errorf("search API error: %s", resp.Status)
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	res := &Result{Query: query}
	for i, r := range parsed.Web.Results {
		if i >= s.count {
			break
		}
		res.Items = append(res.Items, Item{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return res, nil
}
