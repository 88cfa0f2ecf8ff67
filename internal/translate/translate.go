// Package translate does best-effort machine translation of draw prompts
// through the public Google Translate endpoint.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	. "github.com/roelfdiedericks/floragate/internal/logging"
)

const (
	defaultBaseURL = "https://translate.googleapis.com/translate_a/single"
	DefaultTimeout = 3 * time.Second
)

// Translator converts text to a target language. It never returns an error
// from ToEnglish; failures fall back to the input.
type Translator struct {
	baseURL string
	target  string
	timeout time.Duration
	client  *http.Client
}

// Options configure a Translator.
type Options struct {
	BaseURL string
	Target  string // ISO code, default "en"
	Timeout time.Duration
}

// New creates a translator.
func New(opts Options) *Translator {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Target == "" {
		opts.Target = "en"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Translator{
		baseURL: opts.BaseURL,
		target:  opts.Target,
		timeout: opts.Timeout,
		client:  &http.Client{},
	}
}

// ToEnglish translates text under the translator's own timeout. On any
// failure the original text is returned.
func (t *Translator) ToEnglish(ctx context.Context, text string) string {
	if t == nil || strings.TrimSpace(text) == "" {
		return text
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.Translate(ctx, text)
	if err != nil {
		L_debug("translate: failed, using original prompt", "error", err)
		return text
	}
	return out
}

// Translate performs one request and returns the joined translated segments.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", t.target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate API error: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return parseResponse(body)
}

// parseResponse reads the gtx array shape: [[["translated","source",...],...],...].
func parseResponse(body []byte) (string, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(top) == 0 {
		return "", fmt.Errorf("empty translate response")
	}
	var segments [][]any
	if err := json.Unmarshal(top[0], &segments); err != nil {
		return "", fmt.Errorf("unexpected segment shape: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("no translated text")
	}
	return out, nil
}
