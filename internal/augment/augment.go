// Package augment decides whether a chat message needs fresh web context
// and fetches it under a hard timeout.
package augment

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	. "github.com/roelfdiedericks/floragate/internal/logging"
	. "github.com/roelfdiedericks/floragate/internal/metrics"
	"github.com/roelfdiedericks/floragate/internal/search"
)

// DefaultTriggers cover Indonesian and English time-sensitive phrasing.
var DefaultTriggers = []string{
	"berita", "terbaru", "terkini", "hari ini", "sekarang", "cuaca", "harga", "jadwal", "skor",
	"news", "latest", "today", "current", "weather", "price", "schedule", "score",
}

const (
	DefaultMinLength = 8
	DefaultTimeout   = 4 * time.Second
)

// Options control when and how long augmentation runs.
type Options struct {
	Triggers  []string
	MinLength int
	Timeout   time.Duration
}

// SearchContext is the fetched context. Summary is empty when nothing
// was found or the search lost the race.
type SearchContext struct {
	Query     string
	Summary   string
	FetchedAt time.Time
}

// Empty reports whether there is no text to inject.
func (c *SearchContext) Empty() bool {
	return c == nil || c.Summary == ""
}

// Augmenter wraps a searcher with the trigger predicate and timeout race.
type Augmenter struct {
	searcher  search.Searcher
	triggers  []*regexp.Regexp
	minLength int
	timeout   time.Duration
}

// New builds an augmenter. A nil searcher disables augmentation.
func New(cfg Options, s search.Searcher) *Augmenter {
	if len(cfg.Triggers) == 0 {
		cfg.Triggers = DefaultTriggers
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	a := &Augmenter{searcher: s, minLength: cfg.MinLength, timeout: cfg.Timeout}
	for _, t := range cfg.Triggers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		// word-boundary match that also works for non-ASCII letters
		re := regexp.MustCompile(`(?i)(?:^|[^\pL\pN])` + regexp.QuoteMeta(t) + `(?:$|[^\pL\pN])`)
		a.triggers = append(a.triggers, re)
	}
	return a
}

// Enabled reports whether a searcher is configured.
func (a *Augmenter) Enabled() bool {
	return a != nil && a.searcher != nil
}

// ShouldAugment is a pure predicate over the message. Messages with an
// attached image are never augmented.
func (a *Augmenter) ShouldAugment(message string, hasImage bool) bool {
	if hasImage {
		return false
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) < a.minLength {
		return false
	}
	for _, re := range a.triggers {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

type searchResult struct {
	res *search.Result
	err error
}

// Fetch races one search against the timeout. It never fails: errors,
// timeouts and cancellation all yield an empty context.
func (a *Augmenter) Fetch(ctx context.Context, query string) *SearchContext {
	sc := &SearchContext{Query: query}
	if !a.Enabled() {
		return sc
	}
	start := time.Now()

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so an abandoned search can still deliver and exit
	ch := make(chan searchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- searchResult{err: &panicError{r}}
			}
		}()
		res, err := a.searcher.Search(sctx, query)
		ch <- searchResult{res: res, err: err}
	}()

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		MetricDuration("augment", "search", time.Since(start))
		if r.err != nil {
			L_debug("augment: search failed, continuing without context", "error", r.err)
			MetricFailWithReason("augment", "search", "error")
			return sc
		}
		sc.Summary = r.res.Summary()
		sc.FetchedAt = time.Now()
		MetricSuccess("augment", "search")
		L_debug("augment: search context fetched", "chars", len(sc.Summary), "elapsed", time.Since(start))
	case <-timer.C:
		L_debug("augment: search timed out", "timeout", a.timeout)
		MetricFailWithReason("augment", "search", "timeout")
	case <-ctx.Done():
		L_debug("augment: request canceled during search")
		MetricFailWithReason("augment", "search", "canceled")
	}
	return sc
}

// Augment returns the message with search context injected when the
// predicate fires, and the context itself (possibly empty).
func (a *Augmenter) Augment(ctx context.Context, message string, hasImage bool) (string, *SearchContext) {
	if !a.Enabled() || !a.ShouldAugment(message, hasImage) {
		return message, nil
	}
	sc := a.Fetch(ctx, strings.TrimSpace(message))
	return Inject(message, sc), sc
}

// Inject prepends the search summary verbatim to the user message.
func Inject(message string, sc *SearchContext) string {
	if sc.Empty() {
		return message
	}
	var b strings.Builder
	b.WriteString("Web search results (")
	b.WriteString(sc.FetchedAt.UTC().Format("2006-01-02 15:04 MST"))
	b.WriteString("):\n")
	b.WriteString(sc.Summary)
	b.WriteString("\n\nUse the results above if they are relevant.\n\nQuestion: ")
	b.WriteString(message)
	return b.String()
}

type panicError struct{ v any }

func (p *panicError) Error() string { return fmt.Sprintf("search panicked: %v", p.v) }
