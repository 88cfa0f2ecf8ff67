// Package gateway is the single entry point for chat and draw requests.
// It prepares the prompt, runs the provider cascade and shapes the reply.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/roelfdiedericks/floragate/internal/augment"
	"github.com/roelfdiedericks/floragate/internal/config"
	"github.com/roelfdiedericks/floragate/internal/format"
	"github.com/roelfdiedericks/floragate/internal/llm"
	. "github.com/roelfdiedericks/floragate/internal/logging"
	"github.com/roelfdiedericks/floragate/internal/media"
	. "github.com/roelfdiedericks/floragate/internal/metrics"
	"github.com/roelfdiedericks/floragate/internal/search"
	"github.com/roelfdiedericks/floragate/internal/tokens"
	"github.com/roelfdiedericks/floragate/internal/translate"
	"github.com/roelfdiedericks/floragate/internal/types"
)

// ErrInvalidRequest marks caller mistakes. Everything else is answered
// with a reply, even when no provider could serve it.
var ErrInvalidRequest = errors.New("invalid request")

// Options are the user-facing texts and budgets.
type Options struct {
	AssistantName     string
	SystemPrompt      string
	FallbackMessage   string
	VisionDefaultText string
	DrawCaption       string // %s is replaced by the prompt
	MaxHistoryTokens  int
	ImageLimits       media.Limits
}

// ChatReply is the answer to one chat request.
type ChatReply struct {
	Reply     string `json:"reply"`
	Provider  string `json:"-"`
	Model     string `json:"-"`
	Exhausted bool   `json:"-"`
	Augmented bool   `json:"-"`
	Attempts  int    `json:"-"`
}

// DrawReply is the answer to one draw request. URL is empty on fallback.
type DrawReply struct {
	Reply    string `json:"reply"`
	URL      string `json:"url,omitempty"`
	Prompt   string `json:"-"` // prompt sent to the provider, after translation
	Provider string `json:"-"`
}

// Gateway coordinates one request at a time; it holds no per-request
// state and is safe for concurrent use.
type Gateway struct {
	cascade    *llm.Cascade
	augmenter  *augment.Augmenter
	translator *translate.Translator
	tokens     *tokens.Estimator
	normalizer *format.Normalizer
	prepare    func(uri string, limits media.Limits) (*media.ImageData, error)
	opts       Options
	startTime  time.Time
}

// New creates a gateway. augmenter and translator may be nil.
func New(cascade *llm.Cascade, opts Options, augmenter *augment.Augmenter, translator *translate.Translator) *Gateway {
	if opts.ImageLimits.MaxDimension == 0 || opts.ImageLimits.MaxBytes == 0 {
		opts.ImageLimits = media.DefaultLimits()
	}
	if opts.DrawCaption == "" {
		opts.DrawCaption = "<b>%s</b>"
	}
	return &Gateway{
		cascade:    cascade,
		augmenter:  augmenter,
		translator: translator,
		tokens:     tokens.Get(),
		normalizer: format.NewNormalizer(opts.AssistantName),
		prepare:    media.Prepare,
		opts:       opts,
		startTime:  time.Now(),
	}
}

// FromConfig wires the registry, search backend and translator from cfg.
func FromConfig(cfg *config.Config) (*Gateway, error) {
	descs, err := cfg.Descriptors()
	if err != nil {
		return nil, err
	}
	registry, err := llm.NewRegistry(descs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider registry: %w", err)
	}

	var searcher search.Searcher
	if cfg.Search.Driver != "" {
		searcher, err = search.New(search.Options{
			Driver:  cfg.Search.Driver,
			APIKey:  cfg.SearchKey(),
			BaseURL: cfg.Search.BaseURL,
			Count:   cfg.Search.Count,
		})
		if err != nil {
			L_warn("gateway: search disabled", "error", err)
			searcher = nil
		}
	}
	aug := augment.New(augment.Options{
		Triggers:  cfg.Augment.Triggers,
		MinLength: cfg.Augment.MinLength,
		Timeout:   cfg.AugmentTimeout(),
	}, searcher)

	var tr *translate.Translator
	if !cfg.Translate.Disabled {
		tr = translate.New(translate.Options{
			BaseURL: cfg.Translate.BaseURL,
			Target:  cfg.Translate.Target,
			Timeout: cfg.TranslateTimeout(),
		})
	}

	return New(llm.NewCascade(registry), Options{
		AssistantName:     cfg.Gateway.AssistantName,
		SystemPrompt:      cfg.Gateway.SystemPrompt,
		FallbackMessage:   cfg.Gateway.FallbackMessage,
		VisionDefaultText: cfg.Gateway.VisionDefaultText,
		DrawCaption:       cfg.Gateway.DrawCaption,
		MaxHistoryTokens:  cfg.Gateway.MaxHistoryTokens,
		ImageLimits:       cfg.ImageLimits(),
	}, aug, tr), nil
}

// Registry exposes the provider registry for status reporting.
func (g *Gateway) Registry() *llm.Registry {
	return g.cascade.Registry()
}

// Uptime returns how long the gateway has been running.
func (g *Gateway) Uptime() time.Duration {
	return time.Since(g.startTime)
}

// Chat answers one chat request. It returns an error only for invalid
// input; provider failures produce the fallback reply.
func (g *Gateway) Chat(ctx context.Context, req types.ChatRequest) (reply *ChatReply, err error) {
	start := time.Now()
	reqID := types.RequestID(ctx)

	defer func() {
		if r := recover(); r != nil {
			L_error("gateway: chat panicked", "request", reqID, "panic", r)
			MetricFailWithReason("gateway", "chat", "panic")
			reply, err = &ChatReply{Reply: g.opts.FallbackMessage, Exhausted: true}, nil
		}
	}()

	message := strings.TrimSpace(req.Message)
	if message == "" && !req.HasImage() {
		return nil, fmt.Errorf("%w: message or image is required", ErrInvalidRequest)
	}
	for i, t := range req.History {
		if !t.Speaker.Valid() {
			return nil, fmt.Errorf("%w: history[%d]: unknown speaker %q", ErrInvalidRequest, i, t.Speaker)
		}
	}

	var image *types.ImageAttachment
	if req.HasImage() {
		img, err := g.prepare(req.Image, g.opts.ImageLimits)
		if err != nil {
			return nil, fmt.Errorf("%w: image: %v", ErrInvalidRequest, err)
		}
		image = img.Attachment()
		if message == "" {
			message = g.opts.VisionDefaultText
		}
	}

	history := g.tokens.TrimHistory(g.normalizer.NormalizeHistory(req.History), g.opts.MaxHistoryTokens)
	if dropped := len(req.History) - len(history); dropped > 0 {
		L_debug("gateway: history trimmed", "request", reqID, "dropped", dropped, "kept", len(history))
	}

	userText, sc := g.augmenter.Augment(ctx, message, image != nil)

	capability := llm.CapabilityText
	if image != nil {
		capability = llm.CapabilityVision
	}
	res := g.cascade.Run(ctx, llm.Request{
		Prompt:       llm.NewPrompt(g.opts.SystemPrompt, history, userText, image),
		Capability:   capability,
		ProviderHint: req.ProviderHint,
	})

	reply = &ChatReply{Attempts: len(res.Attempts), Augmented: !sc.Empty()}
	if res.State != llm.StateSucceeded {
		reply.Reply = g.opts.FallbackMessage
		reply.Exhausted = true
		MetricFailWithReason("gateway", "chat", string(res.Reason))
		L_elapsed(start, "gateway: chat answered with fallback", "request", reqID, "reason", res.Reason)
		return reply, nil
	}

	resp := g.normalizer.NewResponse(res.Outcome, g.labelFor(res.Provider))
	reply.Reply = resp.Reply()
	reply.Provider = res.Provider.ID
	reply.Model = res.Outcome.Model
	MetricSuccess("gateway", "chat")
	L_elapsed(start, "gateway: chat answered", "request", reqID, "provider", reply.Provider, "model", reply.Model)
	return reply, nil
}

// Draw generates one image. The prompt is translated to English first,
// falling back to the original wording.
func (g *Gateway) Draw(ctx context.Context, req types.DrawRequest) (reply *DrawReply, err error) {
	start := time.Now()
	reqID := types.RequestID(ctx)
	prompt := strings.TrimSpace(req.Prompt)

	defer func() {
		if r := recover(); r != nil {
			L_error("gateway: draw panicked", "request", reqID, "panic", r)
			MetricFailWithReason("gateway", "draw", "panic")
			reply, err = &DrawReply{Reply: g.opts.FallbackMessage, Prompt: prompt}, nil
		}
	}()

	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}

	english := prompt
	if g.translator != nil {
		english = g.translator.ToEnglish(ctx, prompt)
		if english != prompt {
			L_debug("gateway: draw prompt translated", "request", reqID, "from", prompt, "to", english)
		}
	}

	res := g.cascade.Run(ctx, llm.Request{
		Prompt:       llm.NewPrompt("", nil, english, nil),
		Capability:   llm.CapabilityImage,
		ProviderHint: req.ProviderHint,
	})

	reply = &DrawReply{Prompt: english}
	if res.State != llm.StateSucceeded || res.Outcome.ImageURL == "" {
		reply.Reply = g.opts.FallbackMessage
		MetricFailWithReason("gateway", "draw", string(res.Reason))
		L_elapsed(start, "gateway: draw answered with fallback", "request", reqID, "reason", res.Reason)
		return reply, nil
	}

	caption := strings.Replace(g.opts.DrawCaption, "%s", html.EscapeString(english), 1)
	reply.Reply = format.Label(g.labelFor(res.Provider)) + caption
	reply.URL = res.Outcome.ImageURL
	reply.Provider = res.Provider.ID
	MetricSuccess("gateway", "draw")
	L_elapsed(start, "gateway: draw answered", "request", reqID, "provider", reply.Provider)
	return reply, nil
}

// labelFor names the reply source, e.g. "Flora Qwen 7B".
func (g *Gateway) labelFor(d *llm.Descriptor) string {
	if d == nil {
		return g.opts.AssistantName
	}
	return strings.TrimSpace(g.opts.AssistantName + " " + d.Name())
}
