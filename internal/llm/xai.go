package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roelfdiedericks/xai-go"

	. "github.com/roelfdiedericks/floragate/internal/logging"
	"github.com/roelfdiedericks/floragate/internal/types"
)

const defaultXAIMaxTokens = 4096

// safeInt32 converts int to int32 with bounds checking to prevent overflow.
func safeInt32(n int) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < math.MinInt32 {
		return math.MinInt32
	}
	return int32(n)
}

// XAIAdapter speaks xAI's gRPC API for chat, vision and image generation.
// gRPC clients are expensive, so one is kept per credential.
type XAIAdapter struct {
	id        string
	maxTokens int
	timeout   time.Duration
	clients   *clientPool[*xai.Client]
}

// NewXAIAdapter creates an adapter from a descriptor.
func NewXAIAdapter(d Descriptor) *XAIAdapter {
	maxTokens := d.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultXAIMaxTokens
	}
	a := &XAIAdapter{id: d.ID, maxTokens: maxTokens, timeout: d.Timeout}
	a.clients = newClientPool(a.newClient)
	return a
}

func (a *XAIAdapter) newClient(key string) (*xai.Client, error) {
	cfg := xai.Config{APIKey: xai.NewSecureString(key)}
	if a.timeout > 0 {
		cfg.Timeout = a.timeout
	}
	client, err := xai.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create xai client: %w", err)
	}
	L_debug("xai client: initialized", "provider", a.id)
	return client, nil
}

// Invoke performs one CompleteChat or GenerateImage call.
func (a *XAIAdapter) Invoke(ctx context.Context, p *Prompt, model string, cred Credential, cap Capability) Outcome {
	client, err := a.clients.get(cred.Key)
	if err != nil {
		return Retryable(ErrorTypeTransport, err)
	}
	if cap == CapabilityImage {
		return a.image(ctx, client, p, model)
	}

	req := xai.NewChatRequest().
		WithModel(model).
		WithMaxTokens(safeInt32(a.maxTokens))
	if p.System != "" {
		req.SystemMessage(xai.SystemContent{Text: p.System})
	}
	for _, m := range p.Messages {
		addMessageToRequest(req, m)
	}

	resp, err := client.CompleteChat(ctx, req)
	if err != nil {
		L_debug("xai: chat failed", "provider", a.id, "model", model, "error", err)
		return Classify(err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return Classify(fmt.Errorf("xai %s: %w", model, ErrEmptyResponse))
	}

	L_trace("xai: chat completed",
		"provider", a.id,
		"model", model,
		"inputTokens", resp.Usage.PromptTokens,
		"outputTokens", resp.Usage.CompletionTokens,
	)
	return Success(resp.Content)
}

func (a *XAIAdapter) image(ctx context.Context, client *xai.Client, p *Prompt, model string) Outcome {
	req := xai.NewImageRequest(p.Current().Text).
		WithModel(model).
		WithCount(1)

	resp, err := client.GenerateImage(ctx, req)
	if err != nil {
		L_debug("xai: image failed", "provider", a.id, "model", model, "error", err)
		return Classify(err)
	}
	for _, img := range resp.Images {
		if img.URL != "" {
			return ImageSuccess(img.URL)
		}
	}
	return Classify(fmt.Errorf("xai %s image: %w", model, ErrEmptyResponse))
}

// addMessageToRequest appends one message. xai-go UserContent carries at
// most one image.
func addMessageToRequest(req *xai.ChatRequest, m Message) {
	if m.Speaker == types.SpeakerAssistant {
		if m.Text != "" {
			req.AssistantMessage(xai.AssistantContent{Text: m.Text})
		}
		return
	}
	content := xai.UserContent{Text: m.Text}
	if m.Image != nil {
		content.ImageURL = m.Image.DataURI()
	}
	req.UserMessage(content)
}
