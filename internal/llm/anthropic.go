package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	. "github.com/roelfdiedericks/floragate/internal/logging"
	"github.com/roelfdiedericks/floragate/internal/types"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicAdapter speaks the Anthropic Messages API.
// Supports custom BaseURL for Anthropic-compatible APIs.
type AnthropicAdapter struct {
	id          string
	baseURL     string
	maxTokens   int
	temperature float32
	clients     *clientPool[*anthropic.Client]
}

// NewAnthropicAdapter creates an adapter from a descriptor.
func NewAnthropicAdapter(d Descriptor) *AnthropicAdapter {
	maxTokens := d.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	a := &AnthropicAdapter{
		id:          d.ID,
		baseURL:     d.BaseURL,
		maxTokens:   maxTokens,
		temperature: d.Temperature,
	}
	a.clients = newClientPool(a.newClient)
	return a
}

func (a *AnthropicAdapter) newClient(key string) (*anthropic.Client, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithHTTPClient(&http.Client{}),
		// rotation is ours, the SDK must not retry behind our back
		option.WithMaxRetries(0),
	}
	if a.baseURL != "" {
		opts = append(opts, option.WithBaseURL(a.baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &client, nil
}

// Invoke performs one Messages call. Image generation is not offered.
func (a *AnthropicAdapter) Invoke(ctx context.Context, p *Prompt, model string, cred Credential, cap Capability) Outcome {
	if cap == CapabilityImage {
		return Fatal(ErrorTypeModelUnsupported, fmt.Errorf("anthropic: image generation not supported"))
	}
	client, err := a.clients.get(cred.Key)
	if err != nil {
		return Retryable(ErrorTypeTransport, err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(a.maxTokens),
		Messages:  convertMessages(p),
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}
	if a.temperature > 0 {
		params.Temperature = anthropic.Float(float64(a.temperature))
	}

	message, err := client.Messages.New(ctx, params)
	if err != nil {
		L_debug("anthropic: request failed", "provider", a.id, "model", model, "error", err)
		return Classify(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Classify(fmt.Errorf("anthropic %s: %w", model, ErrEmptyResponse))
	}

	L_trace("anthropic: message completed",
		"provider", a.id,
		"model", model,
		"inputTokens", message.Usage.InputTokens,
		"outputTokens", message.Usage.OutputTokens,
	)
	return Success(text.String())
}

// convertMessages builds a strictly alternating user/assistant sequence
// starting with user. Consecutive turns from one speaker are merged.
func convertMessages(p *Prompt) []anthropic.MessageParam {
	type group struct {
		speaker types.Speaker
		blocks  []anthropic.ContentBlockParamUnion
	}
	var groups []group

	for _, m := range p.Messages {
		if len(groups) == 0 && m.Speaker == types.SpeakerAssistant {
			continue
		}
		var blocks []anthropic.ContentBlockParamUnion
		if m.Image != nil && m.Speaker == types.SpeakerUser {
			blocks = append(blocks, anthropic.NewImageBlockBase64(m.Image.MimeType, m.Image.Data))
		}
		if m.Text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(m.Text))
		}
		if len(blocks) == 0 {
			continue
		}
		if n := len(groups); n > 0 && groups[n-1].speaker == m.Speaker {
			groups[n-1].blocks = append(groups[n-1].blocks, blocks...)
			continue
		}
		groups = append(groups, group{speaker: m.Speaker, blocks: blocks})
	}

	out := make([]anthropic.MessageParam, 0, len(groups))
	for _, g := range groups {
		if g.speaker == types.SpeakerAssistant {
			out = append(out, anthropic.NewAssistantMessage(g.blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(g.blocks...))
		}
	}
	return out
}
