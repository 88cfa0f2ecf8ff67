package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/floragate/internal/logging"
	"github.com/roelfdiedericks/floragate/internal/types"
)

// openRouterTransport adds attribution headers to OpenRouter requests
type openRouterTransport struct {
	base http.RoundTripper
}

func (t *openRouterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", "https://github.com/roelfdiedericks/floragate")
	req.Header.Set("X-Title", "floragate")
	if t.base == nil {
		return http.DefaultTransport.RoundTrip(req)
	}
	return t.base.RoundTrip(req)
}

// OpenAIAdapter speaks the OpenAI chat and image APIs. Any compatible
// endpoint works via BaseURL (Hugging Face router, OpenRouter, Groq).
type OpenAIAdapter struct {
	id          string
	baseURL     string
	maxTokens   int
	temperature float32
	clients     *clientPool[*openai.Client]
}

// NewOpenAIAdapter creates an adapter from a descriptor.
func NewOpenAIAdapter(d Descriptor) *OpenAIAdapter {
	baseURL := d.BaseURL
	if baseURL != "" && !strings.HasSuffix(baseURL, "/v1") && !strings.HasSuffix(baseURL, "/v1/") {
		baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	}

	a := &OpenAIAdapter{
		id:          d.ID,
		baseURL:     baseURL,
		maxTokens:   d.MaxTokens,
		temperature: d.Temperature,
	}
	a.clients = newClientPool(a.newClient)

	displayURL := baseURL
	if displayURL == "" {
		displayURL = "(default)"
	}
	L_debug("openai: adapter created", "provider", d.ID, "baseURL", displayURL)
	return a
}

func (a *OpenAIAdapter) newClient(key string) (*openai.Client, error) {
	config := openai.DefaultConfig(key)
	if a.baseURL != "" {
		config.BaseURL = a.baseURL
	}
	var transport http.RoundTripper = http.DefaultTransport
	if strings.Contains(strings.ToLower(a.baseURL), "openrouter") {
		transport = &openRouterTransport{base: http.DefaultTransport}
	}
	config.HTTPClient = &http.Client{Transport: transport}
	return openai.NewClientWithConfig(config), nil
}

// Invoke performs one chat completion or image generation call.
func (a *OpenAIAdapter) Invoke(ctx context.Context, p *Prompt, model string, cred Credential, cap Capability) Outcome {
	client, err := a.clients.get(cred.Key)
	if err != nil {
		return Retryable(ErrorTypeTransport, err)
	}
	if cap == CapabilityImage {
		return a.image(ctx, client, p, model)
	}
	return a.chat(ctx, client, p, model)
}

func (a *OpenAIAdapter) chat(ctx context.Context, client *openai.Client, p *Prompt, model string) Outcome {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertToOpenAIMessages(p),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		L_debug("openai: chat failed", "provider", a.id, "model", model, "error", err)
		return Classify(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Classify(fmt.Errorf("openai %s: %w", model, ErrEmptyResponse))
	}

	L_trace("openai: chat completed",
		"provider", a.id,
		"model", model,
		"inputTokens", resp.Usage.PromptTokens,
		"outputTokens", resp.Usage.CompletionTokens,
	)
	return Success(resp.Choices[0].Message.Content)
}

func (a *OpenAIAdapter) image(ctx context.Context, client *openai.Client, p *Prompt, model string) Outcome {
	resp, err := client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         p.Current().Text,
		Model:          model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		L_debug("openai: image failed", "provider", a.id, "model", model, "error", err)
		return Classify(err)
	}
	for _, img := range resp.Data {
		if img.URL != "" {
			return ImageSuccess(img.URL)
		}
		if img.B64JSON != "" {
			return ImageSuccess("data:image/png;base64," + img.B64JSON)
		}
	}
	return Classify(fmt.Errorf("openai %s image: %w", model, ErrEmptyResponse))
}

func convertToOpenAIMessages(p *Prompt) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(p.Messages)+1)
	if p.System != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}

	for _, m := range p.Messages {
		if m.Speaker == types.SpeakerAssistant {
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Text})
			continue
		}
		if m.Image == nil {
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Text})
			continue
		}

		// Content must stay empty when MultiContent is set
		parts := []openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    m.Image.DataURI(),
				Detail: openai.ImageURLDetailAuto,
			},
		}}
		if m.Text != "" {
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: m.Text})
		}
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
	}
	return out
}
