// Package llm talks to generation providers and walks the fallback order
// across providers, models and credentials until one of them answers.
package llm

import (
	"context"
	"slices"
	"time"
)

// Capability is one kind of work a provider can do.
type Capability string

const (
	CapabilityText   Capability = "text"
	CapabilityVision Capability = "vision"
	CapabilityImage  Capability = "image"
	CapabilitySearch Capability = "search"
)

// ParseCapability validates a capability name from config.
func ParseCapability(s string) (Capability, bool) {
	switch c := Capability(s); c {
	case CapabilityText, CapabilityVision, CapabilityImage, CapabilitySearch:
		return c, true
	}
	return "", false
}

// Credential is one API key. Label is safe to log, Key is not.
type Credential struct {
	Label string
	Key   string
}

// String returns the label so credentials can be passed to loggers.
func (c Credential) String() string {
	return c.Label
}

// Descriptor is the static, immutable description of one provider.
// Models and Credentials are in priority order.
type Descriptor struct {
	ID           string
	Driver       string
	DisplayName  string
	BaseURL      string
	Capabilities []Capability
	Models       []string
	Credentials  []Credential
	Timeout      time.Duration // per attempt
	MaxTokens    int
	Temperature  float32
}

// Has reports whether the provider offers capability c.
func (d *Descriptor) Has(c Capability) bool {
	return slices.Contains(d.Capabilities, c)
}

// Name returns the display name, falling back to the ID.
func (d *Descriptor) Name() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.ID
}

// Adapter translates a Prompt into one provider's request shape, performs
// exactly one call and classifies the result. Adapters hold no per-request
// state and never retry.
type Adapter interface {
	Invoke(ctx context.Context, p *Prompt, model string, cred Credential, cap Capability) Outcome
}

// AdapterFunc lets a plain function act as an Adapter.
type AdapterFunc func(ctx context.Context, p *Prompt, model string, cred Credential, cap Capability) Outcome

// Invoke calls f.
func (f AdapterFunc) Invoke(ctx context.Context, p *Prompt, model string, cred Credential, cap Capability) Outcome {
	return f(ctx, p, model, cred, cap)
}
