package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/roelfdiedericks/floragate/internal/llm"
	"github.com/roelfdiedericks/floragate/internal/logging"
	"github.com/roelfdiedericks/floragate/internal/metrics"
)

// cleanKey strips literal "\n" sequences and surrounding whitespace, which
// hosting dashboards tend to leave in pasted keys.
func cleanKey(key string) string {
	return strings.TrimSpace(strings.ReplaceAll(key, `\n`, ""))
}

// ResolveCredentials resolves the ordered credential list: inline keys first, then
// the comma-separated credentialsEnv variable. A keyless provider with no
// keys gets one anonymous credential.
func (p *ProviderConfig) ResolveCredentials() []llm.Credential {
	var keys []string
	for _, k := range p.Credentials {
		if k = cleanKey(k); k != "" {
			keys = append(keys, k)
		}
	}
	if p.CredentialsEnv != "" {
		for _, k := range strings.Split(os.Getenv(p.CredentialsEnv), ",") {
			if k = cleanKey(k); k != "" {
				keys = append(keys, k)
			}
		}
	}

	creds := make([]llm.Credential, 0, len(keys))
	for i, k := range keys {
		creds = append(creds, llm.Credential{Label: fmt.Sprintf("%s#%d", p.ID, i+1), Key: k})
	}
	if len(creds) == 0 && p.Keyless {
		creds = append(creds, llm.Credential{Label: p.ID + "#anon"})
	}
	return creds
}

// capabilities parses the configured capabilities, defaulting to
// everything the driver supports.
func (p *ProviderConfig) capabilities() ([]llm.Capability, error) {
	if len(p.Capabilities) == 0 {
		return llm.DriverCapabilities(p.Driver), nil
	}
	var caps []llm.Capability
	for _, s := range p.Capabilities {
		c, ok := llm.ParseCapability(strings.ToLower(strings.TrimSpace(s)))
		if !ok {
			return nil, fmt.Errorf("unknown capability %q", s)
		}
		if !llm.DriverSupports(p.Driver, c) {
			return nil, fmt.Errorf("driver %s cannot serve %s", p.Driver, c)
		}
		caps = append(caps, c)
	}
	return caps, nil
}

// Descriptors builds the immutable provider descriptors in config order.
func (c *Config) Descriptors() ([]llm.Descriptor, error) {
	out := make([]llm.Descriptor, 0, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]
		caps, err := p.capabilities()
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.ID, err)
		}
		timeout := llm.DefaultAttemptTimeout
		if p.TimeoutMs > 0 {
			timeout = time.Duration(p.TimeoutMs) * time.Millisecond
		}
		d := llm.Descriptor{
			ID:           p.ID,
			Driver:       p.Driver,
			DisplayName:  p.Name,
			BaseURL:      p.BaseURL,
			Capabilities: caps,
			Models:       append([]string(nil), p.Models...),
			Credentials:  p.ResolveCredentials(),
			Timeout:      timeout,
			MaxTokens:    p.MaxTokens,
			Temperature:  p.Temperature,
		}
		if len(d.Credentials) == 0 {
			logging.L_warn("config: provider has no credentials", "provider", p.ID, "env", p.CredentialsEnv)
		}
		out = append(out, d)
	}
	return out, nil
}

// SearchKey returns the search API key, inline or from APIKeyEnv.
func (c *Config) SearchKey() string {
	if k := cleanKey(c.Search.APIKey); k != "" {
		return k
	}
	if c.Search.APIKeyEnv != "" {
		return cleanKey(os.Getenv(c.Search.APIKeyEnv))
	}
	return ""
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("no providers configured"))
	}

	seen := make(map[string]bool)
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: id is required", i))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("provider %s: duplicate id", p.ID))
		}
		seen[p.ID] = true

		if !llm.KnownDriver(p.Driver) {
			errs = append(errs, fmt.Errorf("provider %s: unknown driver %q", p.ID, p.Driver))
			continue
		}
		if _, err := p.capabilities(); err != nil {
			errs = append(errs, fmt.Errorf("provider %s: %w", p.ID, err))
		}
		if len(p.Models) == 0 {
			logging.L_warn("config: provider has no models and will always be skipped", "provider", p.ID)
		}
	}

	switch c.Search.Driver {
	case "", "brave", "tavily":
	default:
		errs = append(errs, fmt.Errorf("search: unknown driver %q", c.Search.Driver))
	}
	if c.MetricsReport != "off" {
		if err := metrics.ValidSchedule(c.MetricsReport); err != nil {
			errs = append(errs, fmt.Errorf("metricsReport: %w", err))
		}
	}
	if c.Gateway.MaxHistoryTokens < 0 {
		errs = append(errs, errors.New("gateway.maxHistoryTokens must not be negative"))
	}

	return errors.Join(errs...)
}

// Example returns a config with a representative provider chain, used by
// `floragate init`.
func Example() *Config {
	cfg := Default()
	cfg.Providers = []ProviderConfig{
		{
			ID:             "hf",
			Driver:         "openai",
			Name:           "Qwen 7B",
			BaseURL:        "https://router.huggingface.co",
			Capabilities:   []string{"text", "vision"},
			Models:         []string{"Qwen/Qwen2.5-VL-7B-Instruct"},
			CredentialsEnv: "HF_API_KEY",
			MaxTokens:      500,
			Temperature:    0.6,
		},
		{
			ID:             "claude",
			Driver:         "anthropic",
			Name:           "Claude",
			Models:         []string{"claude-sonnet-4-5", "claude-haiku-4-5"},
			CredentialsEnv: "ANTHROPIC_API_KEYS",
		},
		{
			ID:             "grok",
			Driver:         "xai",
			Name:           "Grok",
			Models:         []string{"grok-4-fast", "grok-2-image"},
			Capabilities:   []string{"text", "vision", "image"},
			CredentialsEnv: "XAI_API_KEYS",
		},
		{
			ID:      "pollinations",
			Driver:  "pollinations",
			Name:    "Pollinations",
			Models:  []string{"flux"},
			Keyless: true,
		},
	}
	cfg.Search = SearchConfig{Driver: "tavily", APIKeyEnv: "TAVILY_API_KEY", Count: 5}
	return cfg
}
