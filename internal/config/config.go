// Package config loads floragate settings from a JSON, TOML or YAML file,
// a .env file and FLORA_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/roelfdiedericks/floragate/internal/augment"
	"github.com/roelfdiedericks/floragate/internal/media"
)

// Config is the merged floragate configuration
type Config struct {
	Listen   string `json:"listen" toml:"listen" yaml:"listen"`
	LogLevel string `json:"logLevel" toml:"logLevel" yaml:"logLevel"`
	LogJSON  bool   `json:"logJson,omitempty" toml:"logJson" yaml:"logJson,omitempty"`

	// cron expression for the periodic metrics summary log, "off" disables
	MetricsReport string `json:"metricsReport" toml:"metricsReport" yaml:"metricsReport"`

	Gateway   GatewayConfig    `json:"gateway" toml:"gateway" yaml:"gateway"`
	Providers []ProviderConfig `json:"providers" toml:"providers" yaml:"providers"`
	Search    SearchConfig     `json:"search" toml:"search" yaml:"search"`
	Augment   AugmentConfig    `json:"augment" toml:"augment" yaml:"augment"`
	Translate TranslateConfig  `json:"translate" toml:"translate" yaml:"translate"`
	HTTP      HTTPConfig       `json:"http" toml:"http" yaml:"http"`
}

// GatewayConfig holds the user-facing text and budgets.
type GatewayConfig struct {
	AssistantName     string `json:"assistantName" toml:"assistantName" yaml:"assistantName"`
	SystemPrompt      string `json:"systemPrompt" toml:"systemPrompt" yaml:"systemPrompt"`
	FallbackMessage   string `json:"fallbackMessage" toml:"fallbackMessage" yaml:"fallbackMessage"`
	VisionDefaultText string `json:"visionDefaultText" toml:"visionDefaultText" yaml:"visionDefaultText"`
	DrawCaption       string `json:"drawCaption" toml:"drawCaption" yaml:"drawCaption"` // %s is the prompt
	MaxHistoryTokens  int    `json:"maxHistoryTokens" toml:"maxHistoryTokens" yaml:"maxHistoryTokens"`
	MaxImageDimension int    `json:"maxImageDimension" toml:"maxImageDimension" yaml:"maxImageDimension"`
	MaxImageBytes     int    `json:"maxImageBytes" toml:"maxImageBytes" yaml:"maxImageBytes"`
}

// ProviderConfig describes one provider. Order in the providers list is
// the fallback order.
type ProviderConfig struct {
	ID             string   `json:"id" toml:"id" yaml:"id"`
	Driver         string   `json:"driver" toml:"driver" yaml:"driver"` // openai, anthropic, xai, pollinations
	Name           string   `json:"name,omitempty" toml:"name" yaml:"name,omitempty"`
	BaseURL        string   `json:"baseUrl,omitempty" toml:"baseUrl" yaml:"baseUrl,omitempty"`
	Capabilities   []string `json:"capabilities,omitempty" toml:"capabilities" yaml:"capabilities,omitempty"`
	Models         []string `json:"models" toml:"models" yaml:"models"`
	Credentials    []string `json:"credentials,omitempty" toml:"credentials" yaml:"credentials,omitempty"`
	CredentialsEnv string   `json:"credentialsEnv,omitempty" toml:"credentialsEnv" yaml:"credentialsEnv,omitempty"`
	Keyless        bool     `json:"keyless,omitempty" toml:"keyless" yaml:"keyless,omitempty"`
	TimeoutMs      int      `json:"timeoutMs,omitempty" toml:"timeoutMs" yaml:"timeoutMs,omitempty"`
	MaxTokens      int      `json:"maxTokens,omitempty" toml:"maxTokens" yaml:"maxTokens,omitempty"`
	Temperature    float32  `json:"temperature,omitempty" toml:"temperature" yaml:"temperature,omitempty"`
}

// SearchConfig selects the augmentation search backend. An empty driver
// disables augmentation.
type SearchConfig struct {
	Driver    string `json:"driver,omitempty" toml:"driver" yaml:"driver,omitempty"` // brave or tavily
	APIKey    string `json:"apiKey,omitempty" toml:"apiKey" yaml:"apiKey,omitempty"`
	APIKeyEnv string `json:"apiKeyEnv,omitempty" toml:"apiKeyEnv" yaml:"apiKeyEnv,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty" toml:"baseUrl" yaml:"baseUrl,omitempty"`
	Count     int    `json:"count,omitempty" toml:"count" yaml:"count,omitempty"`
}

// AugmentConfig controls when search context is fetched.
type AugmentConfig struct {
	Triggers  []string `json:"triggers,omitempty" toml:"triggers" yaml:"triggers,omitempty"`
	MinLength int      `json:"minLength" toml:"minLength" yaml:"minLength"`
	TimeoutMs int      `json:"timeoutMs" toml:"timeoutMs" yaml:"timeoutMs"`
}

// TranslateConfig controls draw prompt translation.
type TranslateConfig struct {
	Disabled  bool   `json:"disabled,omitempty" toml:"disabled" yaml:"disabled,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty" toml:"baseUrl" yaml:"baseUrl,omitempty"`
	Target    string `json:"target" toml:"target" yaml:"target"`
	TimeoutMs int    `json:"timeoutMs" toml:"timeoutMs" yaml:"timeoutMs"`
}

// HTTPConfig holds inbound server limits.
type HTTPConfig struct {
	MaxBodyBytes      int64   `json:"maxBodyBytes" toml:"maxBodyBytes" yaml:"maxBodyBytes"`
	RequestsPerSecond float64 `json:"requestsPerSecond" toml:"requestsPerSecond" yaml:"requestsPerSecond"` // per client IP, negative disables
	Burst             int     `json:"burst" toml:"burst" yaml:"burst"`
	AllowOrigin       string  `json:"allowOrigin" toml:"allowOrigin" yaml:"allowOrigin"` // "off" disables CORS headers
	TrustProxy        bool    `json:"trustProxy" toml:"trustProxy" yaml:"trustProxy"`    // key rate limits on X-Forwarded-For
	ShutdownTimeoutMs int     `json:"shutdownTimeoutMs" toml:"shutdownTimeoutMs" yaml:"shutdownTimeoutMs"`
}

// Default returns the built-in defaults. Loaded files are merged over it.
func Default() *Config {
	limits := media.DefaultLimits()
	return &Config{
		Listen:        ":3378",
		LogLevel:      "info",
		MetricsReport: "@hourly",
		Gateway: GatewayConfig{
			AssistantName:     "Flora",
			SystemPrompt:      "Kamu Flora AI. Jawab santai, singkat, jelas. Gunakan HTML <b>.",
			FallbackMessage:   "Maaf, Flora lagi sibuk banget nih. Coba lagi sebentar ya 🙏",
			VisionDefaultText: "Jelaskan gambar ini",
			DrawCaption:       "Nih hasilnya: <b>%s</b> ✨",
			MaxHistoryTokens:  6000,
			MaxImageDimension: limits.MaxDimension,
			MaxImageBytes:     limits.MaxBytes,
		},
		Augment: AugmentConfig{
			MinLength: augment.DefaultMinLength,
			TimeoutMs: int(augment.DefaultTimeout / time.Millisecond),
		},
		Search: SearchConfig{
			Count: 5,
		},
		Translate: TranslateConfig{
			Target:    "en",
			TimeoutMs: 3000,
		},
		HTTP: HTTPConfig{
			MaxBodyBytes:      8 << 20,
			RequestsPerSecond: 2,
			Burst:             10,
			AllowOrigin:       "*",
			ShutdownTimeoutMs: 10000,
		},
	}
}

// AugmentTimeout returns the search race timeout.
func (c *Config) AugmentTimeout() time.Duration {
	return time.Duration(c.Augment.TimeoutMs) * time.Millisecond
}

// TranslateTimeout returns the translate call timeout.
func (c *Config) TranslateTimeout() time.Duration {
	return time.Duration(c.Translate.TimeoutMs) * time.Millisecond
}

// ShutdownTimeout returns how long Stop waits for in-flight requests.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.HTTP.ShutdownTimeoutMs) * time.Millisecond
}

// CORSOrigin returns the Access-Control-Allow-Origin value, or "" when
// allowOrigin is "off". An empty allowOrigin is replaced by the default on load.
func (c *Config) CORSOrigin() string {
	if strings.EqualFold(strings.TrimSpace(c.HTTP.AllowOrigin), "off") {
		return ""
	}
	return c.HTTP.AllowOrigin
}

// ImageLimits returns the media limits for vision uploads.
func (c *Config) ImageLimits() media.Limits {
	return media.Limits{
		MaxDimension: c.Gateway.MaxImageDimension,
		MaxBytes:     c.Gateway.MaxImageBytes,
	}
}
