package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roelfdiedericks/floragate/internal/logging"
)

// SearchPaths are tried in order when no config path is given.
var SearchPaths = []string{
	"floragate.json",
	"floragate.toml",
	"floragate.yaml",
	"floragate.yml",
}

// envOverrides are fixed FLORA_* variables applied after the file.
type envOverrides struct {
	Listen           string `env:"FLORA_LISTEN"`
	LogLevel         string `env:"FLORA_LOG_LEVEL"`
	SystemPrompt     string `env:"FLORA_SYSTEM_PROMPT"`
	AssistantName    string `env:"FLORA_ASSISTANT_NAME"`
	FallbackMessage  string `env:"FLORA_FALLBACK_MESSAGE"`
	MaxHistoryTokens int    `env:"FLORA_MAX_HISTORY_TOKENS"`
	SearchDriver     string `env:"FLORA_SEARCH_DRIVER"`
	SearchAPIKey     string `env:"FLORA_SEARCH_API_KEY"`
}

// Load reads the config file at path (or the first of SearchPaths that
// exists), merges it over Default, loads .env and applies FLORA_*
// overrides. It returns the path actually read, empty when running on
// defaults alone.
func Load(path string) (*Config, string, error) {
	loadDotEnv(path)

	if path == "" {
		path = os.Getenv("FLORA_CONFIG")
	}
	if path == "" {
		for _, p := range SearchPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		logging.L_debug("config: loaded", "path", path, "providers", len(cfg.Providers))
	} else {
		logging.L_warn("config: no config file found, using defaults")
	}

	if err := mergo.Merge(cfg, Default()); err != nil {
		return nil, "", fmt.Errorf("failed to merge defaults: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadDotEnv loads .env from the working directory and next to the config
// file. Existing environment variables win.
func loadDotEnv(path string) {
	candidates := []string{".env"}
	if path != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(path), ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logging.L_warn("config: failed to load env file", "path", p, "error", err)
			continue
		}
		logging.L_debug("config: loaded env file", "path", p)
	}
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Listen, o.Listen)
	set(&cfg.LogLevel, o.LogLevel)
	set(&cfg.Gateway.SystemPrompt, o.SystemPrompt)
	set(&cfg.Gateway.AssistantName, o.AssistantName)
	set(&cfg.Gateway.FallbackMessage, o.FallbackMessage)
	set(&cfg.Search.Driver, o.SearchDriver)
	set(&cfg.Search.APIKey, cleanKey(o.SearchAPIKey))
	if o.MaxHistoryTokens > 0 {
		cfg.Gateway.MaxHistoryTokens = o.MaxHistoryTokens
	}
	return nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func encode(path string, cfg *Config) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}
