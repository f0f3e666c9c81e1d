package llm

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Provider    string  `toml:"provider"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`

	// TimeoutSeconds bounds a whole completion request.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

var defaultBaseURLs = map[string]string{
	"groq":     "https://api.groq.com/openai/v1",
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com/v1",
	"ollama":   "http://localhost:11434/v1",
}

// NeedsAPIKey reports whether the provider refuses anonymous requests.
func (c Config) NeedsAPIKey() bool {
	return c.Provider != "ollama"
}

func New(cfg Config) (Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURLs[cfg.Provider]
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(cfg)
	case "groq", "openai", "deepseek", "ollama":
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
