package main

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"aide/core"
	"aide/core/llm"
	"aide/health"
	"aide/modules"
	"aide/platforms/discord"
	"aide/platforms/matrix"
	"aide/platforms/telegram"
)

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type Config struct {
	Bot       core.BotConfig          `toml:"bot"`
	LLM       llm.Config              `toml:"llm"`
	Sentiment modules.SentimentConfig `toml:"sentiment"`
	Telegram  telegram.Config         `toml:"telegram"`
	Matrix    matrix.Config           `toml:"matrix"`
	Discord   discord.Config          `toml:"discord"`
	Health    health.Config           `toml:"health"`
	Log       LogConfig               `toml:"log"`
}

func defaultConfig() Config {
	return Config{
		Bot: core.BotConfig{
			SystemPrompt: core.DefaultSystemPrompt,
			MaxHistory:   core.DefaultMaxHistory,
		},
		LLM: llm.Config{
			Provider:       "groq",
			Model:          core.DefaultModel,
			Temperature:    core.DefaultTemperature,
			MaxTokens:      core.DefaultMaxTokens,
			TimeoutSeconds: 60,
		},
		Sentiment: modules.SentimentConfig{
			IndexURL:       modules.DefaultIndexURL,
			GaugeURL:       modules.DefaultGaugeURL,
			TimeoutSeconds: 20,
		},
		Matrix: matrix.Config{
			CredentialsDBPath: "credentials.json",
		},
		Health: health.Config{
			Enabled: true,
			Addr:    "0.0.0.0:10000",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadEnvFiles loads .env and config.env when present. Variables already
// set in the environment win.
func LoadEnvFiles() {
	for _, name := range []string{".env", "config.env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// LoadConfig reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	config.applyEnv()
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := firstEnv("LLM_API_KEY", "GROQ_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
		c.Discord.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		host, _, err := net.SplitHostPort(c.Health.Addr)
		if err != nil {
			host = "0.0.0.0"
		}
		c.Health.Addr = net.JoinHostPort(host, v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate reports missing credentials. Any error here stops startup.
func (c *Config) Validate() error {
	var errs []error

	if c.LLM.NeedsAPIKey() && c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm api key is required (set GROQ_API_KEY or [llm] api_key)"))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm model is required"))
	}
	if c.Bot.MaxHistory > core.DefaultMaxHistory {
		errs = append(errs, fmt.Errorf("bot max_history must be at most %d, got %d", core.DefaultMaxHistory, c.Bot.MaxHistory))
	}

	enabled := 0
	if c.Telegram.Enabled {
		enabled++
		if c.Telegram.Token == "" {
			errs = append(errs, errors.New("telegram is enabled but no token is set (TELEGRAM_BOT_TOKEN)"))
		}
	}
	if c.Discord.Enabled {
		enabled++
		if c.Discord.Token == "" {
			errs = append(errs, errors.New("discord is enabled but no token is set (DISCORD_TOKEN)"))
		}
	}
	if c.Matrix.Enabled {
		enabled++
		if c.Matrix.Homeserver == "" || c.Matrix.UserID == "" {
			errs = append(errs, errors.New("matrix is enabled but homeserver or user_id is missing"))
		}
	}
	if enabled == 0 {
		errs = append(errs, errors.New("no platform enabled: configure telegram, matrix or discord"))
	}

	return errors.Join(errs...)
}
