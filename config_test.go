package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/platforms/telegram"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LLM_API_KEY", "GROQ_API_KEY", "TELEGRAM_BOT_TOKEN", "DISCORD_TOKEN", "PORT", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.001)
	assert.Equal(t, 512, cfg.LLM.MaxTokens)
	assert.Equal(t, 10, cfg.Bot.MaxHistory)
	assert.Equal(t, 20, cfg.Sentiment.TimeoutSeconds)
	assert.Equal(t, "0.0.0.0:10000", cfg.Health.Addr)
	assert.False(t, cfg.Telegram.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "gsk_test", cfg.LLM.APIKey)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "0.0.0.0:8080", cfg.Health.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_LLMKeyWinsOverGroqKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "groq")
	t.Setenv("LLM_API_KEY", "generic")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.LLM.APIKey)
}

func TestLoadConfig_TOMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[bot]
name = "Aide"
max_history = 6

[llm]
provider = "ollama"
model = "llama3"
base_url = "http://localhost:11434/v1"

[discord]
enabled = true
token = "discord-token"

[health]
enabled = false
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Aide", cfg.Bot.Name)
	assert.Equal(t, 6, cfg.Bot.MaxHistory)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 512, cfg.LLM.MaxTokens, "unset keys keep their defaults")
	assert.True(t, cfg.Discord.Enabled)
	assert.False(t, cfg.Health.Enabled)
	assert.NoError(t, cfg.Validate(), "ollama needs no api key")
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[llm\nmodel = "), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm api key is required")
	assert.Contains(t, err.Error(), "no platform enabled")

	cfg.LLM.APIKey = "k"
	cfg.Matrix.Enabled = true
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "homeserver or user_id is missing")

	cfg.Matrix.Homeserver = "https://matrix.org"
	cfg.Matrix.UserID = "@aide:matrix.org"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MaxHistoryCapped(t *testing.T) {
	cfg := defaultConfig()
	cfg.LLM.APIKey = "k"
	cfg.Telegram = telegram.Config{Enabled: true, Token: "t"}

	cfg.Bot.MaxHistory = 10
	assert.NoError(t, cfg.Validate())

	cfg.Bot.MaxHistory = 11
	assert.ErrorContains(t, cfg.Validate(), "max_history must be at most 10")
}
