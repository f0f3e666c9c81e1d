package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"aide/core"
	"aide/core/llm"
	"aide/health"
	"aide/modules"
	"aide/platforms/discord"
	"aide/platforms/matrix"
	"aide/platforms/telegram"
)

func setupLogging(cfg LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	flag.Parse()

	LoadEnvFiles()

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogging(config.Log)

	if err := config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Missing required configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := llm.New(config.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LLM provider")
	}

	history := core.NewMemoryHistory(config.Bot.MaxHistory)
	completer := core.NewCompleter(provider, history, config.Bot.SystemPrompt, llm.RequestConfig{
		Model:       config.LLM.Model,
		Temperature: config.LLM.Temperature,
		MaxTokens:   config.LLM.MaxTokens,
	})
	sentiment := modules.NewSentimentFetcher(config.Sentiment)
	bot := core.NewBot(history, completer, sentiment)

	g, gctx := errgroup.WithContext(ctx)

	if config.Telegram.Enabled {
		adapter, err := telegram.NewTelegramAdapter(&config.Telegram, bot)
		if err != nil {
			log.Fatal().Err(err).Msg("Telegram login failed")
		}
		g.Go(func() error { return adapter.Start(gctx) })
	}

	if config.Discord.Enabled {
		adapter, err := discord.NewDiscordAdapter(config.Discord.Token, bot)
		if err != nil {
			log.Fatal().Err(err).Msg("Discord setup failed")
		}
		g.Go(func() error { return adapter.Start(gctx) })
	}

	if config.Matrix.Enabled {
		adapter := startMatrix(ctx, config, bot)
		g.Go(func() error { return adapter.Start(gctx) })
	}

	if config.Health.Enabled {
		server := health.NewServer(config.Health.Addr)
		g.Go(func() error { return server.Run(gctx) })
	}

	log.Info().
		Str("provider", provider.ID()).
		Str("model", config.LLM.Model).
		Strs("commands", bot.Commands.Prefixes()).
		Msg("🚀 Assistant started. Commands work in DMs and groups; chat replies in DMs or when mentioned")

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Assistant stopped")
	}
	log.Info().Msg("👋 Assistant stopped")
}

func startMatrix(ctx context.Context, config *Config, bot *core.Bot) *matrix.MatrixAdapter {
	client, err := matrix.GetMatrixClient(ctx, &config.Matrix)
	if err != nil {
		log.Fatal().Err(err).Msg("Matrix auth failed")
	}

	if err := matrix.InitCrypto(ctx, client, config.Matrix.CryptoDBPath, config.Matrix.PickleKey); err != nil {
		log.Fatal().Err(err).Msg("Matrix crypto setup failed")
	}

	displayName := config.Bot.Name
	if displayName != "" {
		if err := client.SetDisplayName(ctx, displayName); err != nil {
			log.Warn().Err(err).Msg("Failed to set display name")
		}
	} else if profile, err := client.GetOwnDisplayName(ctx); err == nil {
		displayName = profile.DisplayName
	}

	log.Info().Str("user_id", client.UserID.String()).Str("device_id", string(client.DeviceID)).Msg("✅ Logged into Matrix")
	return matrix.NewMatrixAdapter(client, bot, &config.Matrix, displayName)
}
