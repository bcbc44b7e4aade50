package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tkarvo/medguide-bot/config"
	"github.com/tkarvo/medguide-bot/internal/bot"
	"github.com/tkarvo/medguide-bot/internal/llm"
	"github.com/tkarvo/medguide-bot/internal/medinfo"
	"github.com/tkarvo/medguide-bot/internal/storage"
)

const logFileName = "medguide-bot.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	// JOURNAL_STREAM is set by systemd when running as a service. Skip file
	// logging there (journald handles it, and ProtectSystem=strict makes the
	// working directory read-only).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open log file")
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telegram bot")
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	bot.RegisterCommands(tg)

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Web lookups go through Firecrawl, with results cached in SQLite.
	firecrawl := medinfo.NewFirecrawlClient(medinfo.FirecrawlClientOpts{APIKey: cfg.FirecrawlAPIKey})
	lookuper := medinfo.NewCachedLookuper(firecrawl, store)

	engine, err := newEngine(ctx, cfg, lookuper)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize analysis engine")
	}
	log.Info().Str("provider", cfg.LLMProvider).Msg("analysis engine initialized")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runBot(ctx, tg, store, engine)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func newEngine(ctx context.Context, cfg *config.Config, lookuper medinfo.Lookuper) (llm.Engine, error) {
	switch cfg.LLMProvider {
	case config.ProviderGrok:
		return llm.NewGrokEngine(llm.GrokEngineOpts{
			APIKey:        cfg.XAIAPIKey,
			MaxConcurrent: cfg.MaxConcurrent,
		}, lookuper), nil
	case config.ProviderGemini:
		return llm.NewGeminiEngine(ctx, cfg.GeminiAPIKey, lookuper, cfg.MaxConcurrent)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, store storage.Store, engine llm.Engine) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	b := bot.NewBot(tg, store, engine)

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
