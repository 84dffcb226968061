package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"chat-relay/internal/config"
	"chat-relay/internal/conversation"
	"chat-relay/internal/llm"
	"chat-relay/internal/logging"
	"chat-relay/internal/scheduler"
	"chat-relay/internal/storage"
	"chat-relay/internal/telegram"
)

const pingTimeout = 15 * time.Second

func main() {
	envErr := godotenv.Load(".env")

	cfg := config.New()
	log := logging.New(cfg.LogLevel, cfg.Environment, os.Stdout)
	if envErr != nil {
		log.Warn().Err(envErr).Msg(".env file not found")
	}

	log.Info().
		Str("version", telegram.Version).
		Str("provider", string(cfg.LLMProvider)).
		Str("model", cfg.OpenAIModel).
		Int("maxConversationLength", cfg.MaxConversationLength).
		Msg("starting bot")

	llmClient, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create llm client")
	}
	if p, ok := llmClient.(llm.Pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("llm api key validation failed")
		}
		log.Info().Msg("llm api key validated")
	}

	store, err := conversation.New(cfg.MaxConversationLength, conversation.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create conversation store")
	}

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			log.Warn().Err(err).Msg("failed to init file recorder")
		} else {
			rec = fr
		}
	}

	bot, err := telegram.New(cfg.TelegramBotToken, llmClient, store, telegram.Options{
		SystemPrompt: readSystemPrompt(log, cfg.SystemPromptPath),
		Model:        cfg.OpenAIModel,
		Recorder:     rec,
		Workers:      cfg.Workers,
		Logger:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	sched := scheduler.New(log)
	err = sched.Add(cfg.CleanupSchedule, "sweep_stale", func(ctx context.Context) error {
		store.SweepStale(cfg.ConversationMaxAge)
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to schedule cleanup")
	}
	sched.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot.Start(ctx)
	if sched.IsRunning() {
		sched.Stop()
	}
	log.Info().Int("conversations", store.Stats().Conversations).Msg("shutdown complete")
}

func readSystemPrompt(log zerolog.Logger, path string) string {
	if path == "" {
		return telegram.DefaultSystemPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("system prompt unreadable, using default")
		return telegram.DefaultSystemPrompt
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return telegram.DefaultSystemPrompt
}
