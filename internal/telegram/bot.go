package telegram

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"chat-relay/internal/conversation"
	"chat-relay/internal/llm"
	"chat-relay/internal/storage"
)

const Version = "1.0.0"

const resetCmd = "reset_ctx"

// Options holds the optional collaborators of a Bot.
type Options struct {
	SystemPrompt string
	Model        string
	Recorder     storage.Recorder
	// Workers bounds how many updates are handled at the same time.
	Workers int
	Logger  zerolog.Logger
}

type Bot struct {
	api          *tgbotapi.BotAPI
	s            sender
	llmClient    llm.Client
	store        *conversation.Store
	recorder     storage.Recorder
	systemPrompt string
	model        string
	workers      int
	log          zerolog.Logger

	startedAt time.Time
	now       func() time.Time
	handled   atomic.Int64
}

// New connects to the Bot API. The token is checked with getMe.
func New(botToken string, llmClient llm.Client, store *conversation.Store, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	opts.Logger.Info().
		Str("botName", api.Self.UserName).
		Int64("botID", api.Self.ID).
		Msg("bot token validated")

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Bot{
		api:          api,
		s:            botAPISender{api: api},
		llmClient:    llmClient,
		store:        store,
		recorder:     opts.Recorder,
		systemPrompt: opts.SystemPrompt,
		model:        opts.Model,
		workers:      workers,
		log:          opts.Logger,
		startedAt:    time.Now(),
		now:          time.Now,
	}, nil
}

// Start polls for updates until ctx is cancelled. Updates are handled on a
// bounded pool; Start returns once in-flight handlers have finished.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	p := pool.New().WithMaxGoroutines(b.workers)
	defer p.Wait()

	b.log.Info().Int("workers", b.workers).Msg("bot started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info().Msg("bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			p.Go(func() { b.handleUpdate(ctx, update) })
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	log := b.log.With().Str("requestID", uuid.NewString()).Logger()
	ctx = log.WithContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("bot error")
		}
		log.Info().Dur("processingTime", time.Since(start)).Msg("update processed")
	}()

	switch {
	case update.Message != nil:
		msg := update.Message
		ev := log.Info().Str("messageType", "message")
		if msg.From != nil {
			ev = ev.Int64("userID", msg.From.ID).Str("username", msg.From.UserName)
		}
		if msg.Chat != nil {
			ev = ev.Str("chatType", msg.Chat.Type)
		}
		ev.Msg("incoming message")
		b.handleMessage(ctx, msg)
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		log.Info().Str("messageType", "callback_query").Int64("userID", cb.From.ID).Msg("incoming message")
		b.handleCallback(ctx, cb)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if msg.IsCommand() && b.handleCommand(ctx, msg) {
		return
	}
	if msg.Text != "" {
		b.handleText(ctx, msg)
		return
	}
	if isMedia(msg) {
		b.reply(ctx, msg.Chat.ID, textOnlyMessage)
	}
}

func isMedia(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 || msg.Video != nil || msg.Audio != nil || msg.Document != nil || msg.Sticker != nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Data != resetCmd {
		return
	}
	b.store.Reset(cb.From.ID)
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to answer callback")
	}
	if cb.Message != nil && cb.Message.Chat != nil {
		b.reply(ctx, cb.Message.Chat.ID, clearedMessage)
	}
}

// reply sends pre-escaped MarkdownV2 text.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.s.Send(msg); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chatID", chatID).Msg("failed to send message")
	}
}

func (b *Bot) typing(ctx context.Context, chatID int64) {
	if _, err := b.s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("failed to send typing action")
	}
}

func resetKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Clear context", resetCmd),
		),
	)
}
