package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"chat-relay/internal/analytics"
	"chat-relay/internal/markup"
)

// handleCommand runs a known command and reports whether msg was consumed.
// Unknown commands are left to the text handler.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) bool {
	log := zerolog.Ctx(ctx)
	switch msg.Command() {
	case "start":
		b.reply(ctx, msg.Chat.ID, welcomeMessage)
		log.Info().Int64("userID", msg.From.ID).Msg("start command received")
	case "help":
		b.reply(ctx, msg.Chat.ID, helpMessage)
	case "clear":
		b.store.Reset(msg.From.ID)
		b.reply(ctx, msg.Chat.ID, clearedMessage)
		log.Info().Int64("userID", msg.From.ID).Msg("conversation cleared by user")
	case "status":
		b.reply(ctx, msg.Chat.ID, b.statusText(ctx, msg.From.ID))
	default:
		return false
	}
	return true
}

func (b *Bot) statusText(ctx context.Context, userID int64) string {
	st := b.store.Stats()

	var sb strings.Builder
	sb.WriteString("📊 *Bot Status*\n\n")
	sb.WriteString("*Your session:*\n")
	fmt.Fprintf(&sb, "• Messages in history: %d of %d\n", b.store.Len(userID), b.store.MaxLength())
	fmt.Fprintf(&sb, "• Model: %s\n\n", markup.Escape(b.model))

	sb.WriteString("*Bot information:*\n")
	sb.WriteString("• Status: ✅ Online\n")
	fmt.Fprintf(&sb, "• Version: %s\n", markup.Escape(Version))
	fmt.Fprintf(&sb, "• Uptime: %s\n", formatUptime(b.now().Sub(b.startedAt)))
	fmt.Fprintf(&sb, "• Active conversations: %d\n", st.Conversations)
	fmt.Fprintf(&sb, "• Messages in memory: %d\n", st.Messages)
	fmt.Fprintf(&sb, "• Messages handled: %d\n", b.handled.Load())

	if day := b.today(ctx); day != nil {
		fmt.Fprintf(&sb, "• Today: %d messages from %d users, %d tokens\n", day.TotalMessages, day.UniqueUsers, day.TotalTokens)
	}

	sb.WriteString("\nEverything is working great\\! 🎉")
	return sb.String()
}

func (b *Bot) today(ctx context.Context) *analytics.DailyStats {
	if b.recorder == nil {
		return nil
	}
	events, err := b.recorder.LoadInteractions()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to load interactions")
		return nil
	}
	return analytics.AnalyzeDailyLogs(events, b.now().UTC())
}

func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
