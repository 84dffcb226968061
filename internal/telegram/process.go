package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"chat-relay/internal/conversation"
	"chat-relay/internal/llm"
	"chat-relay/internal/markup"
	"chat-relay/internal/storage"
)

// handleText runs one round trip: store the question, ask the model with the
// whole history, store the answer and send it rendered as MarkdownV2.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	log := zerolog.Ctx(ctx)
	userID, chatID := msg.From.ID, msg.Chat.ID
	b.handled.Add(1)

	if b.systemPrompt != "" {
		b.store.SeedSystemPrompt(userID, b.systemPrompt)
	}
	b.store.Add(userID, conversation.RoleUser, msg.Text)

	b.typing(ctx, chatID)

	resp, err := b.llmClient.Generate(ctx, toLLMMessages(b.store.History(userID)))
	if err != nil {
		log.Error().Err(err).Int64("userID", userID).Msg("error processing message")
		b.reply(ctx, chatID, generationErrorText(err))
		return
	}

	b.store.Add(userID, conversation.RoleAssistant, resp.Content)
	if b.recorder != nil {
		ev := storage.Event{
			Timestamp:         b.now().UTC(),
			UserID:            userID,
			UserMessage:       msg.Text,
			AssistantResponse: resp.Content,
			Model:             resp.Model,
			PromptTokens:      resp.PromptTokens,
			CompletionTokens:  resp.CompletionTokens,
			TotalTokens:       resp.TotalTokens,
		}
		if err := b.recorder.AppendInteraction(ev); err != nil {
			log.Warn().Err(err).Msg("failed to record interaction")
		}
	}

	out := tgbotapi.NewMessage(chatID, markup.Transcode(resp.Content))
	out.ParseMode = tgbotapi.ModeMarkdownV2
	out.ReplyMarkup = resetKeyboard()
	if _, err := b.s.Send(out); err != nil {
		log.Error().Err(err).Int64("chatID", chatID).Msg("failed to send message")
		return
	}

	log.Info().
		Int64("userID", userID).
		Int("messageLength", len(msg.Text)).
		Int("responseLength", len(resp.Content)).
		Str("model", resp.Model).
		Int("promptTokens", resp.PromptTokens).
		Int("completionTokens", resp.CompletionTokens).
		Int("totalTokens", resp.TotalTokens).
		Msg("message processed successfully")
}

func toLLMMessages(history []conversation.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func generationErrorText(err error) string {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return rateLimitMessage
	case errors.Is(err, llm.ErrBadRequest):
		return badRequestMessage
	case errors.Is(err, llm.ErrUnauthorized):
		return unauthorizedMessage
	default:
		return errorMessage
	}
}
