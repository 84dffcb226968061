package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/conversation"
	"chat-relay/internal/llm"
	"chat-relay/internal/markup"
	"chat-relay/internal/storage"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

type fakeLLM struct {
	mu    sync.Mutex
	resp  llm.Response
	err   error
	calls [][]llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	return f.resp, f.err
}

type memRecorder struct {
	mu     sync.Mutex
	events []storage.Event
}

func (m *memRecorder) AppendInteraction(ev storage.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRecorder) LoadInteractions() ([]storage.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.Event{}, m.events...), nil
}

func newTestBot(t *testing.T, client llm.Client) (*Bot, *fakeSender) {
	t.Helper()
	store, err := conversation.New(50)
	require.NoError(t, err)
	fs := &fakeSender{}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	return &Bot{
		s:            fs,
		llmClient:    client,
		store:        store,
		systemPrompt: "be helpful",
		model:        "gpt-test",
		workers:      1,
		log:          zerolog.Nop(),
		startedAt:    now.Add(-(2*time.Hour + 3*time.Minute + 4*time.Second)),
		now:          func() time.Time { return now },
	}, fs
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{From: &tgbotapi.User{ID: userID}, Chat: &tgbotapi.Chat{ID: userID * 10, Type: "private"}, Text: text}
}

func commandMessage(userID int64, cmd string) *tgbotapi.Message {
	msg := textMessage(userID, "/"+cmd)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}}
	return msg
}

func TestHandleText_RoundTrip(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "Use `fmt.Println()` **now**", Model: "gpt-test", TotalTokens: 9}}
	b, fs := newTestBot(t, fl)
	rec := &memRecorder{}
	b.recorder = rec

	b.handleMessage(context.Background(), textMessage(42, "how to print?"))

	require.Len(t, fl.calls, 1)
	assert.Equal(t, []llm.Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "how to print?"},
	}, fl.calls[0])

	require.Len(t, fs.sent, 1)
	out := fs.sent[0]
	assert.Equal(t, "Use `fmt\\.Println\\(\\)` *now*", out.Text)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, out.ParseMode)
	assert.Equal(t, int64(420), out.ChatID)
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, out.ReplyMarkup)

	require.Len(t, fs.requests, 1)
	assert.IsType(t, tgbotapi.ChatActionConfig{}, fs.requests[0])

	history := b.store.History(42)
	require.Len(t, history, 3)
	assert.Equal(t, conversation.RoleAssistant, history[2].Role)
	assert.Equal(t, "Use `fmt.Println()` **now**", history[2].Content)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "how to print?", rec.events[0].UserMessage)
	assert.Equal(t, 9, rec.events[0].TotalTokens)
}

func TestHandleText_SendsWholeHistory(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "ok"}}
	b, _ := newTestBot(t, fl)

	b.handleMessage(context.Background(), textMessage(1, "first"))
	b.handleMessage(context.Background(), textMessage(1, "second"))

	require.Len(t, fl.calls, 2)
	var roles []string
	for _, m := range fl.calls[1] {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
}

func TestHandleText_ConcurrentFirstMessagesKeepPromptFirst(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "ok"}}
	b, _ := newTestBot(t, fl)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.handleMessage(context.Background(), textMessage(9, fmt.Sprintf("q%d", i)))
		}(i)
	}
	wg.Wait()

	history := b.store.History(9)
	require.Len(t, history, 9)
	assert.Equal(t, conversation.RoleSystem, history[0].Role)
	for _, m := range history[1:] {
		assert.NotEqual(t, conversation.RoleSystem, m.Role)
	}
	for _, call := range fl.calls {
		assert.Equal(t, "system", call[0].Role)
	}
}

func TestHandleText_NoSystemPrompt(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "ok"}}
	b, _ := newTestBot(t, fl)
	b.systemPrompt = ""

	b.handleMessage(context.Background(), textMessage(1, "hi"))
	require.Len(t, fl.calls, 1)
	assert.Equal(t, []llm.Message{{Role: "user", Content: "hi"}}, fl.calls[0])
}

func TestHandleText_GenerationErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errors.New("boom"), errorMessage},
		{fmt.Errorf("wrapped: %w", llm.ErrRateLimited), rateLimitMessage},
		{fmt.Errorf("wrapped: %w", llm.ErrBadRequest), badRequestMessage},
		{fmt.Errorf("openai: %w: %w", llm.ErrUnauthorized, errors.New("status 401")), unauthorizedMessage},
	}
	for _, tc := range cases {
		b, fs := newTestBot(t, &fakeLLM{err: tc.err})
		b.handleMessage(context.Background(), textMessage(5, "hi"))

		assert.Equal(t, []string{tc.want}, fs.texts())
		history := b.store.History(5)
		require.Len(t, history, 2, "no assistant message on failure")
		assert.Equal(t, conversation.RoleUser, history[1].Role)
	}
}

func TestCommands(t *testing.T) {
	b, fs := newTestBot(t, &fakeLLM{resp: llm.Response{Content: "ok"}})

	b.handleMessage(context.Background(), commandMessage(1, "start"))
	b.handleMessage(context.Background(), commandMessage(1, "help"))
	assert.Equal(t, []string{welcomeMessage, helpMessage}, fs.texts())
	for _, m := range fs.sent {
		assert.Equal(t, tgbotapi.ModeMarkdownV2, m.ParseMode)
	}
}

func TestClearCommand_ResetsHistory(t *testing.T) {
	b, fs := newTestBot(t, &fakeLLM{resp: llm.Response{Content: "ok"}})
	b.handleMessage(context.Background(), textMessage(1, "hi"))
	b.handleMessage(context.Background(), textMessage(2, "hi"))
	require.Equal(t, 3, b.store.Len(1))

	b.handleMessage(context.Background(), commandMessage(1, "clear"))
	assert.Zero(t, b.store.Len(1))
	assert.Equal(t, 3, b.store.Len(2))
	texts := fs.texts()
	assert.Equal(t, clearedMessage, texts[len(texts)-1])
}

func TestStatusCommand(t *testing.T) {
	b, fs := newTestBot(t, &fakeLLM{resp: llm.Response{Content: "ok"}})
	b.model = "gpt-4.1"
	rec := &memRecorder{}
	b.recorder = rec

	b.handleMessage(context.Background(), textMessage(1, "hi"))
	b.handleMessage(context.Background(), textMessage(2, "hi"))
	b.handleMessage(context.Background(), commandMessage(1, "status"))

	texts := fs.texts()
	status := texts[len(texts)-1]
	assert.Contains(t, status, "Messages in history: 3 of 50")
	assert.Contains(t, status, "Model: gpt\\-4\\.1")
	assert.Contains(t, status, "Version: 1\\.0\\.0")
	assert.Contains(t, status, "Uptime: 2h 3m 4s")
	assert.Contains(t, status, "Active conversations: 2")
	assert.Contains(t, status, "Messages in memory: 6")
	assert.Contains(t, status, "Messages handled: 2")
	assert.Contains(t, status, "Today: 2 messages from 2 users")
}

func TestUnknownCommand_GoesToModel(t *testing.T) {
	fl := &fakeLLM{resp: llm.Response{Content: "ok"}}
	b, _ := newTestBot(t, fl)
	b.handleMessage(context.Background(), commandMessage(1, "weather"))
	assert.Len(t, fl.calls, 1)
}

func TestResetCallback(t *testing.T) {
	b, fs := newTestBot(t, &fakeLLM{resp: llm.Response{Content: "ok"}})
	b.handleMessage(context.Background(), textMessage(7, "hi"))

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 70}},
		Data:    resetCmd,
	}})

	assert.Empty(t, b.store.History(7))
	texts := fs.texts()
	assert.Equal(t, clearedMessage, texts[len(texts)-1])
	last := fs.requests[len(fs.requests)-1]
	assert.IsType(t, tgbotapi.CallbackConfig{}, last)
}

func TestNonTextMessage(t *testing.T) {
	fl := &fakeLLM{}
	b, fs := newTestBot(t, fl)
	msg := &tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}, Photo: []tgbotapi.PhotoSize{{FileID: "x"}}}

	b.handleMessage(context.Background(), msg)
	assert.Equal(t, []string{textOnlyMessage}, fs.texts())
	assert.Empty(t, fl.calls)
}

type panicLLM struct{}

func (panicLLM) Generate(context.Context, []llm.Message) (llm.Response, error) {
	panic("kaboom")
}

func TestHandleUpdate_RecoversPanics(t *testing.T) {
	b, _ := newTestBot(t, panicLLM{})
	assert.NotPanics(t, func() {
		b.handleUpdate(context.Background(), tgbotapi.Update{Message: textMessage(1, "hi")})
	})
}

func TestTranscodedReplyStaysWithinLimit(t *testing.T) {
	long := strings.Repeat("word. ", 2000)
	b, fs := newTestBot(t, &fakeLLM{resp: llm.Response{Content: long}})
	b.handleMessage(context.Background(), textMessage(1, "long please"))

	require.Len(t, fs.sent, 1)
	assert.Less(t, markup.Length(fs.sent[0].Text), markup.TelegramLimit)
}

func TestEmojiReplyStaysWithinLimit(t *testing.T) {
	b, fs := newTestBot(t, &fakeLLM{resp: llm.Response{Content: strings.Repeat("🎉", 3000)}})
	b.handleMessage(context.Background(), textMessage(1, "celebrate"))

	require.Len(t, fs.sent, 1)
	assert.True(t, strings.HasSuffix(fs.sent[0].Text, markup.TruncationNotice))
	assert.Less(t, markup.Length(fs.sent[0].Text), markup.TelegramLimit)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0h 0m 0s", formatUptime(-time.Second))
	assert.Equal(t, "26h 1m 5s", formatUptime(26*time.Hour+65*time.Second))
}
