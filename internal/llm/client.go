package llm

import (
	"context"
	"errors"
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// Pinger is implemented by clients that can check connectivity without
// generating text.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrRateLimited   = errors.New("llm: rate limit exceeded")
	ErrUnauthorized  = errors.New("llm: invalid api key")
	ErrBadRequest    = errors.New("llm: invalid request")
)
