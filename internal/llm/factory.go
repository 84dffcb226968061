package llm

import (
	"fmt"
	"strings"

	"chat-relay/internal/config"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenaiMaxTokens    int
	OpenaiTemperature  float32
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenaiMaxTokens:    cfg.OpenAIMaxTokens,
		OpenaiTemperature:  cfg.OpenAITemperature,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
	}
}

func (f *Factory) CreateClient(provider, model string) (Client, error) {
	switch config.LLMProvider(strings.ToLower(provider)) {
	case config.ProviderOpenAI:
		return NewOpenAI(f.OpenaiAPIKey, model, OpenAIOptions{
			BaseURL:     f.OpenaiBaseURL,
			MaxTokens:   f.OpenaiMaxTokens,
			Temperature: f.OpenaiTemperature,
			Referrer:    f.OpenRouterReferrer,
			Title:       f.OpenRouterTitle,
		}), nil
	case config.ProviderYandex:
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
