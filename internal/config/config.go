package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// LLM settings
	LLMProvider       LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey      string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string      `env:"OPENAI_BASE_URL"`
	OpenAIModel       string      `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIMaxTokens   int         `env:"OPENAI_MAX_TOKENS" envDefault:"1000"`
	OpenAITemperature float32     `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`
	YandexOAuthToken  string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID    string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Conversations
	MaxConversationLength int           `env:"MAX_CONVERSATION_LENGTH" envDefault:"50"`
	ConversationMaxAge    time.Duration `env:"CONVERSATION_MAX_AGE" envDefault:"24h"`
	CleanupSchedule       string        `env:"CLEANUP_SCHEDULE" envDefault:"@every 30m"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`

	// Storage
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/log.jsonl"`

	// Runtime
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Workers     int    `env:"BOT_WORKERS" envDefault:"4"`
}

// New parses the environment and exits the process on invalid settings.
func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is empty", ErrInvalid)
	}
	if c.MaxConversationLength <= 0 {
		return fmt.Errorf("%w: MAX_CONVERSATION_LENGTH must be positive, got %d", ErrInvalid, c.MaxConversationLength)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: BOT_WORKERS must be positive, got %d", ErrInvalid, c.Workers)
	}
	if c.ConversationMaxAge < 0 {
		return fmt.Errorf("%w: CONVERSATION_MAX_AGE must not be negative", ErrInvalid)
	}
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("%w: unknown APP_ENV %q", ErrInvalid, c.Environment)
	}
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for provider %s", ErrInvalid, c.LLMProvider)
		}
	case ProviderYandex:
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			return fmt.Errorf("%w: YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required for provider %s", ErrInvalid, c.LLMProvider)
		}
	default:
		return fmt.Errorf("%w: unknown LLM_PROVIDER %q", ErrInvalid, c.LLMProvider)
	}
	return nil
}
