package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrAIGenerationFailed - ошибка при генерации текста AI
var ErrAIGenerationFailed = errors.New("ai text generation failed")

// GenerationParams параметры генерации. Указатели отличают 0 от "не задано".
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// UsageInfo содержит информацию об использовании токенов и стоимости
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCostUSD float64
	Estimated        bool // true если токены посчитаны tiktoken, а не провайдером
}

// Client генерирует текст по системному промту и вводу пользователя.
type Client interface {
	GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error)
	Model() string
}

// Config настройки провайдера текста.
type Config struct {
	Provider string // openai | ollama
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration

	PricePerMillionInputUSD  float64
	PricePerMillionOutputUSD float64
}

// NewClient создает клиента в зависимости от конфигурации
func NewClient(cfg Config, logger *zap.Logger) (Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ai client: model is not configured")
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	prices := pricing{input: cfg.PricePerMillionInputUSD, output: cfg.PricePerMillionOutputUSD}

	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			openaiConfig.BaseURL = cfg.BaseURL
		}
		openaiConfig.HTTPClient = httpClient
		logger.Info("OpenAI-compatible text client created",
			zap.String("base_url", openaiConfig.BaseURL),
			zap.String("model", cfg.Model),
			zap.Duration("timeout", cfg.Timeout),
		)
		return newOpenAIClient(openaigo.NewClientWithConfig(openaiConfig), cfg.Model, prices, logger), nil
	case "ollama":
		client, err := newOllamaClient(cfg, httpClient, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ai provider: '%s'", cfg.Provider)
	}
}

type pricing struct {
	input  float64
	output float64
}

// cost рассчитывает оценочную стоимость запроса на основе токенов.
func (p pricing) cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*p.input/1_000_000.0 + float64(completionTokens)*p.output/1_000_000.0
}

// Float64 и Int - помощники для GenerationParams.
func Float64(v float64) *float64 { return &v }

func Int(v int) *int { return &v }
