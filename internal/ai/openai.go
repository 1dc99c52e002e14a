package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIClient реализует Client с использованием go-openai. Подходит для
// любого OpenAI-совместимого API (OpenAI, OpenRouter, vLLM).
type openAIClient struct {
	client  *openaigo.Client
	model   string
	pricing pricing
	tokens  *tokenCounter
	logger  *zap.Logger
}

func newOpenAIClient(client *openaigo.Client, model string, p pricing, logger *zap.Logger) *openAIClient {
	return &openAIClient{
		client:  client,
		model:   model,
		pricing: p,
		tokens:  newTokenCounter(model),
		logger:  logger.Named("OpenAIClient"),
	}
}

func (c *openAIClient) Model() string { return c.model }

// GenerateText генерирует текст на основе системного промта и ввода пользователя
func (c *openAIClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usage := UsageInfo{}
	log := c.logger.With(zap.String("model", c.model), zap.String("user_id", userID))

	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", usage, fmt.Errorf("%w: system prompt is empty", ErrAIGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: userInput})
	}

	req := openaigo.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if params.Temperature != nil {
		req.Temperature = float32(*params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = float32(*params.TopP)
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}

	log.Debug("Sending chat completion request",
		zap.Int("system_prompt_bytes", len(systemPrompt)),
		zap.Int("user_input_bytes", len(userInput)),
	)
	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(startTime)

	if err != nil {
		log.Error("Chat completion request failed", zap.Duration("duration", duration), zap.Error(err))
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", usage, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Warn("Chat completion returned empty response", zap.Duration("duration", duration))
		aiRequestsTotal.WithLabelValues(c.model, "error_empty_response").Inc()
		return "", usage, fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	aiRequestsTotal.WithLabelValues(c.model, "success").Inc()
	aiRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	text := resp.Choices[0].Message.Content
	if resp.Usage.TotalTokens > 0 {
		usage.PromptTokens = resp.Usage.PromptTokens
		usage.CompletionTokens = resp.Usage.CompletionTokens
		usage.TotalTokens = resp.Usage.TotalTokens
	} else if prompt, ok := c.tokens.Count(systemPrompt, userInput); ok {
		completion, _ := c.tokens.Count(text)
		usage.PromptTokens = prompt
		usage.CompletionTokens = completion
		usage.TotalTokens = prompt + completion
		usage.Estimated = true
	}
	usage.EstimatedCostUSD = c.pricing.cost(usage.PromptTokens, usage.CompletionTokens)
	observeUsage(c.model, usage)

	log.Info("Chat completion received",
		zap.Duration("duration", duration),
		zap.Int("response_chars", len(text)),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Bool("tokens_estimated", usage.Estimated),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)
	return text, usage, nil
}
