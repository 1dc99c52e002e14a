// Package illustration generates pictures for story pages.
package illustration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storybook-server/internal/models"
)

// ErrImageGenerationFailed - ошибка при генерации изображения провайдером.
var ErrImageGenerationFailed = errors.New("image generation failed")

const (
	// DefaultHuggingFaceURL модель с детским скетч-стилем.
	DefaultHuggingFaceURL = "https://api-inference.huggingface.co/models/Shakker-Labs/FLUX.1-dev-LoRA-Children-Simple-Sketch"

	maxImageBytes = 20 << 20
)

// Service генерирует иллюстрации.
type Service interface {
	// Illustrate returns a URL of a DALL-E picture for the scene.
	Illustrate(ctx context.Context, prompt string) (string, error)
	// GenerateImage returns a data URL of a HuggingFace inference picture.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Config настройки провайдеров изображений.
type Config struct {
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	DalleModel     string
	HuggingFaceKey string
	HuggingFaceURL string
	Timeout        time.Duration
}

type service struct {
	logger   *zap.Logger
	openai   *openaigo.Client
	model    string
	hfClient *http.Client
	hfURL    string
	hfKey    string
}

// NewService создает сервис иллюстраций.
func NewService(cfg Config, logger *zap.Logger) Service {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	openaiConfig := openaigo.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		openaiConfig.BaseURL = cfg.OpenAIBaseURL
	}
	openaiConfig.HTTPClient = httpClient

	model := cfg.DalleModel
	if model == "" {
		model = openaigo.CreateImageModelDallE3
	}
	hfURL := cfg.HuggingFaceURL
	if hfURL == "" {
		hfURL = DefaultHuggingFaceURL
	}

	return &service{
		logger:   logger.Named("IllustrationService"),
		openai:   openaigo.NewClientWithConfig(openaiConfig),
		model:    model,
		hfClient: httpClient,
		hfURL:    hfURL,
		hfKey:    cfg.HuggingFaceKey,
	}
}

// EnhancePrompt wraps a scene description with the picture-book style.
func EnhancePrompt(prompt string) string {
	return fmt.Sprintf("Create a cheerful, child-friendly illustration for a children's book: %s. "+
		"Style: Colorful, whimsical, and engaging, suitable for young children. "+
		"Use soft, warm colors and gentle shapes. Make it cute and appealing, similar to modern children's book illustrations.",
		strings.TrimSpace(prompt))
}

func (s *service) Illustrate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: missing prompt", models.ErrInvalidInput)
	}
	log := s.logger.With(zap.String("provider", "dalle"), zap.Int("prompt_chars", len(prompt)))

	start := time.Now()
	resp, err := s.openai.CreateImage(ctx, openaigo.ImageRequest{
		Prompt:         EnhancePrompt(prompt),
		Model:          s.model,
		N:              1,
		Size:           openaigo.CreateImageSize1024x1024,
		Quality:        openaigo.CreateImageQualityStandard,
		Style:          openaigo.CreateImageStyleVivid,
		ResponseFormat: openaigo.CreateImageResponseFormatURL,
	})
	imageRequests.WithLabelValues("dalle", statusLabel(err)).Inc()
	if err != nil {
		log.Error("Illustration request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		log.Error("Illustration response has no image url")
		return "", fmt.Errorf("%w: empty response", ErrImageGenerationFailed)
	}

	log.Info("Illustration generated", zap.Duration("duration", time.Since(start)))
	return resp.Data[0].URL, nil
}

type huggingFaceRequest struct {
	Inputs string `json:"inputs"`
}

func (s *service) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", models.ErrInvalidInput)
	}
	log := s.logger.With(zap.String("provider", "huggingface"), zap.String("api_url", s.hfURL))

	data, contentType, err := s.callHuggingFace(ctx, prompt)
	imageRequests.WithLabelValues("huggingface", statusLabel(err)).Inc()
	if err != nil {
		log.Error("HuggingFace image request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	log.Info("Image data received", zap.Int("size_bytes", len(data)), zap.String("content_type", contentType))

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// callHuggingFace - вызывает inference API, возвращает байты картинки и её MIME тип.
func (s *service) callHuggingFace(ctx context.Context, prompt string) ([]byte, string, error) {
	body, err := json.Marshal(huggingFaceRequest{Inputs: prompt})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.hfURL, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")
	if s.hfKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.hfKey)
	}

	resp, err := s.hfClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(data), 512))
	}
	if readErr != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", readErr)
	}
	if len(data) == 0 {
		return nil, "", errors.New("API returned empty data")
	}

	contentType := "image/jpeg"
	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && strings.HasPrefix(mediaType, "image/") {
		contentType = mediaType
	}
	return data, contentType, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
