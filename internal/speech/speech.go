// Package speech narrates story text.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storybook-server/internal/models"
)

// ErrSpeechGenerationFailed - ошибка провайдера озвучки.
var ErrSpeechGenerationFailed = errors.New("speech generation failed")

// Synthesizer превращает текст в аудио (mp3).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
	// Name identifies provider and voice; cached audio is keyed by it.
	Name() string
}

// Config настройки провайдера озвучки.
type Config struct {
	Provider string // elevenlabs | openai

	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAIVoice   string
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is required", models.ErrInvalidInput)
	}
	return nil
}
