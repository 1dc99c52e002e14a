package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	DefaultElevenLabsVoice   = "pNInz6obpgDQGcFmaJgB" // Adam, хорош для сказок
	DefaultElevenLabsModel   = "eleven_multilingual_v2"

	maxAudioBytes = 50 << 20
)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// ElevenLabs - клиент text-to-speech API ElevenLabs.
type ElevenLabs struct {
	client  *http.Client
	baseURL string
	apiKey  string
	voiceID string
	modelID string
	logger  *zap.Logger
}

// NewElevenLabs создает клиента ElevenLabs.
func NewElevenLabs(cfg Config, httpClient *http.Client, logger *zap.Logger) *ElevenLabs {
	e := &ElevenLabs{
		client:  httpClient,
		baseURL: strings.TrimSuffix(cfg.ElevenLabsBaseURL, "/"),
		apiKey:  cfg.ElevenLabsAPIKey,
		voiceID: cfg.ElevenLabsVoiceID,
		modelID: cfg.ElevenLabsModelID,
		logger:  logger.Named("ElevenLabs"),
	}
	if e.baseURL == "" {
		e.baseURL = DefaultElevenLabsBaseURL
	}
	if e.voiceID == "" {
		e.voiceID = DefaultElevenLabsVoice
	}
	if e.modelID == "" {
		e.modelID = DefaultElevenLabsModel
	}
	return e
}

func (e *ElevenLabs) Name() string { return "elevenlabs:" + e.voiceID + ":" + e.modelID }

// Synthesize озвучивает текст. Язык определяется multilingual моделью сам.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	log := e.logger.With(zap.String("voice_id", e.voiceID), zap.Int("text_chars", len(text)))

	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.25,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	url := e.baseURL + "/v1/text-to-speech/" + e.voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		speechRequests.WithLabelValues("elevenlabs", "error").Inc()
		log.Error("ElevenLabs request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSpeechGenerationFailed, err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if resp.StatusCode != http.StatusOK {
		speechRequests.WithLabelValues("elevenlabs", "error").Inc()
		msg := elevenLabsErrorMessage(data)
		log.Error("ElevenLabs returned non-OK status", zap.Int("status_code", resp.StatusCode), zap.String("detail", msg))
		return nil, fmt.Errorf("%w: %s", ErrSpeechGenerationFailed, msg)
	}
	if readErr != nil {
		speechRequests.WithLabelValues("elevenlabs", "error").Inc()
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrSpeechGenerationFailed, readErr)
	}
	if len(data) == 0 {
		speechRequests.WithLabelValues("elevenlabs", "error").Inc()
		return nil, fmt.Errorf("%w: empty audio", ErrSpeechGenerationFailed)
	}

	speechRequests.WithLabelValues("elevenlabs", "success").Inc()
	log.Info("Speech generated", zap.Int("audio_bytes", len(data)), zap.Duration("duration", time.Since(start)))
	return data, nil
}

// elevenLabsErrorMessage достаёт detail.message (или detail строкой) из тела ошибки.
func elevenLabsErrorMessage(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail.Message != "" {
			return detail.Message
		}
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
	}
	return "Failed to generate speech"
}
