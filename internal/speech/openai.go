package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAITTS - озвучка через OpenAI audio/speech.
type OpenAITTS struct {
	client *openaigo.Client
	model  openaigo.SpeechModel
	voice  openaigo.SpeechVoice
	logger *zap.Logger
}

// NewOpenAITTS создает клиента OpenAI TTS.
func NewOpenAITTS(cfg Config, httpClient *http.Client, logger *zap.Logger) *OpenAITTS {
	openaiConfig := openaigo.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		openaiConfig.BaseURL = cfg.OpenAIBaseURL
	}
	openaiConfig.HTTPClient = httpClient

	model := openaigo.SpeechModel(cfg.OpenAIModel)
	if model == "" {
		model = openaigo.TTSModel1
	}
	voice := openaigo.SpeechVoice(cfg.OpenAIVoice)
	if voice == "" {
		voice = openaigo.VoiceFable
	}
	return &OpenAITTS{
		client: openaigo.NewClientWithConfig(openaiConfig),
		model:  model,
		voice:  voice,
		logger: logger.Named("OpenAITTS"),
	}
}

func (o *OpenAITTS) Name() string { return "openai:" + string(o.model) + ":" + string(o.voice) }

func (o *OpenAITTS) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	resp, err := o.client.CreateSpeech(ctx, openaigo.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openaigo.SpeechResponseFormatMp3,
	})
	if err != nil {
		speechRequests.WithLabelValues("openai", "error").Inc()
		o.logger.Error("OpenAI speech request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSpeechGenerationFailed, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(io.LimitReader(resp, maxAudioBytes))
	if err != nil {
		speechRequests.WithLabelValues("openai", "error").Inc()
		return nil, fmt.Errorf("%w: failed to read audio: %v", ErrSpeechGenerationFailed, err)
	}
	if len(data) == 0 {
		speechRequests.WithLabelValues("openai", "error").Inc()
		return nil, fmt.Errorf("%w: empty audio", ErrSpeechGenerationFailed)
	}

	speechRequests.WithLabelValues("openai", "success").Inc()
	o.logger.Info("Speech generated", zap.Int("audio_bytes", len(data)), zap.String("voice", string(o.voice)))
	return data, nil
}
