package speech

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// New создает синтезатор по cfg.Provider.
func New(cfg Config, timeout time.Duration, logger *zap.Logger) (Synthesizer, error) {
	httpClient := &http.Client{Timeout: timeout}
	switch strings.ToLower(cfg.Provider) {
	case "elevenlabs", "":
		return NewElevenLabs(cfg, httpClient, logger), nil
	case "openai":
		return NewOpenAITTS(cfg, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("unknown speech provider: '%s'", cfg.Provider)
	}
}
