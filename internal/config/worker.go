package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"storybook-server/internal/database"
	"storybook-server/internal/logger"
)

// WorkerConfig конфигурация воркера озвучки.
type WorkerConfig struct {
	Env    string `env:"ENV" env-default:"development"`
	Logger logger.Config

	RabbitMQURL    string        `env:"RABBITMQ_URL" env-required:"true"`
	NarrationQueue string        `env:"NARRATION_QUEUE" env-default:"story_narration_tasks"`
	Prefetch       int           `env:"NARRATION_PREFETCH" env-default:"1"`
	TaskTimeout    time.Duration `env:"NARRATION_TASK_TIMEOUT" env-default:"2m"`

	PushGatewayURL string        `env:"PUSHGATEWAY_URL" env-default:""`
	PushInterval   time.Duration `env:"PUSHGATEWAY_INTERVAL" env-default:"15s"`

	DB struct {
		Host        string        `env:"DB_HOST" env-default:"localhost"`
		Port        string        `env:"DB_PORT" env-default:"5432"`
		User        string        `env:"DB_USER" env-default:"postgres"`
		Name        string        `env:"DB_NAME" env-default:"storybook"`
		SSLMode     string        `env:"DB_SSL_MODE" env-default:"disable"`
		MaxConns    int           `env:"DB_MAX_CONNECTIONS" env-default:"5"`
		IdleTimeout time.Duration `env:"DB_IDLE_TIMEOUT" env-default:"5m"`
		MaxRetries  int           `env:"DB_CONNECT_RETRIES" env-default:"10"`
		RetryDelay  time.Duration `env:"DB_CONNECT_RETRY_DELAY" env-default:"3s"`
	}

	NATSURL            string `env:"NATS_URL" env-default:"nats://localhost:4222"`
	MediaBucket        string `env:"MEDIA_BUCKET" env-default:"storybook-media"`
	PublicMediaBaseURL string `env:"PUBLIC_MEDIA_BASE_URL" env-required:"true"`

	RedisAddr       string        `env:"REDIS_ADDR" env-default:""`
	SpeechProvider  string        `env:"SPEECH_PROVIDER" env-default:"elevenlabs"`
	SpeechTimeout   time.Duration `env:"SPEECH_TIMEOUT" env-default:"60s"`
	SpeechCacheTTL  time.Duration `env:"SPEECH_CACHE_TTL" env-default:"168h"`
	ElevenLabsURL   string        `env:"ELEVENLABS_BASE_URL" env-default:""`
	ElevenLabsVoice string        `env:"ELEVENLABS_VOICE_ID" env-default:""`
	OpenAITTSModel  string        `env:"OPENAI_TTS_MODEL" env-default:""`
	OpenAITTSVoice  string        `env:"OPENAI_TTS_VOICE" env-default:""`

	DBPassword       string `env:"-"`
	ElevenLabsAPIKey string `env:"-"`
	OpenAIAPIKey     string `env:"-"`
	RedisPassword    string `env:"-"`
}

// LoadWorkerConfig загружает конфигурацию воркера через cleanenv.
func LoadWorkerConfig() (*WorkerConfig, error) {
	_ = godotenv.Load()

	var cfg WorkerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading worker configuration: %w", err)
	}

	var err error
	if cfg.DBPassword, err = ReadSecret("db_password"); err != nil {
		return nil, err
	}
	cfg.ElevenLabsAPIKey, _ = ReadSecret("elevenlabs_api_key")
	cfg.OpenAIAPIKey, _ = ReadSecret("openai_api_key")
	cfg.RedisPassword, _ = ReadSecret("redis_password")
	return &cfg, nil
}

func (c *WorkerConfig) GetDSN() string {
	return BuildDSN(c.DB.User, c.DBPassword, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *WorkerConfig) Pool() database.PoolConfig {
	return database.PoolConfig{
		DSN:         c.GetDSN(),
		MaxConns:    c.DB.MaxConns,
		IdleTimeout: c.DB.IdleTimeout,
		MaxRetries:  c.DB.MaxRetries,
		RetryDelay:  c.DB.RetryDelay,
	}
}
