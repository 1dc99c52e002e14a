package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/database"
	"storybook-server/internal/logger"
	"storybook-server/internal/messaging"
	"storybook-server/internal/objectstore"
	"storybook-server/internal/service"
	"storybook-server/internal/speech"
	"storybook-server/internal/worker"
)

func main() {
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	logger.SetZerologLevel(cfg.Logger.Level)
	zap.L().Info("Narration worker starting",
		zap.String("queue", cfg.NarrationQueue),
		zap.Int("prefetch", cfg.Prefetch),
		zap.String("rabbitmq_url", config.MaskURL(cfg.RabbitMQURL)),
		zap.String("db_dsn", config.MaskURL(cfg.GetDSN())),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Metrics ---
	if cfg.PushGatewayURL != "" {
		pusher, err := worker.NewMetricsPusher(cfg.PushGatewayURL, log)
		if err != nil {
			zap.L().Warn("Pushgateway unavailable, metrics will not be pushed", zap.Error(err))
		} else {
			pusher.Start(cfg.PushInterval)
			defer pusher.Stop()
		}
	}

	// --- External Connections ---
	pgPool, err := database.Connect(ctx, cfg.Pool(), log)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	natsConn, err := nats.Connect(cfg.NATSURL, nats.Name("storybook-narration-worker"), nats.MaxReconnects(-1))
	if err != nil {
		zap.L().Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	js, err := natsConn.JetStream()
	if err != nil {
		zap.L().Fatal("Failed to get JetStream context", zap.Error(err))
	}
	mediaStore, err := objectstore.New(js, cfg.MediaBucket, log)
	if err != nil {
		zap.L().Fatal("Failed to open media bucket", zap.Error(err))
	}

	synth, err := speech.New(speech.Config{
		Provider:          cfg.SpeechProvider,
		ElevenLabsAPIKey:  cfg.ElevenLabsAPIKey,
		ElevenLabsBaseURL: cfg.ElevenLabsURL,
		ElevenLabsVoiceID: cfg.ElevenLabsVoice,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		OpenAIModel:       cfg.OpenAITTSModel,
		OpenAIVoice:       cfg.OpenAITTSVoice,
	}, cfg.SpeechTimeout, log)
	if err != nil {
		zap.L().Fatal("Failed to create speech synthesizer", zap.Error(err))
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		synth = speech.NewCachedSynthesizer(synth, rdb, cfg.SpeechCacheTTL, log)
	}

	narrator := service.NewNarrator(synth, nil, pgPool,
		database.NewPgStoryRepository(log), database.NewPgPageRepository(log),
		mediaStore, cfg.PublicMediaBaseURL, log)
	h := worker.NewHandler(narrator, cfg.TaskTimeout, log)

	mqConn, err := messaging.Connect(ctx, cfg.RabbitMQURL, 10, 3*time.Second)
	if err != nil {
		zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()

	// --- Consume until signal ---
	consumer := messaging.NewConsumer(mqConn, cfg.NarrationQueue, cfg.Prefetch, h)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Error("Consumer stopped with error", zap.Error(err))
		return
	}
	zap.L().Info("Narration worker stopped")
}
