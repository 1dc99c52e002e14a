package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storybook-server/internal/ai"
	"storybook-server/internal/config"
	"storybook-server/internal/database"
	"storybook-server/internal/handler"
	"storybook-server/internal/illustration"
	"storybook-server/internal/interfaces"
	"storybook-server/internal/logger"
	"storybook-server/internal/messaging"
	"storybook-server/internal/objectstore"
	"storybook-server/internal/prompts"
	"storybook-server/internal/service"
	"storybook-server/internal/speech"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	logger.SetZerologLevel(cfg.LogLevel)
	cfg.LogSummary(log)

	// --- External Connections ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgPool, err := database.Connect(ctx, cfg.Pool(), log)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	if err := database.ApplyMigrations(cfg.GetDSN(), log); err != nil {
		zap.L().Fatal("Failed to apply migrations", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = setupRedis(ctx, cfg)
		if err != nil {
			zap.L().Warn("Redis unavailable, speech cache disabled and rate limit kept in memory", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	natsConn, err := nats.Connect(cfg.NATSURL,
		nats.Name("storybook-server"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
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

	var publisher interfaces.NarrationPublisher
	mqConn, err := messaging.Connect(ctx, cfg.RabbitMQURL, 5, 2*time.Second)
	if err != nil {
		zap.L().Warn("RabbitMQ unavailable, background narration disabled", zap.Error(err))
	} else {
		defer mqConn.Close()
		narrationPublisher, err := messaging.NewNarrationPublisher(mqConn, cfg.NarrationQueue)
		if err != nil {
			zap.L().Fatal("Failed to create narration publisher", zap.Error(err))
		}
		defer narrationPublisher.Close()
		publisher = narrationPublisher
	}

	// --- Dependency Injection ---
	catalog, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		zap.L().Fatal("Failed to load prompts", zap.Error(err))
	}
	aiClient, err := ai.NewClient(ai.Config{
		Provider:                 cfg.AIProvider,
		BaseURL:                  cfg.AIBaseURL,
		APIKey:                   cfg.AIAPIKey,
		Model:                    cfg.AIModel,
		Timeout:                  cfg.AITimeout,
		PricePerMillionInputUSD:  cfg.AIPriceInputUSD,
		PricePerMillionOutputUSD: cfg.AIPriceOutputUSD,
	}, log)
	if err != nil {
		zap.L().Fatal("Failed to create AI client", zap.Error(err))
	}
	generator, err := service.NewStoryGenerator(aiClient, catalog, cfg.StoryProfile, log)
	if err != nil {
		zap.L().Fatal("Failed to create story generator", zap.Error(err))
	}

	images := illustration.NewService(illustration.Config{
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		DalleModel:     cfg.DalleModel,
		HuggingFaceKey: cfg.HuggingFaceAPIKey,
		HuggingFaceURL: cfg.HuggingFaceURL,
		Timeout:        cfg.ImageTimeout,
	}, log)

	synth, err := speech.New(speech.Config{
		Provider:          cfg.SpeechProvider,
		ElevenLabsAPIKey:  cfg.ElevenLabsAPIKey,
		ElevenLabsBaseURL: cfg.ElevenLabsBaseURL,
		ElevenLabsVoiceID: cfg.ElevenLabsVoiceID,
		ElevenLabsModelID: cfg.ElevenLabsModelID,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		OpenAIModel:       cfg.OpenAITTSModel,
		OpenAIVoice:       cfg.OpenAITTSVoice,
	}, cfg.SpeechTimeout, log)
	if err != nil {
		zap.L().Fatal("Failed to create speech synthesizer", zap.Error(err))
	}
	if redisClient != nil {
		synth = speech.NewCachedSynthesizer(synth, redisClient, cfg.SpeechCacheTTL, log)
	}

	storyRepo := database.NewPgStoryRepository(log)
	pageRepo := database.NewPgPageRepository(log)
	library := service.NewLibrary(pgPool, database.NewTxRunner(pgPool), storyRepo, pageRepo, mediaStore, service.LibraryConfig{
		PublicMediaBaseURL: cfg.PublicMediaBaseURL,
		UploadConcurrency:  cfg.UploadConcurrency,
	}, log)
	narrator := service.NewNarrator(synth, publisher, pgPool, storyRepo, pageRepo, mediaStore, cfg.PublicMediaBaseURL, log)

	storyHandler, err := handler.NewStoryHandler(handler.Deps{
		Generator:    generator,
		Illustration: images,
		Library:      library,
		Narration:    narrator,
		Media:        service.NewMedia(mediaStore),
	}, cfg.JWTSecret, log)
	if err != nil {
		zap.L().Fatal("Failed to create story handler", zap.Error(err))
	}

	// redisClient == nil - лимитер в памяти
	storyLimiter := handler.NewStoryRateLimiter(redisClient, cfg.RateLimitRPM, log)

	router := handler.NewRouter(handler.RouterConfig{
		Env:            cfg.Env,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		EnableMetrics:  true,
	}, storyHandler, storyLimiter, log)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	zap.L().Info("Server exiting")
}

func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.RedisAddr, err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	return client, nil
}
