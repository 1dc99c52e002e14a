package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storybook-server/internal/ai"
	"storybook-server/internal/models"
	"storybook-server/internal/normalizer"
	"storybook-server/internal/prompts"
)

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
)

// StoryGenerator turns story params into a normalized StoryRecord.
type StoryGenerator struct {
	ai      ai.Client
	catalog *prompts.Catalog
	profile string
	params  ai.GenerationParams
	logger  *zap.Logger
	now     func() time.Time
}

// NewStoryGenerator. profile - имя профиля из каталога промтов ("" = default_profile).
func NewStoryGenerator(client ai.Client, catalog *prompts.Catalog, profile string, logger *zap.Logger) (*StoryGenerator, error) {
	if _, err := catalog.Profile(profile); err != nil {
		return nil, err
	}
	return &StoryGenerator{
		ai:      client,
		catalog: catalog,
		profile: profile,
		params: ai.GenerationParams{
			Temperature: ai.Float64(defaultTemperature),
			MaxTokens:   ai.Int(defaultMaxTokens),
		},
		logger: logger.Named("StoryGenerator"),
		now:    time.Now,
	}, nil
}

// GenerateStory fills gen in place and returns it. On failure gen carries the
// error and, when the provider answered, its raw text.
func (s *StoryGenerator) GenerateStory(ctx context.Context, gen *models.Generation) (*models.Generation, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: generation is nil", models.ErrInvalidInput)
	}
	log := s.logger.With(zap.String("generation_id", gen.ID.String()), zap.String("user_id", gen.UserID))

	gen.Status = models.GenerationStatusPending
	gen.StartedAt = s.now()
	gen.Params = gen.Params.WithDefaults()
	if err := gen.Params.Validate(); err != nil {
		gen.Fail(err, s.now())
		return gen, err
	}

	// профиль проверен в конструкторе
	profile, _ := s.catalog.Profile(s.profile)
	userPrompt, err := s.catalog.RenderUser(profile.Name, gen.Params)
	if err != nil {
		gen.Fail(err, s.now())
		return gen, err
	}

	log.Info("Generating story", zap.String("profile", profile.Name), zap.String("language", gen.Params.Language))
	text, usage, err := s.ai.GenerateText(ctx, gen.UserID, s.catalog.System, userPrompt, s.params)
	if err != nil {
		if !errors.Is(err, ai.ErrAIGenerationFailed) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", ai.ErrAIGenerationFailed, err)
		}
		log.Error("Text provider failed", zap.Error(err))
		gen.Fail(err, s.now())
		return gen, err
	}

	gen.RawResponse = text
	gen.Usage = models.TokenUsage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		EstimatedCostUSD: usage.EstimatedCostUSD,
	}

	record, err := normalizer.New(profile).Parse(text)
	if err != nil {
		log.Warn("Model response rejected",
			zap.String("kind", normalizer.Kind(err)),
			zap.Error(err),
			zap.Int("raw_len", len(text)),
		)
		gen.Fail(err, s.now())
		return gen, err
	}
	record.Language = gen.Params.Language

	gen.Succeed(record, s.now())
	log.Info("Story generated",
		zap.String("title", record.Title),
		zap.Int("illustrations", len(record.SuggestedIllustrations)),
		zap.Int("total_tokens", gen.Usage.TotalTokens),
		zap.Duration("duration", gen.CompletedAt.Sub(gen.StartedAt)),
	)
	return gen, nil
}
