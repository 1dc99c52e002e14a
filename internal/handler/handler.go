// Package handler HTTP API сервера историй на gin.
package handler

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/illustration"
	"storybook-server/internal/models"
)

// StoryGenerator генерирует историю по параметрам.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, gen *models.Generation) (*models.Generation, error)
}

// StoryLibrary сохраненные истории пользователей.
type StoryLibrary interface {
	SaveStory(ctx context.Context, userID string, req models.SaveStoryRequest) (uuid.UUID, error)
	GetStory(ctx context.Context, id uuid.UUID) (*models.StoryWithPages, error)
	ListUserStories(ctx context.Context, userID, cursor string, limit int) (*models.StoryListResponse, error)
	DeleteStory(ctx context.Context, userID string, id uuid.UUID) error
}

// Narration озвучка: синхронная для текста и фоновая для сохраненных историй.
type Narration interface {
	Speak(ctx context.Context, text, language string) ([]byte, error)
	EnqueueStoryNarration(ctx context.Context, userID string, storyID uuid.UUID) (int, error)
}

// MediaReader отдает медиа объекты по ключу.
type MediaReader interface {
	Open(ctx context.Context, key string) (*models.Object, error)
}

// Deps зависимости StoryHandler.
type Deps struct {
	Generator    StoryGenerator
	Illustration illustration.Service
	Library      StoryLibrary
	Narration    Narration
	Media        MediaReader
}

// StoryHandler обрабатывает HTTP запросы API историй.
type StoryHandler struct {
	deps     Deps
	verifier *JWTVerifier
	logger   *zap.Logger
}

func NewStoryHandler(deps Deps, jwtSecret string, logger *zap.Logger) (*StoryHandler, error) {
	verifier, err := NewJWTVerifier(jwtSecret, logger)
	if err != nil {
		return nil, err
	}
	return &StoryHandler{
		deps:     deps,
		verifier: verifier,
		logger:   logger.Named("StoryHandler"),
	}, nil
}

// RegisterRoutes регистрирует маршруты. storyLimiter может быть nil.
func (h *StoryHandler) RegisterRoutes(router *gin.Engine, storyLimiter gin.HandlerFunc) {
	optional := h.OptionalAuthMiddleware()
	required := h.AuthMiddleware()

	api := router.Group("/api")
	{
		storyChain := []gin.HandlerFunc{optional}
		if storyLimiter != nil {
			storyChain = append(storyChain, storyLimiter)
		}
		storyChain = append(storyChain, h.generateStory)
		api.POST("/story", storyChain...)

		api.POST("/illustration", optional, h.generateIllustration)
		api.POST("/generate-image", optional, h.generateImage)
		api.POST("/speech", optional, h.synthesizeSpeech)

		api.GET("/stories/:id", h.getStory)

		stories := api.Group("/stories", required)
		stories.POST("", h.saveStory)
		stories.GET("", h.listStories)
		stories.DELETE("/:id", h.deleteStory)
		stories.POST("/:id/narration", h.narrateStory)
	}

	router.GET("/media/*key", h.getMedia)
	router.HEAD("/media/*key", h.getMedia)
}

// --- Вспомогательные функции --- //

const userIDKey = "user_id"

// userIDFromContext возвращает "" для анонимного запроса.
func userIDFromContext(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func requireUserID(c *gin.Context) (string, error) {
	userID := userIDFromContext(c)
	if userID == "" {
		return "", models.ErrUnauthorized
	}
	return userID, nil
}

func parseStoryID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: story id must be a UUID", models.ErrInvalidInput)
	}
	return id, nil
}
