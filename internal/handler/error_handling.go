package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storybook-server/internal/ai"
	"storybook-server/internal/illustration"
	"storybook-server/internal/models"
	"storybook-server/internal/normalizer"
	"storybook-server/internal/speech"
)

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: err.Error()}
	case errors.Is(err, models.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeUnauthorized, Message: "Token has expired"}
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenMalformed):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeUnauthorized, Message: "Token is invalid or malformed"}
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeUnauthorized, Message: "Authentication required"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Code: models.ErrCodeForbidden, Message: "Access denied"}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeNotFound, Message: "Resource not found"}
	case errors.Is(err, ai.ErrAIGenerationFailed),
		errors.Is(err, illustration.ErrImageGenerationFailed),
		errors.Is(err, speech.ErrSpeechGenerationFailed),
		errors.Is(err, models.ErrProviderUnavailable),
		errors.Is(err, normalizer.ErrNormalize):
		zap.L().Warn("Upstream provider error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		statusCode = http.StatusBadGateway
		errResp = models.ErrorResponse{Code: models.ErrCodeUpstream, Message: err.Error()}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.String("path", c.Request.URL.Path), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

// handleGenerationError отвечает клиенту на неудачную генерацию истории.
// Ошибки разбора ответа модели несут тип, причину и сырой текст.
func handleGenerationError(c *gin.Context, gen *models.Generation, err error) {
	if !errors.Is(err, normalizer.ErrNormalize) {
		handleServiceError(c, err)
		return
	}
	resp := models.GenerationErrorResponse{
		Error:   "Failed to generate story",
		Details: err.Error(),
		Type:    normalizer.Kind(err),
	}
	if gen != nil {
		resp.RawResponse = gen.RawResponse
	}
	if resp.RawResponse == "" {
		resp.RawResponse = normalizer.Diagnostic(err)
	}
	c.AbortWithStatusJSON(http.StatusBadGateway, resp)
}
