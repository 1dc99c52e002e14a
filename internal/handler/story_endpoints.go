package handler

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storybook-server/internal/models"
)

func (h *StoryHandler) generateStory(c *gin.Context) {
	var params models.StoryParams
	if err := c.ShouldBindJSON(&params); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}

	gen := models.NewGeneration(userIDFromContext(c), params)
	result, err := h.deps.Generator.GenerateStory(c.Request.Context(), gen)
	if err != nil {
		storiesGeneratedTotal.WithLabelValues("failed").Inc()
		h.logger.Warn("Story generation failed", zap.String("generation_id", gen.ID.String()), zap.Error(err))
		if result == nil {
			result = gen
		}
		handleGenerationError(c, result, err)
		return
	}
	storiesGeneratedTotal.WithLabelValues("succeeded").Inc()
	c.JSON(http.StatusOK, result.Story)
}

func (h *StoryHandler) generateIllustration(c *gin.Context) {
	var req models.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}
	url, err := h.deps.Illustration.Illustrate(c.Request.Context(), req.Prompt)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *StoryHandler) generateImage(c *gin.Context) {
	var req models.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}
	image, err := h.deps.Illustration.GenerateImage(c.Request.Context(), req.Prompt)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": image})
}

func (h *StoryHandler) synthesizeSpeech(c *gin.Context) {
	var req models.SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}
	audio, err := h.deps.Narration.Speak(c.Request.Context(), req.Text, req.Language)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio": base64.StdEncoding.EncodeToString(audio)})
}
