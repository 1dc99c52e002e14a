package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storybook-server/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (h *StoryHandler) saveStory(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	var req models.SaveStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}
	id, err := h.deps.Library.SaveStory(c.Request.Context(), userID, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SaveStoryResponse{Success: true, StoryID: id})
}

func (h *StoryHandler) listStories(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			handleServiceError(c, fmt.Errorf("%w: limit must be between 1 and %d", models.ErrInvalidInput, maxListLimit))
			return
		}
	}

	resp, err := h.deps.Library.ListUserStories(c.Request.Context(), userID, c.Query("cursor"), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StoryHandler) getStory(c *gin.Context) {
	id, err := parseStoryID(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	story, err := h.deps.Library.GetStory(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) deleteStory(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	id, err := parseStoryID(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if err := h.deps.Library.DeleteStory(c.Request.Context(), userID, id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StoryHandler) narrateStory(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	id, err := parseStoryID(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	queued, err := h.deps.Narration.EnqueueStoryNarration(c.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}

func (h *StoryHandler) getMedia(c *gin.Context) {
	obj, err := h.deps.Media.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}
