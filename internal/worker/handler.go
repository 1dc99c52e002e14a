// Package worker обрабатывает задачи озвучки из очереди.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"storybook-server/internal/messaging"
	"storybook-server/internal/models"
	"storybook-server/internal/speech"
)

// PageNarrator озвучивает одну страницу.
type PageNarrator interface {
	NarratePage(ctx context.Context, task models.NarrationTask) error
}

// Handler разбирает сообщение и решает, подтверждать его или отправлять в DLQ.
type Handler struct {
	narrator    PageNarrator
	taskTimeout time.Duration
	logger      *zap.Logger
}

var _ messaging.DeliveryHandler = (*Handler)(nil)

func NewHandler(narrator PageNarrator, taskTimeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{narrator: narrator, taskTimeout: taskTimeout, logger: logger.Named("NarrationHandler")}
}

// HandleDelivery возвращает true, если сообщение нужно подтвердить.
// Битые сообщения и задачи для удаленных страниц подтверждаются: повтор им не поможет.
func (h *Handler) HandleDelivery(ctx context.Context, d amqp.Delivery) bool {
	tasksReceived.Inc()

	var task models.NarrationTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		h.logger.Error("Failed to decode narration task, dropping", zap.String("message_id", d.MessageId), zap.Error(err))
		tasksFailed.WithLabelValues("bad_payload").Inc()
		return true
	}
	if task.TaskID == "" {
		task.TaskID = d.MessageId
	}
	log := h.logger.With(zap.String("task_id", task.TaskID), zap.String("story_id", task.StoryID.String()), zap.Int("page", task.PageNumber))

	// остановка воркера не прерывает начатую озвучку, ее ограничивает только taskTimeout
	taskCtx := context.WithoutCancel(ctx)
	if h.taskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, h.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	err := h.narrator.NarratePage(taskCtx, task)
	taskDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		tasksSucceeded.Inc()
		return true
	}

	reason := failureReason(err)
	tasksFailed.WithLabelValues(reason).Inc()
	switch reason {
	case "invalid_task", "page_gone":
		log.Warn("Narration task dropped", zap.String("reason", reason), zap.Error(err))
		return true
	default:
		log.Error("Narration task failed", zap.String("reason", reason), zap.Error(err))
		return false
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "page_gone"
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid_task"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, speech.ErrSpeechGenerationFailed):
		return "synthesis"
	default:
		return "other"
	}
}
