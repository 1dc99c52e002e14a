package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

// RabbitMQNarrationPublisher публикует задачи озвучки в durable очередь.
type RabbitMQNarrationPublisher struct {
	ch    *amqp.Channel
	queue string
	mu    sync.Mutex
}

var _ interfaces.NarrationPublisher = (*RabbitMQNarrationPublisher)(nil)

// NewNarrationPublisher открывает свой канал и объявляет очередь.
func NewNarrationPublisher(conn *amqp.Connection, queue string) (*RabbitMQNarrationPublisher, error) {
	if conn == nil {
		return nil, errors.New("rabbitmq connection is nil")
	}
	if queue == "" {
		queue = NarrationQueue
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open a channel")
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := DeclareTopology(ch, queue); err != nil {
		_ = ch.Close()
		log.Error().Err(err).Str("queue", queue).Msg("Failed to declare narration queue")
		return nil, err
	}
	log.Info().Str("queue", queue).Msg("Narration publisher ready")
	return &RabbitMQNarrationPublisher{ch: ch, queue: queue}, nil
}

func (p *RabbitMQNarrationPublisher) PublishNarrationTask(ctx context.Context, task models.NarrationTask) error {
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal narration task: %w", err)
	}

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = имя очереди
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    task.TaskID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("task_id", task.TaskID).Str("story_id", task.StoryID.String()).Msg("Failed to publish narration task")
		return fmt.Errorf("failed to publish narration task: %w", err)
	}

	log.Debug().Str("task_id", task.TaskID).Str("story_id", task.StoryID.String()).Int("page", task.PageNumber).Msg("Narration task published")
	return nil
}

// Close закрывает канал.
func (p *RabbitMQNarrationPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
