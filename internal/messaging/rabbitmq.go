// Package messaging - очередь задач озвучки в RabbitMQ.
package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	// NarrationQueue - очередь задач озвучки страниц.
	NarrationQueue = "story_narration_tasks"

	dlxName       = "story_narration_tasks_dlx"
	dlqName       = "story_narration_tasks_dlq"
	dlqRoutingKey = "dlq"
)

// Connect подключается к RabbitMQ, повторяя попытки до maxRetries.
func Connect(ctx context.Context, url string, maxRetries int, delay time.Duration) (*amqp.Connection, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			log.Info().Int("attempt", attempt).Msg("Connected to RabbitMQ")
			return conn, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Int("max_retries", maxRetries).Msg("RabbitMQ connection failed, retrying...")
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, lastErr)
}

// DeclareTopology объявляет очередь вместе с dead-letter exchange и очередью.
// Nack без requeue отправляет сообщение в DLQ.
func DeclareTopology(ch *amqp.Channel, queue string) error {
	dlx, dlq := queue+"_dlx", queue+"_dlq"
	if queue == NarrationQueue {
		dlx, dlq = dlxName, dlqName
	}

	if err := ch.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLX '%s': %w", dlx, err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ '%s': %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, dlqRoutingKey, dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ '%s' to '%s': %w", dlq, dlx, err)
	}

	args := amqp.Table{
		"x-queue-mode":              "lazy",
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", queue, err)
	}
	log.Debug().Str("queue", queue).Str("dlq", dlq).Msg("Queue topology declared")
	return nil
}
