package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// DeliveryHandler обрабатывает одно сообщение. true - ack, false - nack без requeue.
type DeliveryHandler interface {
	HandleDelivery(ctx context.Context, d amqp.Delivery) bool
}

// HandlerFunc адаптер для функций.
type HandlerFunc func(ctx context.Context, d amqp.Delivery) bool

func (f HandlerFunc) HandleDelivery(ctx context.Context, d amqp.Delivery) bool { return f(ctx, d) }

// Consumer читает очередь и отдает сообщения обработчику по одному.
type Consumer struct {
	conn     *amqp.Connection
	queue    string
	prefetch int
	handler  DeliveryHandler
}

func NewConsumer(conn *amqp.Connection, queue string, prefetch int, handler DeliveryHandler) *Consumer {
	if queue == "" {
		queue = NarrationQueue
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Consumer{conn: conn, queue: queue, prefetch: prefetch, handler: handler}
}

// Run блокируется до отмены ctx или закрытия канала брокером.
// Отмена ctx прекращает прием новых сообщений; текущее обработчик дорабатывает сам.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := DeclareTopology(ch, c.queue); err != nil {
		return err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	tag := fmt.Sprintf("narration-consumer-%d", time.Now().UnixNano())
	msgs, err := ch.Consume(c.queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer on '%s': %w", c.queue, err)
	}
	log.Info().Str("queue", c.queue).Int("prefetch", c.prefetch).Msg("Consumer started, waiting for messages")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("queue", c.queue).Msg("Context cancelled, consumer stopping")
			_ = ch.Cancel(tag, false)
			return nil
		case d, ok := <-msgs:
			if !ok {
				log.Warn().Str("queue", c.queue).Msg("Delivery channel closed")
				return errors.New("delivery channel closed")
			}
			c.dispatch(ctx, d)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("message_id", d.MessageId).Msg("Panic in delivery handler")
			_ = d.Nack(false, false)
		}
	}()

	if c.handler.HandleDelivery(ctx, d) {
		if err := d.Ack(false); err != nil {
			log.Error().Err(err).Str("message_id", d.MessageId).Msg("Failed to ack message")
		}
		return
	}
	if err := d.Nack(false, false); err != nil {
		log.Error().Err(err).Str("message_id", d.MessageId).Msg("Failed to nack message")
	}
}
