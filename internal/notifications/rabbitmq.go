package notifications

import (
	"context"
	"fmt"
	"time"

	"taquilla/internal/domain"
	"taquilla/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQNotifier publishes order-completed messages to a durable queue, dialing the broker
// once per message
type RabbitMQNotifier struct {
	url   string
	queue string
	log   *logger.Logger
}

func NewRabbitMQNotifier(url, queue string, log *logger.Logger) *RabbitMQNotifier {
	if queue == "" {
		queue = "order.completed"
	}
	return &RabbitMQNotifier{url: url, queue: queue, log: log}
}

func (r *RabbitMQNotifier) OrderCompleted(ctx context.Context, order *domain.Order) error {
	body, err := NewOrderCompletedMessage(order).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		r.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		r.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    order.ID.String(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}

	r.log.DebugContext(ctx, "Order notification published", "queue", r.queue, "order_id", order.ID.String())
	return nil
}

func (r *RabbitMQNotifier) Close() error {
	return nil
}
