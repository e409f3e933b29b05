package notifications

import (
	"context"
	"fmt"
	"strings"

	"taquilla/internal/domain"
	"taquilla/internal/orders"
	"taquilla/internal/shared/config"
	"taquilla/pkg/logger"
)

// Publisher announces completed orders and owns its transport
type Publisher interface {
	orders.Notifier
	Close() error
}

var (
	_ Publisher = (*KafkaNotifier)(nil)
	_ Publisher = (*RabbitMQNotifier)(nil)
	_ Publisher = (*LogNotifier)(nil)
)

// LogNotifier only logs; it is the default when no broker is configured
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) OrderCompleted(ctx context.Context, order *domain.Order) error {
	msg := NewOrderCompletedMessage(order)
	n.log.InfoContext(ctx, "Order completed",
		"order_id", order.ID.String(),
		"buyer_email", order.Buyer.Email,
		"tickets", msg.TicketCount(),
		"total", FormatMoney(order.Total, order.Currency),
	)
	return nil
}

func (n *LogNotifier) Close() error { return nil }

// NewPublisher builds the publisher selected by cfg.Driver
func NewPublisher(cfg config.NotificationConfig, log *logger.Logger) (Publisher, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "log":
		return NewLogNotifier(log), nil
	case "kafka":
		producerConfig := DefaultKafkaProducerConfig()
		if len(cfg.KafkaBrokers) > 0 {
			producerConfig.Brokers = cfg.KafkaBrokers
		}
		if cfg.KafkaTopic != "" {
			producerConfig.Topic = cfg.KafkaTopic
		}
		return NewKafkaNotifier(producerConfig, log)
	case "rabbitmq":
		if cfg.RabbitMQURL == "" {
			return nil, fmt.Errorf("rabbitmq notifier requires RABBITMQ_URL")
		}
		return NewRabbitMQNotifier(cfg.RabbitMQURL, cfg.RabbitMQQueue, log), nil
	default:
		return nil, fmt.Errorf("unknown notifier driver %q", cfg.Driver)
	}
}

// NewEmailService returns an SMTP sender, or a logging one when SMTP_HOST is unset
func NewEmailService(cfg config.EmailConfig, log *logger.Logger) (EmailService, error) {
	if cfg.SMTPHost == "" {
		log.Warn("SMTP not configured, ticket emails will only be logged")
		return NewLogEmailService(log), nil
	}
	return NewSMTPEmailService(&SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
		UseTLS:    true,
	}, log)
}

// NewTicketMailerFromConfig wires the Kafka consumer group to the configured email sender
func NewTicketMailerFromConfig(cfg config.NotificationConfig, email EmailService, log *logger.Logger) (*TicketMailer, error) {
	if !strings.EqualFold(cfg.Driver, "kafka") {
		return nil, fmt.Errorf("ticket mailer needs the kafka notifier driver, got %q", cfg.Driver)
	}
	consumerConfig := DefaultConsumerConfig()
	if len(cfg.KafkaBrokers) > 0 {
		consumerConfig.Brokers = cfg.KafkaBrokers
	}
	if cfg.KafkaTopic != "" {
		consumerConfig.Topics = []string{cfg.KafkaTopic}
	}
	if cfg.ConsumerGroupID != "" {
		consumerConfig.GroupID = cfg.ConsumerGroupID
	}
	if cfg.ConsumerWorkers > 0 {
		consumerConfig.Workers = cfg.ConsumerWorkers
	}
	return NewTicketMailer(consumerConfig, email, log)
}
