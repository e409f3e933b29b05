package notifications

import (
	"context"
	"fmt"
	"time"

	"taquilla/internal/domain"
	"taquilla/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaProducerConfig contains configuration for the Kafka order publisher
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "order-notifications",
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// KafkaNotifier publishes order-completed messages to Kafka
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaNotifier dials the brokers and returns a synchronous publisher
func NewKafkaNotifier(config *KafkaProducerConfig, log *logger.Logger) (*KafkaNotifier, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps a buyer's messages in order
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Info("Kafka order publisher created", "brokers", config.Brokers, "topic", config.Topic)
	return NewKafkaNotifierWithProducer(producer, config.Topic, log), nil
}

// NewKafkaNotifierWithProducer wraps an existing producer
func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

func (k *KafkaNotifier) OrderCompleted(ctx context.Context, order *domain.Order) error {
	msg := NewOrderCompletedMessage(order)
	msg.Status = NotificationStatusQueued

	value, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     k.topic,
		Key:       sarama.StringEncoder(msg.GetPartitionKey()),
		Value:     sarama.ByteEncoder(value),
		Headers:   createHeaders(msg),
		Timestamp: msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to send notification to Kafka: %w", err)
	}

	k.log.DebugContext(ctx, "Order notification published",
		"topic", k.topic,
		"partition", partition,
		"offset", offset,
		"order_id", order.ID.String(),
	)
	return nil
}

func createHeaders(msg *OrderCompletedMessage) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(msg.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(msg.Type)},
		{Key: []byte("order_id"), Value: []byte(msg.OrderID.String())},
		{Key: []byte("presentation_id"), Value: []byte(msg.PresentationID.String())},
		{Key: []byte("producer"), Value: []byte("taquilla-orders")},
		{Key: []byte("created_at"), Value: []byte(msg.CreatedAt.Format(time.RFC3339))},
	}
}

func (k *KafkaNotifier) Close() error {
	if k.producer == nil {
		return nil
	}
	if err := k.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
