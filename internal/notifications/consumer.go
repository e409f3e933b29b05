package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"taquilla/pkg/logger"

	"github.com/IBM/sarama"
)

// ConsumerConfig configures the ticket mailer's consumer group
type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	Workers              int
	SessionTimeoutMs     int
	HeartbeatMs          int
	RetryBackoffMs       int
	MaxProcessingTime    time.Duration
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "taquilla-ticket-mailers",
		Topics:               []string{"order-notifications"},
		Workers:              2,
		SessionTimeoutMs:     30000,
		HeartbeatMs:          3000,
		RetryBackoffMs:       100,
		MaxProcessingTime:    5 * time.Minute,
		OffsetOldest:         true,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

// TicketMailer consumes order-completed messages and emails the tickets
type TicketMailer struct {
	group  sarama.ConsumerGroup
	config *ConsumerConfig
	mailer *mailHandler
	log    *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewTicketMailer(config *ConsumerConfig, email EmailService, log *logger.Logger) (*TicketMailer, error) {
	if config == nil {
		config = DefaultConsumerConfig()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	group, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &TicketMailer{
		group:  group,
		config: config,
		mailer: newMailHandler(email, config.MaxRetries, config.RetryBackoffDuration, log),
		log:    log,
	}, nil
}

// Start launches the workers; they run until Stop or ctx is cancelled
func (m *TicketMailer) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for err := range m.group.Errors() {
			m.log.Error("Consumer group error", "error", err.Error())
		}
	}()

	workers := m.config.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go func(workerID int) {
			defer m.wg.Done()
			m.runWorker(ctx, workerID)
		}(i)
	}

	m.log.Info("Ticket mailer started", "workers", workers, "topics", m.config.Topics)
}

func (m *TicketMailer) runWorker(ctx context.Context, workerID int) {
	handler := &consumerGroupHandler{workerID: workerID, mailer: m.mailer, log: m.log}
	for {
		if err := m.group.Consume(ctx, m.config.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			m.log.Warn("Error consuming messages", "worker", workerID, "error", err.Error())
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Stop cancels the workers, closes the group and waits for in-flight emails
func (m *TicketMailer) Stop() error {
	var err error
	m.once.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		if cerr := m.group.Close(); cerr != nil {
			err = fmt.Errorf("failed to close consumer group: %w", cerr)
		}
		m.wg.Wait()
		m.log.Info("Ticket mailer stopped")
	})
	return err
}

type consumerGroupHandler struct {
	workerID int
	mailer   *mailHandler
	log      *logger.Logger
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Debug("Consumer group session started", "worker", h.workerID)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Debug("Consumer group session ended", "worker", h.workerID)
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			// A message that still fails after retries is logged and skipped; the order
			// itself is already final
			if err := h.mailer.Handle(session.Context(), message.Value); err != nil {
				h.log.ErrorWithContext(session.Context(), "Ticket email failed", err, map[string]interface{}{
					"worker":    h.workerID,
					"partition": message.Partition,
					"offset":    message.Offset,
				})
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// mailHandler decodes one message and sends its email with exponential backoff
type mailHandler struct {
	email      EmailService
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger
}

func newMailHandler(email EmailService, maxRetries int, backoff time.Duration, log *logger.Logger) *mailHandler {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &mailHandler{email: email, maxRetries: maxRetries, backoff: backoff, log: log}
}

func (h *mailHandler) Handle(ctx context.Context, value []byte) error {
	var msg OrderCompletedMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	if msg.Type != NotificationTypeOrderCompleted {
		h.log.DebugContext(ctx, "Skipping notification", "type", string(msg.Type))
		return nil
	}
	if msg.Buyer.Email == "" {
		return fmt.Errorf("order %s has no buyer email", msg.OrderID)
	}

	for attempt := 0; ; attempt++ {
		err := h.email.SendOrderConfirmation(ctx, &msg)
		if err == nil {
			msg.MarkSent()
			return nil
		}
		msg.MarkFailed(err)
		if attempt >= h.maxRetries {
			return fmt.Errorf("giving up after %d attempts: %w", msg.RetryCount, err)
		}

		delay := h.backoff * time.Duration(1<<attempt)
		h.log.WarnContext(ctx, "Retrying ticket email",
			"order_id", msg.OrderID.String(),
			"attempt", attempt+1,
			"delay", delay.String(),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
