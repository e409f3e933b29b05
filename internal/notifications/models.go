package notifications

import (
	"encoding/json"
	"time"

	"taquilla/internal/domain"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeOrderCompleted NotificationType = "ORDER_COMPLETED"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusQueued  NotificationStatus = "QUEUED"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// OrderCompletedMessage is what the publishers put on the wire and the ticket mailer reads
type OrderCompletedMessage struct {
	ID   uuid.UUID        `json:"id"`
	Type NotificationType `json:"type"`

	OrderID        uuid.UUID           `json:"order_id"`
	BuyerID        uuid.UUID           `json:"buyer_id"`
	Buyer          domain.BuyerContact `json:"buyer"`
	PresentationID uuid.UUID           `json:"presentation_id"`
	VenueType      domain.VenueType    `json:"venue_type"`
	Lines          domain.LineItems    `json:"lines"`
	Total          int64               `json:"total"`
	Currency       string              `json:"currency"`
	PurchasedAt    time.Time           `json:"purchased_at"`

	// Status tracking
	Status     NotificationStatus `json:"status"`
	RetryCount int                `json:"retry_count"`
	LastError  *string            `json:"last_error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`
}

func NewOrderCompletedMessage(order *domain.Order) *OrderCompletedMessage {
	return &OrderCompletedMessage{
		ID:             uuid.New(),
		Type:           NotificationTypeOrderCompleted,
		OrderID:        order.ID,
		BuyerID:        order.BuyerID,
		Buyer:          order.Buyer,
		PresentationID: order.PresentationID,
		VenueType:      order.Type,
		Lines:          order.Lines.Clone(),
		Total:          order.Total,
		Currency:       order.Currency,
		PurchasedAt:    order.PurchasedAt,
		Status:         NotificationStatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}

// GetPartitionKey keeps one buyer's messages on one partition
func (m *OrderCompletedMessage) GetPartitionKey() string {
	return m.BuyerID.String()
}

func (m *OrderCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TicketCount counts the admissions the order grants
func (m *OrderCompletedMessage) TicketCount() int {
	n := 0
	for _, l := range m.Lines {
		switch v := l.(type) {
		case domain.GeneralLine:
			n += v.Quantity
		case domain.SeatLine:
			n++
		}
	}
	return n
}

func (m *OrderCompletedMessage) MarkSent() {
	now := time.Now().UTC()
	m.Status = NotificationStatusSent
	m.SentAt = &now
}

func (m *OrderCompletedMessage) MarkFailed(err error) {
	m.Status = NotificationStatusFailed
	m.RetryCount++
	errorStr := err.Error()
	m.LastError = &errorStr
}
