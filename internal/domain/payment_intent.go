package domain

import (
	"time"

	"github.com/google/uuid"
)

type IntentStatus string

const (
	IntentPending                IntentStatus = "pending"
	IntentProcessing             IntentStatus = "processing"
	IntentCompleted              IntentStatus = "completed"
	IntentFailed                 IntentStatus = "failed"
	IntentErrorGeneratingTickets IntentStatus = "error_generating_tickets"
)

// IsValid checks if the intent status is known
func (s IntentStatus) IsValid() bool {
	switch s {
	case IntentPending, IntentProcessing, IntentCompleted, IntentFailed, IntentErrorGeneratingTickets:
		return true
	}
	return false
}

// IsTerminal reports whether no further webhook event can move the intent
func (s IntentStatus) IsTerminal() bool {
	switch s {
	case IntentCompleted, IntentFailed, IntentErrorGeneratingTickets:
		return true
	}
	return false
}

// BuyerContact is the contact snapshot taken at checkout
type BuyerContact struct {
	Name  string `gorm:"not null;default:''" json:"name"`
	Email string `gorm:"not null;default:''" json:"email"`
	Phone string `gorm:"not null;default:''" json:"phone"`
}

// PurchasePayload is what the buyer is paying for
type PurchasePayload struct {
	PresentationID  uuid.UUID `gorm:"type:uuid;not null" json:"presentation_id"`
	Type            VenueType `gorm:"type:varchar(16);not null" json:"type"`
	Lines           LineItems `gorm:"not null" json:"lines"`
	Total           int64     `gorm:"not null" json:"total"`
	Currency        string    `gorm:"type:varchar(3);not null" json:"currency"`
	HolderSessionID string    `gorm:"type:varchar(192)" json:"holder_session_id,omitempty"`
}

// PaymentIntent records one attempt to pay, keyed by its reference
type PaymentIntent struct {
	Reference            string          `gorm:"type:varchar(64);primaryKey" json:"reference"`
	UserID               uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Buyer                BuyerContact    `gorm:"embedded;embeddedPrefix:buyer_" json:"buyer"`
	Payload              PurchasePayload `gorm:"embedded" json:"payload"`
	Status               IntentStatus    `gorm:"type:varchar(32);index;not null" json:"status"`
	OrderID              *uuid.UUID      `gorm:"type:uuid" json:"order_id,omitempty"`
	GatewayTransactionID *string         `gorm:"type:varchar(128)" json:"gateway_transaction_id,omitempty"`
	ErrorDetail          *string         `json:"error_detail,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}

// Clone returns a copy that shares no mutable state with i
func (i *PaymentIntent) Clone() *PaymentIntent {
	c := *i
	c.Payload.Lines = i.Payload.Lines.Clone()
	if i.OrderID != nil {
		v := *i.OrderID
		c.OrderID = &v
	}
	if i.GatewayTransactionID != nil {
		v := *i.GatewayTransactionID
		c.GatewayTransactionID = &v
	}
	if i.ErrorDetail != nil {
		v := *i.ErrorDetail
		c.ErrorDetail = &v
	}
	return &c
}
