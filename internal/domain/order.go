package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is the permanent record of a completed sale. It is stored both in the global
// orders table and in the buyer's mirror.
type Order struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID         uuid.UUID    `gorm:"type:uuid;index;not null" json:"buyer_id"`
	Buyer           BuyerContact `gorm:"embedded;embeddedPrefix:buyer_" json:"buyer"`
	PresentationID  uuid.UUID    `gorm:"type:uuid;index;not null" json:"presentation_id"`
	Type            VenueType    `gorm:"type:varchar(16);not null" json:"type"`
	Lines           LineItems    `gorm:"not null" json:"lines"`
	Total           int64        `gorm:"not null" json:"total"`
	Currency        string       `gorm:"type:varchar(3);not null" json:"currency"`
	IntentReference *string      `gorm:"type:varchar(64);uniqueIndex" json:"intent_reference,omitempty"`
	Status          OrderStatus  `gorm:"type:varchar(16);index;not null" json:"status"`
	PurchasedAt     time.Time    `gorm:"not null" json:"purchased_at"`
	CancelledAt     *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// Clone returns a copy that shares no mutable state with o
func (o *Order) Clone() *Order {
	c := *o
	c.Lines = o.Lines.Clone()
	if o.IntentReference != nil {
		v := *o.IntentReference
		c.IntentReference = &v
	}
	if o.CancelledAt != nil {
		v := *o.CancelledAt
		c.CancelledAt = &v
	}
	return &c
}

// SeatIDs lists the seats sold by the order
func (o *Order) SeatIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, l := range o.Lines {
		if s, ok := l.(SeatLine); ok {
			ids = append(ids, s.SeatID)
		}
	}
	return ids
}
