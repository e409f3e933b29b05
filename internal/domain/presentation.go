package domain

import (
	"time"

	"github.com/google/uuid"
)

type VenueType string

const (
	VenueGeneral  VenueType = "general"
	VenueNumbered VenueType = "numbered"
)

// IsValid checks if the venue type is known
func (v VenueType) IsValid() bool {
	switch v {
	case VenueGeneral, VenueNumbered:
		return true
	}
	return false
}

type PresentationStatus string

const (
	PresentationOnSale    PresentationStatus = "on_sale"
	PresentationPostponed PresentationStatus = "postponed"
	PresentationSoldOut   PresentationStatus = "sold_out"
	PresentationCancelled PresentationStatus = "cancelled"
)

// IsValid checks if the presentation status is known
func (s PresentationStatus) IsValid() bool {
	switch s {
	case PresentationOnSale, PresentationPostponed, PresentationSoldOut, PresentationCancelled:
		return true
	}
	return false
}

// Presentation is one scheduled occurrence of an event at a venue
type Presentation struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   uuid.UUID          `gorm:"type:uuid;index;not null" json:"event_id"`
	VenueID   uuid.UUID          `gorm:"type:uuid;not null" json:"venue_id"`
	VenueType VenueType          `gorm:"type:varchar(16);not null" json:"venue_type"`
	StartsAt  time.Time          `gorm:"not null" json:"starts_at"`
	Status    PresentationStatus `gorm:"type:varchar(16);not null;default:'on_sale'" json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (Presentation) TableName() string {
	return "presentations"
}

// IsOnSale reports whether buyers may hold or buy inventory for it
func (p *Presentation) IsOnSale() bool {
	return p.Status == PresentationOnSale
}

// PricingTier is a general-admission price category with a fixed capacity
type PricingTier struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PresentationID uuid.UUID `gorm:"type:uuid;index;not null" json:"presentation_id"`
	Name           string    `gorm:"not null" json:"name"`
	UnitPrice      int64     `gorm:"not null" json:"unit_price"`
	Currency       string    `gorm:"type:varchar(3);not null" json:"currency"`
	Capacity       int       `gorm:"not null;check:capacity >= 0" json:"capacity"`
	Sold           int       `gorm:"not null;default:0;check:sold >= 0" json:"sold"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PricingTier) TableName() string {
	return "pricing_tiers"
}

// Remaining returns the number of tickets still for sale
func (t *PricingTier) Remaining() int {
	return t.Capacity - t.Sold
}
