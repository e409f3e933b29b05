package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatSold      SeatStatus = "sold"
)

// Seat is one numbered seat of a presentation
type Seat struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PresentationID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"presentation_id"`
	Section           string     `gorm:"not null" json:"section"`
	Row               string     `gorm:"not null" json:"row"`
	Number            int        `gorm:"not null" json:"number"`
	UnitPrice         int64      `gorm:"not null" json:"unit_price"`
	Currency          string     `gorm:"type:varchar(3);not null" json:"currency"`
	Status            SeatStatus `gorm:"type:varchar(16);not null;default:'available';index:idx_seats_status_expiry,priority:1" json:"status"`
	ReservationExpiry *time.Time `gorm:"index:idx_seats_status_expiry,priority:2" json:"reservation_expiry,omitempty"`
	ReservationHolder *string    `gorm:"type:varchar(192)" json:"-"`
	SoldTo            *uuid.UUID `gorm:"type:uuid" json:"-"`
	OrderID           *uuid.UUID `gorm:"type:uuid" json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Seat) TableName() string {
	return "seats"
}

// SeatID derives the identity of a seat from its position, so that generating the same
// range twice yields the same ids.
func SeatID(presentationID uuid.UUID, section, row string, number int) uuid.UUID {
	return uuid.NewSHA1(presentationID, []byte(fmt.Sprintf("%s|%s|%d", section, row, number)))
}

// Label is the human name of the seat, e.g. "A-1"
func (s *Seat) Label() string {
	return fmt.Sprintf("%s-%d", s.Row, s.Number)
}

// HoldExpired reports whether the seat carries a reservation that is no longer binding
func (s *Seat) HoldExpired(now time.Time) bool {
	return s.Status == SeatReserved && s.ReservationExpiry != nil && s.ReservationExpiry.Before(now)
}

// EffectiveStatus evaluates the expiry predicate: a lapsed hold reads as available
func (s *Seat) EffectiveStatus(now time.Time) SeatStatus {
	if s.HoldExpired(now) {
		return SeatAvailable
	}
	return s.Status
}

// AvailableAt reports whether the seat can be held at the given instant
func (s *Seat) AvailableAt(now time.Time) bool {
	return s.EffectiveStatus(now) == SeatAvailable
}

// HeldBy reports whether holder has a live reservation on the seat
func (s *Seat) HeldBy(holder string, now time.Time) bool {
	return s.Status == SeatReserved &&
		s.ReservationHolder != nil && *s.ReservationHolder == holder &&
		!s.HoldExpired(now)
}

// Reserve places a hold until the given instant
func (s *Seat) Reserve(holder string, until time.Time) {
	h := holder
	u := until
	s.Status = SeatReserved
	s.ReservationHolder = &h
	s.ReservationExpiry = &u
}

// ClearReservation returns a held seat to available
func (s *Seat) ClearReservation() {
	s.Status = SeatAvailable
	s.ReservationHolder = nil
	s.ReservationExpiry = nil
}

// MarkSold records the sale; the seat is immutable afterwards
func (s *Seat) MarkSold(buyer, order uuid.UUID) {
	b := buyer
	o := order
	s.Status = SeatSold
	s.ReservationHolder = nil
	s.ReservationExpiry = nil
	s.SoldTo = &b
	s.OrderID = &o
}

// Restore is the administrative override used when an order is voided
func (s *Seat) Restore() {
	s.ClearReservation()
	s.SoldTo = nil
	s.OrderID = nil
}
