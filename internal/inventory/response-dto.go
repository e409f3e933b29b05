package inventory

import (
	"time"

	"taquilla/internal/domain"

	"github.com/google/uuid"
)

type TierResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unit_price"`
	Currency  string    `json:"currency"`
	Capacity  int       `json:"capacity"`
	Sold      int       `json:"sold"`
	Remaining int       `json:"remaining"`
}

type SeatResponse struct {
	ID            uuid.UUID         `json:"id"`
	Label         string            `json:"label"`
	Section       string            `json:"section"`
	Row           string            `json:"row"`
	Number        int               `json:"number"`
	UnitPrice     int64             `json:"unit_price"`
	Currency      string            `json:"currency"`
	Status        domain.SeatStatus `json:"status"`
	ReservedUntil *time.Time        `json:"reserved_until,omitempty"`
}

type AvailabilitySummary struct {
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Sold      int `json:"sold"`
}

// AvailabilityResponse is an advisory snapshot; holds and sales re-check everything
type AvailabilityResponse struct {
	Presentation domain.Presentation `json:"presentation"`
	Tiers        []TierResponse      `json:"tiers,omitempty"`
	Seats        []SeatResponse      `json:"seats,omitempty"`
	Summary      AvailabilitySummary `json:"summary"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

type GenerateSeatsResponse struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

func toTierResponse(t domain.PricingTier) TierResponse {
	return TierResponse{
		ID:        t.ID,
		Name:      t.Name,
		UnitPrice: t.UnitPrice,
		Currency:  t.Currency,
		Capacity:  t.Capacity,
		Sold:      t.Sold,
		Remaining: t.Remaining(),
	}
}

func toSeatResponse(s domain.Seat, now time.Time) SeatResponse {
	resp := SeatResponse{
		ID:        s.ID,
		Label:     s.Label(),
		Section:   s.Section,
		Row:       s.Row,
		Number:    s.Number,
		UnitPrice: s.UnitPrice,
		Currency:  s.Currency,
		Status:    s.EffectiveStatus(now),
	}
	if resp.Status == domain.SeatReserved {
		resp.ReservedUntil = s.ReservationExpiry
	}
	return resp
}
