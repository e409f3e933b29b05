package reservations

import (
	"time"

	"taquilla/internal/domain"

	"github.com/google/uuid"
)

type HeldSeat struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	Section   string    `json:"section"`
	UnitPrice int64     `json:"unit_price"`
	Currency  string    `json:"currency"`
}

// HoldResult carries what the client needs to run its countdown
type HoldResult struct {
	PresentationID  uuid.UUID  `json:"presentation_id"`
	HolderSessionID string     `json:"holder_session_id"`
	Seats           []HeldSeat `json:"seats"`
	Total           int64      `json:"total"`
	Currency        string     `json:"currency"`
	ExpiresAt       time.Time  `json:"expires_at"`
	HoldSeconds     int        `json:"hold_seconds"`
}

type ReleaseResult struct {
	Released int `json:"released"`
}

func toHeldSeat(s *domain.Seat) HeldSeat {
	return HeldSeat{
		ID:        s.ID,
		Label:     s.Label(),
		Section:   s.Section,
		UnitPrice: s.UnitPrice,
		Currency:  s.Currency,
	}
}
