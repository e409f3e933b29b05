package payments

import (
	"taquilla/internal/domain"
	"taquilla/internal/shared/errs"

	"github.com/google/uuid"
)

type BuyerRequest struct {
	Name  string `json:"name" binding:"required,max=120"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"required,max=32"`
}

// LineRequest is a tier line (tier_id + quantity) or a seat line (seat_id)
type LineRequest struct {
	Kind     string `json:"kind" binding:"required,oneof=general seat"`
	TierID   string `json:"tier_id" binding:"omitempty,uuid"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1,max=20"`
	SeatID   string `json:"seat_id" binding:"omitempty,uuid"`
}

type CreateIntentRequest struct {
	PresentationID  string        `json:"presentation_id" binding:"required,uuid"`
	Type            string        `json:"type" binding:"required,oneof=general numbered"`
	Lines           []LineRequest `json:"lines" binding:"required,min=1,max=50,dive"`
	Total           int64         `json:"total" binding:"min=0"`
	Currency        string        `json:"currency" binding:"required,len=3"`
	HolderSessionID string        `json:"holder_session_id" binding:"omitempty,max=128"`
	Buyer           BuyerRequest  `json:"buyer" binding:"required"`
}

// ToPayload converts the request into the purchase it describes
func (r CreateIntentRequest) ToPayload() (domain.PurchasePayload, error) {
	presentationID, err := uuid.Parse(r.PresentationID)
	if err != nil {
		return domain.PurchasePayload{}, errs.Wrap(errs.InvalidArgument, err, "invalid presentation ID")
	}

	lines := make(domain.LineItems, 0, len(r.Lines))
	for i, l := range r.Lines {
		switch domain.LineKind(l.Kind) {
		case domain.LineGeneral:
			tierID, err := uuid.Parse(l.TierID)
			if err != nil {
				return domain.PurchasePayload{}, errs.E(errs.InvalidArgument, "line %d: tier_id is required", i)
			}
			if l.Quantity < 1 {
				return domain.PurchasePayload{}, errs.E(errs.InvalidArgument, "line %d: quantity must be positive", i)
			}
			lines = append(lines, domain.GeneralLine{TierID: tierID, Quantity: l.Quantity})
		case domain.LineSeat:
			seatID, err := uuid.Parse(l.SeatID)
			if err != nil {
				return domain.PurchasePayload{}, errs.E(errs.InvalidArgument, "line %d: seat_id is required", i)
			}
			lines = append(lines, domain.SeatLine{SeatID: seatID})
		default:
			return domain.PurchasePayload{}, errs.E(errs.InvalidArgument, "line %d: unknown kind %q", i, l.Kind)
		}
	}

	return domain.PurchasePayload{
		PresentationID:  presentationID,
		Type:            domain.VenueType(r.Type),
		Lines:           lines,
		Total:           r.Total,
		Currency:        r.Currency,
		HolderSessionID: r.HolderSessionID,
	}, nil
}

func (b BuyerRequest) ToContact() domain.BuyerContact {
	return domain.BuyerContact{Name: b.Name, Email: b.Email, Phone: b.Phone}
}
