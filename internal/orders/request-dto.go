package orders

import (
	"taquilla/internal/domain"

	"github.com/google/uuid"
)

// FinalizeRequest is a confirmed purchase to turn into sold inventory and an order
type FinalizeRequest struct {
	UserID          uuid.UUID
	PresentationID  uuid.UUID
	Type            domain.VenueType
	Lines           domain.LineItems
	Total           int64
	Currency        string
	Buyer           domain.BuyerContact
	HolderSessionID string
	// IntentReference, when set, is moved to completed in the same transaction
	IntentReference string
}

// FromIntent builds the finalize request for a paid intent
func FromIntent(intent *domain.PaymentIntent) FinalizeRequest {
	return FinalizeRequest{
		UserID:          intent.UserID,
		PresentationID:  intent.Payload.PresentationID,
		Type:            intent.Payload.Type,
		Lines:           intent.Payload.Lines.Clone(),
		Total:           intent.Payload.Total,
		Currency:        intent.Payload.Currency,
		Buyer:           intent.Buyer,
		HolderSessionID: intent.Payload.HolderSessionID,
		IntentReference: intent.Reference,
	}
}

type VoidRequest struct {
	OrderIDs []string `json:"order_ids" binding:"required,min=1,max=200,dive,uuid"`
}
