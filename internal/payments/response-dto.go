package payments

import (
	"time"

	"taquilla/internal/domain"

	"github.com/google/uuid"
)

type CreateIntentResponse struct {
	Reference   string              `json:"reference"`
	Status      domain.IntentStatus `json:"status"`
	RedirectURL string              `json:"redirect_url"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// IntentStatusResponse feeds the confirmation page; it is informational only
type IntentStatusResponse struct {
	Reference string              `json:"reference"`
	Status    domain.IntentStatus `json:"status"`
	Message   string              `json:"message"`
	OrderID   *uuid.UUID          `json:"order_id,omitempty"`
	Total     int64               `json:"total"`
	Currency  string              `json:"currency"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func statusMessage(status domain.IntentStatus) string {
	switch status {
	case domain.IntentPending, domain.IntentProcessing:
		return "payment could not be verified yet"
	case domain.IntentCompleted:
		return "payment confirmed, your tickets are on their way"
	case domain.IntentFailed:
		return "payment was not approved"
	case domain.IntentErrorGeneratingTickets:
		return "payment received; your tickets are under manual review"
	default:
		return ""
	}
}

func toStatusResponse(i *domain.PaymentIntent) *IntentStatusResponse {
	return &IntentStatusResponse{
		Reference: i.Reference,
		Status:    i.Status,
		Message:   statusMessage(i.Status),
		OrderID:   i.OrderID,
		Total:     i.Payload.Total,
		Currency:  i.Payload.Currency,
		UpdatedAt: i.UpdatedAt,
	}
}
