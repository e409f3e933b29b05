package webhooks

import (
	"strings"

	"taquilla/internal/payments"
)

// Notification is the gateway's payment-status callback
type Notification struct {
	Reference     string `json:"reference" validate:"required,max=64"`
	Status        string `json:"status" validate:"required,max=32"`
	TransactionID string `json:"transaction_id" validate:"omitempty,max=128"`
}

// Outcome describes how a notification was absorbed
type Outcome string

const (
	OutcomeFinalized        Outcome = "finalized"
	OutcomeFinalizeFailed   Outcome = "finalize_failed"
	OutcomePaymentFailed    Outcome = "payment_failed"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeIgnored          Outcome = "ignored"
	OutcomeUnknownReference Outcome = "unknown_reference"
)

type AckResponse struct {
	Reference string  `json:"reference"`
	Outcome   Outcome `json:"outcome"`
}

// eventKind maps a gateway status onto a ledger event. ok is false for statuses that are
// acknowledged and ignored.
func eventKind(status string) (payments.EventKind, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "approved", "succeeded", "completed":
		return payments.EventPaymentSucceeded, true
	case "failed", "declined", "rejected", "cancelled", "expired":
		return payments.EventPaymentFailed, true
	default:
		return "", false
	}
}
