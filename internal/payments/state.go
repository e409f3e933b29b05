package payments

import (
	"taquilla/internal/domain"
	"taquilla/internal/shared/errs"

	"github.com/google/uuid"
)

type EventKind string

const (
	// Webhook-driven events
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"

	// Finalizer-driven events
	EventFinalized      EventKind = "finalized"
	EventFinalizeFailed EventKind = "finalize_failed"
)

// Event moves a payment intent through its lifecycle
type Event struct {
	Kind          EventKind
	TransactionID string
	OrderID       uuid.UUID
	Detail        string
}

// Outcome reports what Apply did
type Outcome struct {
	Applied bool
	From    domain.IntentStatus
	To      domain.IntentStatus
	// NeedsReview flags an ignored event that a human should look at
	NeedsReview bool
}

// Apply runs one event through the intent state machine, mutating intent only when the
// transition applies. Redelivered events are reported as not applied rather than as errors.
func Apply(intent *domain.PaymentIntent, ev Event) (Outcome, error) {
	from := intent.Status
	out := Outcome{From: from, To: from}

	switch ev.Kind {
	case EventPaymentSucceeded:
		switch {
		case from == domain.IntentPending:
			setTransaction(intent, ev.TransactionID)
			return out.to(intent, domain.IntentProcessing), nil
		case from == domain.IntentFailed:
			// Funds reported captured after a failure report
			out.NeedsReview = true
			return out, nil
		case from == domain.IntentProcessing, from.IsTerminal():
			return out, nil
		}

	case EventPaymentFailed:
		switch {
		case from == domain.IntentPending, from == domain.IntentProcessing:
			setTransaction(intent, ev.TransactionID)
			return out.to(intent, domain.IntentFailed), nil
		case from == domain.IntentFailed:
			return out, nil
		case from.IsTerminal():
			// Captured funds reported failed afterwards
			out.NeedsReview = true
			return out, nil
		}

	case EventFinalized:
		if from == domain.IntentProcessing {
			if ev.OrderID == uuid.Nil {
				return out, errs.E(errs.InvalidArgument, "finalized event without order id")
			}
			orderID := ev.OrderID
			intent.OrderID = &orderID
			intent.ErrorDetail = nil
			return out.to(intent, domain.IntentCompleted), nil
		}

	case EventFinalizeFailed:
		if from == domain.IntentProcessing {
			detail := ev.Detail
			intent.ErrorDetail = &detail
			return out.to(intent, domain.IntentErrorGeneratingTickets), nil
		}

	default:
		return out, errs.E(errs.InvalidArgument, "unknown payment event %q", ev.Kind)
	}

	return out, errs.E(errs.FailedPrecondition, "payment intent %s cannot take %s while %s", intent.Reference, ev.Kind, from)
}

func (o Outcome) to(intent *domain.PaymentIntent, status domain.IntentStatus) Outcome {
	intent.Status = status
	o.Applied = true
	o.To = status
	return o
}

func setTransaction(intent *domain.PaymentIntent, txID string) {
	if txID == "" {
		return
	}
	id := txID
	intent.GatewayTransactionID = &id
}
