package payments

import (
	"testing"

	"taquilla/internal/domain"
	"taquilla/internal/shared/errs"

	"github.com/google/uuid"
)

func TestApply(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	tests := []struct {
		name        string
		from        domain.IntentStatus
		event       Event
		applied     bool
		to          domain.IntentStatus
		needsReview bool
		code        errs.Code
	}{
		{"paid while pending", domain.IntentPending, Event{Kind: EventPaymentSucceeded, TransactionID: "tx-1"}, true, domain.IntentProcessing, false, ""},
		{"paid redelivered while processing", domain.IntentProcessing, Event{Kind: EventPaymentSucceeded}, false, domain.IntentProcessing, false, ""},
		{"paid redelivered after completion", domain.IntentCompleted, Event{Kind: EventPaymentSucceeded}, false, domain.IntentCompleted, false, ""},
		{"paid redelivered after finalize error", domain.IntentErrorGeneratingTickets, Event{Kind: EventPaymentSucceeded}, false, domain.IntentErrorGeneratingTickets, false, ""},
		{"paid after failure", domain.IntentFailed, Event{Kind: EventPaymentSucceeded}, false, domain.IntentFailed, true, ""},
		{"failed while pending", domain.IntentPending, Event{Kind: EventPaymentFailed}, true, domain.IntentFailed, false, ""},
		{"failed while processing", domain.IntentProcessing, Event{Kind: EventPaymentFailed}, true, domain.IntentFailed, false, ""},
		{"failed redelivered", domain.IntentFailed, Event{Kind: EventPaymentFailed}, false, domain.IntentFailed, false, ""},
		{"failed after completion", domain.IntentCompleted, Event{Kind: EventPaymentFailed}, false, domain.IntentCompleted, true, ""},
		{"failed after finalize error", domain.IntentErrorGeneratingTickets, Event{Kind: EventPaymentFailed}, false, domain.IntentErrorGeneratingTickets, true, ""},
		{"finalized while processing", domain.IntentProcessing, Event{Kind: EventFinalized, OrderID: orderID}, true, domain.IntentCompleted, false, ""},
		{"finalized while pending", domain.IntentPending, Event{Kind: EventFinalized, OrderID: orderID}, false, domain.IntentPending, false, errs.FailedPrecondition},
		{"finalized twice", domain.IntentCompleted, Event{Kind: EventFinalized, OrderID: orderID}, false, domain.IntentCompleted, false, errs.FailedPrecondition},
		{"finalized without order", domain.IntentProcessing, Event{Kind: EventFinalized}, false, domain.IntentProcessing, false, errs.InvalidArgument},
		{"finalize failed while processing", domain.IntentProcessing, Event{Kind: EventFinalizeFailed, Detail: "sold out"}, true, domain.IntentErrorGeneratingTickets, false, ""},
		{"finalize failed while pending", domain.IntentPending, Event{Kind: EventFinalizeFailed}, false, domain.IntentPending, false, errs.FailedPrecondition},
		{"unknown event", domain.IntentPending, Event{Kind: "refunded"}, false, domain.IntentPending, false, errs.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := &domain.PaymentIntent{Reference: "ref", Status: tt.from}
			out, err := Apply(intent, tt.event)

			if tt.code != "" {
				if !errs.Has(err, tt.code) {
					t.Fatalf("expected %s, got %v", tt.code, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if out.Applied != tt.applied || out.To != tt.to || out.NeedsReview != tt.needsReview {
				t.Fatalf("expected applied=%v to=%s review=%v, got %+v", tt.applied, tt.to, tt.needsReview, out)
			}
			if intent.Status != tt.to {
				t.Fatalf("expected intent status %s, got %s", tt.to, intent.Status)
			}
		})
	}
}

func TestApply_RecordsDetails(t *testing.T) {
	t.Parallel()

	intent := &domain.PaymentIntent{Reference: "ref", Status: domain.IntentPending}
	if _, err := Apply(intent, Event{Kind: EventPaymentSucceeded, TransactionID: "gw-77"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if intent.GatewayTransactionID == nil || *intent.GatewayTransactionID != "gw-77" {
		t.Fatalf("expected transaction id recorded, got %v", intent.GatewayTransactionID)
	}

	if _, err := Apply(intent, Event{Kind: EventFinalizeFailed, Detail: "tier sold out"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if intent.ErrorDetail == nil || *intent.ErrorDetail != "tier sold out" {
		t.Fatalf("expected error detail recorded, got %v", intent.ErrorDetail)
	}
}
