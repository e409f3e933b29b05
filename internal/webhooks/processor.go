package webhooks

import (
	"context"

	"taquilla/internal/domain"
	"taquilla/internal/orders"
	"taquilla/internal/payments"
	"taquilla/internal/shared/errs"
	"taquilla/pkg/logger"

	"github.com/google/uuid"
)

// HoldReleaser gives back seats still reserved by a holder
type HoldReleaser interface {
	Release(ctx context.Context, presentationID uuid.UUID, seatIDs []uuid.UUID, holder string) (int, error)
}

// Processor drives the ledger and the finalizer from gateway notifications. An error is
// returned only when the ledger could not record the event, so the gateway retries.
type Processor struct {
	ledger    payments.Service
	finalizer orders.Service
	holds     HoldReleaser
	log       *logger.Logger
}

func NewProcessor(ledger payments.Service, finalizer orders.Service, holds HoldReleaser, log *logger.Logger) *Processor {
	return &Processor{
		ledger:    ledger,
		finalizer: finalizer,
		holds:     holds,
		log:       log,
	}
}

func (p *Processor) Handle(ctx context.Context, n Notification) (Outcome, error) {
	kind, ok := eventKind(n.Status)
	if !ok {
		p.log.InfoContext(ctx, "Webhook status ignored", "reference", n.Reference, "status", n.Status)
		return OutcomeIgnored, nil
	}

	intent, out, err := p.ledger.Transition(ctx, n.Reference, payments.Event{Kind: kind, TransactionID: n.TransactionID})
	switch {
	case errs.Has(err, errs.NotFound):
		p.log.WarnContext(ctx, "Webhook for unknown payment intent", "reference", n.Reference, "status", n.Status)
		return OutcomeUnknownReference, nil
	case err != nil:
		return "", err
	case !out.Applied:
		return OutcomeDuplicate, nil
	case kind == payments.EventPaymentFailed:
		p.releaseHolds(ctx, intent)
		return OutcomePaymentFailed, nil
	}

	// pending -> processing was applied by this delivery, so it alone finalizes
	order, err := p.finalizer.Finalize(ctx, orders.FromIntent(intent))
	if err == nil {
		p.log.InfoContext(ctx, "Payment finalized", "reference", n.Reference, "order_id", order.ID.String())
		return OutcomeFinalized, nil
	}

	p.log.ErrorWithContext(ctx, "Finalize failed after payment capture", err, map[string]interface{}{
		"reference": n.Reference,
	})
	_, _, terr := p.ledger.Transition(ctx, n.Reference, payments.Event{
		Kind:   payments.EventFinalizeFailed,
		Detail: errs.MessageOf(err),
	})
	switch {
	case errs.Has(terr, errs.FailedPrecondition):
		// The intent already left processing, so another path finished it
		return OutcomeDuplicate, nil
	case terr != nil:
		return "", terr
	}
	return OutcomeFinalizeFailed, nil
}

// releaseHolds frees the seats of a failed payment right away instead of at hold expiry.
// The failure is already recorded, so errors are only logged.
func (p *Processor) releaseHolds(ctx context.Context, intent *domain.PaymentIntent) {
	payload := intent.Payload
	if p.holds == nil || payload.Type != domain.VenueNumbered || payload.HolderSessionID == "" {
		return
	}
	var seatIDs []uuid.UUID
	for _, line := range payload.Lines {
		if l, ok := line.(domain.SeatLine); ok {
			seatIDs = append(seatIDs, l.SeatID)
		}
	}
	if len(seatIDs) == 0 {
		return
	}

	released, err := p.holds.Release(ctx, payload.PresentationID, seatIDs, payload.HolderSessionID)
	if err != nil {
		p.log.ErrorWithContext(ctx, "Failed to release holds of failed payment", err, map[string]interface{}{
			"reference": intent.Reference,
		})
		return
	}
	p.log.InfoContext(ctx, "Released holds of failed payment", "reference", intent.Reference, "seats", released)
}
