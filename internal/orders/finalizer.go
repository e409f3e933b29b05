package orders

import (
	"context"

	"taquilla/internal/domain"
	"taquilla/internal/inventory"
	"taquilla/internal/payments"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"

	"github.com/google/uuid"
)

// Finalize runs every check and write in one transaction. A failure anywhere leaves no
// seat sold, no tier incremented and no order written; a conflicting writer makes the
// store re-run the whole function.
func (s *service) Finalize(ctx context.Context, req FinalizeRequest) (*domain.Order, error) {
	if req.UserID == uuid.Nil {
		return nil, errs.E(errs.InvalidArgument, "buyer id is required")
	}

	var order *domain.Order
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		order = nil
		now := s.clock.Now()

		quote, err := inventory.BuildQuote(tx, req.PresentationID, req.Type, req.Lines, inventory.QuoteOptions{
			Holder:     req.HolderSessionID,
			Now:        now,
			UnheldCode: errs.FailedPrecondition,
		})
		if err != nil {
			return err
		}
		if err := quote.Matches(req.Total, req.Currency); err != nil {
			return err
		}

		o := &domain.Order{
			ID:             uuid.New(),
			BuyerID:        req.UserID,
			Buyer:          req.Buyer,
			PresentationID: req.PresentationID,
			Type:           req.Type,
			Lines:          req.Lines.Clone(),
			Total:          quote.Total,
			Currency:       quote.Currency,
			Status:         domain.OrderCompleted,
			PurchasedAt:    now,
		}

		for _, tq := range quote.Tiers {
			tq.Tier.Sold += tq.Quantity
			if err := tx.PutTier(tq.Tier); err != nil {
				return err
			}
		}
		for _, seat := range quote.Seats {
			seat.MarkSold(req.UserID, o.ID)
			if err := tx.PutSeat(seat); err != nil {
				return err
			}
		}

		if req.IntentReference != "" {
			ref := req.IntentReference
			o.IntentReference = &ref
			if err := completeIntent(tx, req, o.ID); err != nil {
				return err
			}
		}

		if err := tx.PutOrder(o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogOrderFinalized(ctx, order.ID.String(), order.PresentationID.String(), order.BuyerID.String(), order.Total, order.Currency)
	s.cache.Invalidate(ctx, order.PresentationID)

	if err := s.notifier.OrderCompleted(ctx, order); err != nil {
		s.log.ErrorWithContext(ctx, "Order notification failed", err, map[string]interface{}{
			"order_id": order.ID.String(),
		})
	}
	return order, nil
}

func completeIntent(tx store.Tx, req FinalizeRequest, orderID uuid.UUID) error {
	intent, err := tx.GetIntent(req.IntentReference)
	if err != nil {
		return err
	}
	if intent.UserID != req.UserID {
		return errs.E(errs.FailedPrecondition, "payment intent %s belongs to another buyer", intent.Reference)
	}
	out, err := payments.Apply(intent, payments.Event{Kind: payments.EventFinalized, OrderID: orderID})
	if err != nil {
		return err
	}
	if !out.Applied {
		return errs.E(errs.FailedPrecondition, "payment intent %s is already %s", intent.Reference, intent.Status)
	}
	return tx.PutIntent(intent)
}
