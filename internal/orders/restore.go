package orders

import (
	"context"

	"taquilla/internal/domain"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"

	"github.com/google/uuid"
)

const voidAllPageSize = 200

// Void cancels each order in its own transaction. Orders already cancelled are skipped, so
// repeating a void is harmless.
func (s *service) Void(ctx context.Context, orderIDs []uuid.UUID) (*VoidResult, error) {
	ids := store.SortedIDs(orderIDs)
	if len(ids) == 0 {
		return nil, errs.E(errs.InvalidArgument, "at least one order id is required")
	}

	result := newVoidResult()
	touched := make(map[uuid.UUID]struct{})
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		presentationID, skipped, err := s.voidOne(ctx, id)
		switch {
		case err != nil:
			s.log.ErrorWithContext(ctx, "Failed to void order", err, map[string]interface{}{
				"order_id": id.String(),
			})
			result.Failed = append(result.Failed, VoidFailure{OrderID: id, Reason: errs.MessageOf(err)})
		case skipped:
			result.Skipped = append(result.Skipped, id)
		default:
			result.Voided = append(result.Voided, id)
			touched[presentationID] = struct{}{}
			s.log.LogOrderVoided(ctx, id.String(), presentationID.String())
		}
	}

	for presentationID := range touched {
		s.cache.Invalidate(ctx, presentationID)
	}
	return result, nil
}

// VoidAll voids every completed order. Orders are listed in pages from committed state and
// each is re-read inside its own transaction. Voided orders leave the completed listing, and
// failed ones are excluded by id, so every page starts from the top.
func (s *service) VoidAll(ctx context.Context) (*VoidResult, error) {
	total := newVoidResult()
	var failed []uuid.UUID

	for {
		page, err := s.store.ListOrders(ctx, store.OrderFilter{
			Status:     domain.OrderCompleted,
			ExcludeIDs: failed,
			Limit:      voidAllPageSize,
		})
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			return total, nil
		}

		ids := make([]uuid.UUID, 0, len(page))
		for _, o := range page {
			ids = append(ids, o.ID)
		}

		result, err := s.Void(ctx, ids)
		if result != nil {
			total.Voided = append(total.Voided, result.Voided...)
			total.Skipped = append(total.Skipped, result.Skipped...)
			total.Failed = append(total.Failed, result.Failed...)
			for _, f := range result.Failed {
				failed = append(failed, f.OrderID)
			}
		}
		if err != nil {
			return total, err
		}
	}
}

func (s *service) voidOne(ctx context.Context, orderID uuid.UUID) (uuid.UUID, bool, error) {
	var (
		presentationID uuid.UUID
		skipped        bool
	)
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		skipped = false
		order, err := tx.GetOrder(orderID)
		if err != nil {
			return err
		}
		presentationID = order.PresentationID
		if order.Status == domain.OrderCancelled {
			skipped = true
			return nil
		}

		tiers := make(map[uuid.UUID]int)
		for _, line := range order.Lines {
			if l, ok := line.(domain.GeneralLine); ok {
				tiers[l.TierID] += l.Quantity
			}
		}

		tierIDs := make([]uuid.UUID, 0, len(tiers))
		for id := range tiers {
			tierIDs = append(tierIDs, id)
		}
		for _, id := range store.SortedIDs(tierIDs) {
			tier, err := tx.GetTier(id)
			if err != nil {
				return err
			}
			tier.Sold -= tiers[id]
			if tier.Sold < 0 {
				tier.Sold = 0
			}
			if err := tx.PutTier(tier); err != nil {
				return err
			}
		}

		// Administrative override: the seat goes back whatever state it is in
		for _, id := range store.SortedIDs(order.SeatIDs()) {
			seat, err := tx.GetSeat(id)
			if err != nil {
				return err
			}
			seat.Restore()
			if err := tx.PutSeat(seat); err != nil {
				return err
			}
		}

		cancelledAt := s.clock.Now()
		order.Status = domain.OrderCancelled
		order.CancelledAt = &cancelledAt
		return tx.PutOrder(order)
	})
	return presentationID, skipped, err
}
