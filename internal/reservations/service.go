package reservations

import (
	"context"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/inventory"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"
	"taquilla/pkg/logger"

	"github.com/google/uuid"
)

// DefaultHoldDuration is how long a hold binds when none is configured
const DefaultHoldDuration = 10 * time.Minute

type Service interface {
	// Hold reserves every requested seat for holder, or none of them
	Hold(ctx context.Context, presentationID uuid.UUID, seatIDs []uuid.UUID, holder string) (*HoldResult, error)
	// Release gives back the seats still reserved by holder; anything else is left alone
	Release(ctx context.Context, presentationID uuid.UUID, seatIDs []uuid.UUID, holder string) (int, error)
	// ReleaseExpired sweeps one batch of lapsed holds back to available
	ReleaseExpired(ctx context.Context) (int, error)
}

type Config struct {
	HoldDuration   time.Duration
	SweepBatchSize int
}

type service struct {
	store  store.Store
	cache  inventory.Invalidator
	clock  clock.Clock
	log    *logger.Logger
	config Config
}

func NewService(st store.Store, cache inventory.Invalidator, clk clock.Clock, log *logger.Logger, cfg Config) Service {
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = DefaultHoldDuration
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 100
	}
	if cache == nil {
		cache = inventory.NopInvalidator{}
	}
	return &service{
		store:  st,
		cache:  cache,
		clock:  clk,
		log:    log,
		config: cfg,
	}
}

// HOLD

func (s *service) Hold(ctx context.Context, presentationID uuid.UUID, seatIDs []uuid.UUID, holder string) (*HoldResult, error) {
	if holder == "" {
		return nil, errs.E(errs.InvalidArgument, "holder session id is required")
	}
	ids := store.SortedIDs(seatIDs)
	if len(ids) == 0 {
		return nil, errs.E(errs.InvalidArgument, "at least one seat is required")
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.config.HoldDuration)

	var result *HoldResult
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetPresentation(presentationID)
		if err != nil {
			return err
		}
		if p.VenueType != domain.VenueNumbered {
			return errs.E(errs.FailedPrecondition, "presentation %s has no numbered seats", presentationID)
		}
		if !p.IsOnSale() {
			return errs.E(errs.FailedPrecondition, "presentation %s is %s", presentationID, p.Status)
		}

		result = &HoldResult{
			PresentationID:  presentationID,
			HolderSessionID: holder,
			Seats:           make([]HeldSeat, 0, len(ids)),
			ExpiresAt:       expiresAt,
			HoldSeconds:     int(s.config.HoldDuration.Seconds()),
		}

		for _, id := range ids {
			seat, err := getPresentationSeat(tx, presentationID, id)
			if err != nil {
				return err
			}
			if !seat.AvailableAt(now) {
				return errs.E(errs.SeatUnavailable, "seat %s was just taken, choose another", seat.Label())
			}
			if result.Currency == "" {
				result.Currency = seat.Currency
			} else if seat.Currency != result.Currency {
				return errs.E(errs.InvalidArgument, "seats priced in %s and %s cannot be held together", result.Currency, seat.Currency)
			}

			seat.Reserve(holder, expiresAt)
			if err := tx.PutSeat(seat); err != nil {
				return err
			}
			result.Seats = append(result.Seats, toHeldSeat(seat))
			result.Total += seat.UnitPrice
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogSeatsHeld(ctx, presentationID.String(), holder, len(result.Seats), expiresAt)
	s.cache.Invalidate(ctx, presentationID)
	return result, nil
}

// RELEASE

func (s *service) Release(ctx context.Context, presentationID uuid.UUID, seatIDs []uuid.UUID, holder string) (int, error) {
	if holder == "" {
		return 0, errs.E(errs.InvalidArgument, "holder session id is required")
	}
	ids := store.SortedIDs(seatIDs)
	if len(ids) == 0 {
		return 0, errs.E(errs.InvalidArgument, "at least one seat is required")
	}

	released := 0
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		released = 0
		for _, id := range ids {
			seat, err := getPresentationSeat(tx, presentationID, id)
			if err != nil {
				return err
			}
			// Sold seats and holds of other sessions are never touched
			if seat.Status != domain.SeatReserved || !heldBy(seat, holder) {
				continue
			}
			seat.ClearReservation()
			if err := tx.PutSeat(seat); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if released > 0 {
		s.log.LogSeatsReleased(ctx, presentationID.String(), holder, released, "abandoned")
		s.cache.Invalidate(ctx, presentationID)
	}
	return released, nil
}

// SWEEP

// ReleaseExpired releases every listed hold in its own transaction. The listing is only a
// hint: each seat is re-read and released only if it is still reserved by the same
// holder and still past its expiry.
func (s *service) ReleaseExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	candidates, err := s.store.ListExpiredHolds(ctx, now, s.config.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	touched := make(map[uuid.UUID]int)
	for i := range candidates {
		candidate := candidates[i]
		if candidate.ReservationHolder == nil {
			continue
		}
		holder := *candidate.ReservationHolder

		freed := false
		err := s.store.RunInTx(ctx, func(tx store.Tx) error {
			freed = false
			seat, err := tx.GetSeat(candidate.ID)
			if err != nil {
				return err
			}
			if !seat.HoldExpired(now) || !heldBy(seat, holder) {
				return nil
			}
			seat.ClearReservation()
			freed = true
			return tx.PutSeat(seat)
		})
		if err != nil {
			if ctx.Err() != nil {
				return released, ctx.Err()
			}
			s.log.ErrorWithContext(ctx, "Failed to release expired hold", err, map[string]interface{}{
				"seat_id":         candidate.ID.String(),
				"presentation_id": candidate.PresentationID.String(),
			})
			continue
		}
		if freed {
			released++
			touched[candidate.PresentationID]++
		}
	}

	for presentationID, n := range touched {
		s.log.LogSeatsReleased(ctx, presentationID.String(), "", n, "expired")
		s.cache.Invalidate(ctx, presentationID)
	}
	return released, nil
}

func getPresentationSeat(tx store.Tx, presentationID, seatID uuid.UUID) (*domain.Seat, error) {
	seat, err := tx.GetSeat(seatID)
	if err != nil {
		return nil, err
	}
	if seat.PresentationID != presentationID {
		return nil, store.NotFound("seat", seatID)
	}
	return seat, nil
}

func heldBy(seat *domain.Seat, holder string) bool {
	return seat.ReservationHolder != nil && *seat.ReservationHolder == holder
}
