package inventory

import (
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"

	"github.com/google/uuid"
)

// TierQuantity is the summed quantity requested from one tier
type TierQuantity struct {
	Tier     *domain.PricingTier
	Quantity int
}

// Quote is a purchase checked against the inventory read inside a transaction. Tiers and
// seats come back in id order, which is also the order they were read (and locked) in.
type Quote struct {
	Presentation *domain.Presentation
	Tiers        []TierQuantity
	Seats        []*domain.Seat
	Total        int64
	Currency     string
}

type QuoteOptions struct {
	// Holder must own a live reservation on every seat line
	Holder string
	Now    time.Time
	// RequireOnSale rejects presentations that are not on sale
	RequireOnSale bool
	// UnheldCode is reported for a seat that is sold or not reserved by Holder
	UnheldCode errs.Code
}

// BuildQuote validates lines against the presentation's inventory and prices them. It only
// reads; callers stage whatever writes the quote justifies in the same transaction.
func BuildQuote(tx store.Tx, presentationID uuid.UUID, venueType domain.VenueType, lines domain.LineItems, opts QuoteOptions) (*Quote, error) {
	if opts.UnheldCode == "" {
		opts.UnheldCode = errs.FailedPrecondition
	}

	p, err := tx.GetPresentation(presentationID)
	if err != nil {
		return nil, err
	}
	if p.VenueType != venueType {
		return nil, errs.E(errs.FailedPrecondition, "presentation %s is %s admission, not %s", presentationID, p.VenueType, venueType)
	}
	if opts.RequireOnSale && !p.IsOnSale() {
		return nil, errs.E(errs.FailedPrecondition, "presentation %s is %s", presentationID, p.Status)
	}
	if len(lines) == 0 {
		return nil, errs.E(errs.InvalidArgument, "at least one line item is required")
	}

	quantities := make(map[uuid.UUID]int)
	var seatIDs []uuid.UUID
	seenSeat := make(map[uuid.UUID]struct{})

	for _, line := range lines {
		switch l := line.(type) {
		case domain.GeneralLine:
			if venueType != domain.VenueGeneral {
				return nil, errs.E(errs.InvalidArgument, "tier lines are not allowed for %s presentations", venueType)
			}
			if l.Quantity < 1 {
				return nil, errs.E(errs.InvalidArgument, "quantity for tier %s must be positive", l.TierID)
			}
			quantities[l.TierID] += l.Quantity
		case domain.SeatLine:
			if venueType != domain.VenueNumbered {
				return nil, errs.E(errs.InvalidArgument, "seat lines are not allowed for %s presentations", venueType)
			}
			if _, dup := seenSeat[l.SeatID]; dup {
				return nil, errs.E(errs.InvalidArgument, "seat %s appears twice", l.SeatID)
			}
			seenSeat[l.SeatID] = struct{}{}
			seatIDs = append(seatIDs, l.SeatID)
		default:
			return nil, errs.E(errs.InvalidArgument, "unsupported line item %T", line)
		}
	}

	if len(seatIDs) > 0 && opts.Holder == "" {
		return nil, errs.E(errs.InvalidArgument, "holder session id is required for numbered seats")
	}

	q := &Quote{Presentation: p}

	tierIDs := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		tierIDs = append(tierIDs, id)
	}
	for _, id := range store.SortedIDs(tierIDs) {
		tier, err := tx.GetTier(id)
		if err != nil {
			return nil, err
		}
		if tier.PresentationID != presentationID {
			return nil, store.NotFound("pricing tier", id)
		}
		qty := quantities[id]
		if tier.Remaining() < qty {
			return nil, errs.E(errs.ResourceExhausted, "only %d tickets left in %s", tier.Remaining(), tier.Name)
		}
		if err := q.addCurrency(tier.Currency); err != nil {
			return nil, err
		}
		q.Tiers = append(q.Tiers, TierQuantity{Tier: tier, Quantity: qty})
		q.Total += tier.UnitPrice * int64(qty)
	}

	for _, id := range store.SortedIDs(seatIDs) {
		seat, err := tx.GetSeat(id)
		if err != nil {
			return nil, err
		}
		if seat.PresentationID != presentationID {
			return nil, store.NotFound("seat", id)
		}
		switch {
		case seat.Status == domain.SeatSold:
			return nil, errs.E(opts.UnheldCode, "seat %s is already sold", seat.Label())
		case seat.HoldExpired(opts.Now):
			return nil, errs.E(opts.UnheldCode, "reservation expired for seat %s", seat.Label())
		case !seat.HeldBy(opts.Holder, opts.Now):
			return nil, errs.E(opts.UnheldCode, "seat %s is not reserved by this checkout", seat.Label())
		}
		if err := q.addCurrency(seat.Currency); err != nil {
			return nil, err
		}
		q.Seats = append(q.Seats, seat)
		q.Total += seat.UnitPrice
	}

	return q, nil
}

// Matches reports a mismatch between the quote and what the buyer was shown
func (q *Quote) Matches(total int64, currency string) error {
	if q.Currency != currency {
		return errs.E(errs.FailedPrecondition, "currency %s does not match %s", currency, q.Currency)
	}
	if q.Total != total {
		return errs.E(errs.FailedPrecondition, "total %d does not match current price %d", total, q.Total)
	}
	return nil
}

func (q *Quote) addCurrency(currency string) error {
	if q.Currency == "" {
		q.Currency = currency
		return nil
	}
	if q.Currency != currency {
		return errs.E(errs.InvalidArgument, "items priced in %s and %s cannot be bought together", q.Currency, currency)
	}
	return nil
}
