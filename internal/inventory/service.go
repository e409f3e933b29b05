package inventory

import (
	"context"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/constants"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"
	"taquilla/pkg/cache"
	"taquilla/pkg/logger"

	"github.com/google/uuid"
)

// maxSeatsPerGeneration bounds one generate call, which runs as a single transaction
const maxSeatsPerGeneration = 5000

// Invalidator drops the cached availability of a presentation after a committed change
type Invalidator interface {
	Invalidate(ctx context.Context, presentationID uuid.UUID)
}

// NopInvalidator is used where no cache is configured
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(context.Context, uuid.UUID) {}

type Service interface {
	// Administration
	CreatePresentation(ctx context.Context, req CreatePresentationRequest) (*domain.Presentation, error)
	UpdatePresentation(ctx context.Context, id uuid.UUID, req UpdatePresentationRequest) (*domain.Presentation, error)
	CreateTier(ctx context.Context, presentationID uuid.UUID, req CreateTierRequest) (*domain.PricingTier, error)
	GenerateSeats(ctx context.Context, presentationID uuid.UUID, req GenerateSeatsRequest) (*GenerateSeatsResponse, error)

	// Advisory reads
	Availability(ctx context.Context, presentationID uuid.UUID) (*AvailabilityResponse, error)

	Invalidator
}

type service struct {
	store    store.Store
	cache    cache.Service
	cacheTTL time.Duration
	clock    clock.Clock
	log      *logger.Logger
}

// NewService builds the inventory service. A nil cache disables availability caching.
func NewService(st store.Store, cacheService cache.Service, cacheTTL time.Duration, clk clock.Clock, log *logger.Logger) Service {
	if cacheTTL <= 0 {
		cacheTTL = constants.TTL_AVAILABILITY
	}
	return &service{
		store:    st,
		cache:    cacheService,
		cacheTTL: cacheTTL,
		clock:    clk,
		log:      log,
	}
}

// PRESENTATIONS

func (s *service) CreatePresentation(ctx context.Context, req CreatePresentationRequest) (*domain.Presentation, error) {
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, err, "invalid event ID")
	}
	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, err, "invalid venue ID")
	}

	venueType := domain.VenueType(req.VenueType)
	if !venueType.IsValid() {
		return nil, errs.E(errs.InvalidArgument, "unknown venue type %q", req.VenueType)
	}

	status := domain.PresentationOnSale
	if req.Status != "" {
		status = domain.PresentationStatus(req.Status)
		if !status.IsValid() {
			return nil, errs.E(errs.InvalidArgument, "unknown presentation status %q", req.Status)
		}
	}

	presentation := &domain.Presentation{
		ID:        uuid.New(),
		EventID:   eventID,
		VenueID:   venueID,
		VenueType: venueType,
		StartsAt:  req.StartsAt.UTC(),
		Status:    status,
	}

	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		return tx.PutPresentation(presentation)
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Presentation Created",
		"presentation_id", presentation.ID.String(),
		"venue_type", string(presentation.VenueType),
	)
	return presentation, nil
}

func (s *service) UpdatePresentation(ctx context.Context, id uuid.UUID, req UpdatePresentationRequest) (*domain.Presentation, error) {
	var updated *domain.Presentation
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetPresentation(id)
		if err != nil {
			return err
		}

		if req.Status != nil {
			status := domain.PresentationStatus(*req.Status)
			if !status.IsValid() {
				return errs.E(errs.InvalidArgument, "unknown presentation status %q", *req.Status)
			}
			p.Status = status
		}
		if req.StartsAt != nil {
			p.StartsAt = req.StartsAt.UTC()
		}

		updated = p
		return tx.PutPresentation(p)
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, id)
	return updated, nil
}

// TIERS AND SEATS

func (s *service) CreateTier(ctx context.Context, presentationID uuid.UUID, req CreateTierRequest) (*domain.PricingTier, error) {
	if req.Capacity < 1 {
		return nil, errs.E(errs.InvalidArgument, "capacity must be positive")
	}
	if req.UnitPrice < 0 {
		return nil, errs.E(errs.InvalidArgument, "unit price cannot be negative")
	}

	tier := &domain.PricingTier{
		ID:             uuid.New(),
		PresentationID: presentationID,
		Name:           req.Name,
		UnitPrice:      req.UnitPrice,
		Currency:       req.Currency,
		Capacity:       req.Capacity,
	}

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetPresentation(presentationID)
		if err != nil {
			return err
		}
		if p.VenueType != domain.VenueGeneral {
			return errs.E(errs.FailedPrecondition, "presentation %s is not general admission", presentationID)
		}
		return tx.PutTier(tier)
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, presentationID)
	return tier, nil
}

// GenerateSeats creates every seat of the requested range that doesn't exist yet. Seat ids
// are derived from the position, so overlapping ranges merge and existing seats are left
// untouched whatever their status.
func (s *service) GenerateSeats(ctx context.Context, presentationID uuid.UUID, req GenerateSeatsRequest) (*GenerateSeatsResponse, error) {
	if req.From < 1 || req.To < req.From {
		return nil, errs.E(errs.InvalidArgument, "invalid seat range %d..%d", req.From, req.To)
	}
	if len(req.Rows) == 0 {
		return nil, errs.E(errs.InvalidArgument, "at least one row is required")
	}
	if total := len(req.Rows) * (req.To - req.From + 1); total > maxSeatsPerGeneration {
		return nil, errs.E(errs.InvalidArgument, "cannot generate %d seats at once (max %d)", total, maxSeatsPerGeneration)
	}

	result := &GenerateSeatsResponse{}
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		*result = GenerateSeatsResponse{}

		p, err := tx.GetPresentation(presentationID)
		if err != nil {
			return err
		}
		if p.VenueType != domain.VenueNumbered {
			return errs.E(errs.FailedPrecondition, "presentation %s is not numbered", presentationID)
		}

		seen := make(map[uuid.UUID]struct{})
		for _, row := range req.Rows {
			for n := req.From; n <= req.To; n++ {
				id := domain.SeatID(presentationID, req.Section, row, n)
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}

				_, err := tx.GetSeat(id)
				if err == nil {
					result.Existing++
					continue
				}
				if !errs.Has(err, errs.NotFound) {
					return err
				}

				seat := &domain.Seat{
					ID:             id,
					PresentationID: presentationID,
					Section:        req.Section,
					Row:            row,
					Number:         n,
					UnitPrice:      req.UnitPrice,
					Currency:       req.Currency,
					Status:         domain.SeatAvailable,
				}
				if err := tx.PutSeat(seat); err != nil {
					return err
				}
				result.Created++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Seats Generated",
		"presentation_id", presentationID.String(),
		"created", result.Created,
		"existing", result.Existing,
	)
	s.Invalidate(ctx, presentationID)
	return result, nil
}

// AVAILABILITY

func (s *service) Availability(ctx context.Context, presentationID uuid.UUID) (*AvailabilityResponse, error) {
	if s.cache == nil {
		return s.buildAvailability(ctx, presentationID)
	}

	var resp AvailabilityResponse
	err := s.cache.GetOrSet(ctx, constants.BuildAvailabilityKey(presentationID), s.cacheTTL, func() (interface{}, error) {
		return s.buildAvailability(ctx, presentationID)
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *service) buildAvailability(ctx context.Context, presentationID uuid.UUID) (*AvailabilityResponse, error) {
	p, err := s.store.FindPresentation(ctx, presentationID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	resp := &AvailabilityResponse{Presentation: *p, GeneratedAt: now}

	switch p.VenueType {
	case domain.VenueGeneral:
		tiers, err := s.store.ListTiers(ctx, presentationID)
		if err != nil {
			return nil, err
		}
		resp.Tiers = make([]TierResponse, 0, len(tiers))
		for _, t := range tiers {
			resp.Tiers = append(resp.Tiers, toTierResponse(t))
			resp.Summary.Available += t.Remaining()
			resp.Summary.Sold += t.Sold
		}

	case domain.VenueNumbered:
		seats, err := s.store.ListSeats(ctx, presentationID)
		if err != nil {
			return nil, err
		}
		resp.Seats = make([]SeatResponse, 0, len(seats))
		for _, seat := range seats {
			sr := toSeatResponse(seat, now)
			switch sr.Status {
			case domain.SeatAvailable:
				resp.Summary.Available++
			case domain.SeatReserved:
				resp.Summary.Reserved++
			case domain.SeatSold:
				resp.Summary.Sold++
			}
			resp.Seats = append(resp.Seats, sr)
		}
	}

	return resp, nil
}

// Invalidate is best-effort; a failed delete only leaves a snapshot that expires on its own
func (s *service) Invalidate(ctx context.Context, presentationID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, constants.BuildAvailabilityKey(presentationID)); err != nil {
		s.log.WarnContext(ctx, "Availability cache invalidation failed",
			"presentation_id", presentationID.String(),
			"error", err.Error(),
		)
	}
}
