package inventory

import (
	"context"
	"testing"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"
	"taquilla/internal/testutil"
	"taquilla/pkg/cache"
	"taquilla/pkg/logger"

	"github.com/google/uuid"
)

func newTestService(t *testing.T) (Service, store.Store, *clock.Manual) {
	t.Helper()
	st := testutil.NewStore()
	clk := clock.NewManual(testutil.Epoch)
	return NewService(st, nil, 0, clk, logger.Discard()), st, clk
}

func TestGenerateSeats_IdempotentOnOverlap(t *testing.T) {
	t.Parallel()

	svc, st, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePresentation(ctx, CreatePresentationRequest{
		EventID:   uuid.NewString(),
		VenueID:   uuid.NewString(),
		VenueType: "numbered",
		StartsAt:  testutil.Epoch.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create presentation: %v", err)
	}
	if p.Status != domain.PresentationOnSale {
		t.Fatalf("expected default status on_sale, got %s", p.Status)
	}

	first, err := svc.GenerateSeats(ctx, p.ID, GenerateSeatsRequest{
		Section: "Platea", Rows: []string{"A", "B"}, From: 1, To: 10, UnitPrice: 10000, Currency: "NIO",
	})
	if err != nil {
		t.Fatalf("generate seats: %v", err)
	}
	if first.Created != 20 || first.Existing != 0 {
		t.Fatalf("expected 20 created, got %+v", first)
	}

	second, err := svc.GenerateSeats(ctx, p.ID, GenerateSeatsRequest{
		Section: "Platea", Rows: []string{"B", "C"}, From: 5, To: 12, UnitPrice: 15000, Currency: "NIO",
	})
	if err != nil {
		t.Fatalf("generate overlapping seats: %v", err)
	}
	// B5..B10 exist; B11, B12 and C5..C12 are new
	if second.Created != 10 || second.Existing != 6 {
		t.Fatalf("expected 10 created and 6 existing, got %+v", second)
	}

	seats, err := st.ListSeats(ctx, p.ID)
	if err != nil {
		t.Fatalf("list seats: %v", err)
	}
	if len(seats) != 30 {
		t.Fatalf("expected 30 seats, got %d", len(seats))
	}

	existing := testutil.MustSeat(t, st, domain.SeatID(p.ID, "Platea", "B", 5))
	if existing.UnitPrice != 10000 {
		t.Fatalf("expected existing seat untouched, got price %d", existing.UnitPrice)
	}
}

func TestGenerateSeats_Validation(t *testing.T) {
	t.Parallel()

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	general := testutil.SeedGeneral(t, st, 100, 0, 5000)

	tests := []struct {
		name           string
		presentationID uuid.UUID
		req            GenerateSeatsRequest
		code           errs.Code
	}{
		{"unknown presentation", uuid.New(), GenerateSeatsRequest{Section: "S", Rows: []string{"A"}, From: 1, To: 2, Currency: "NIO"}, errs.NotFound},
		{"general venue", general.Presentation.ID, GenerateSeatsRequest{Section: "S", Rows: []string{"A"}, From: 1, To: 2, Currency: "NIO"}, errs.FailedPrecondition},
		{"inverted range", general.Presentation.ID, GenerateSeatsRequest{Section: "S", Rows: []string{"A"}, From: 5, To: 2, Currency: "NIO"}, errs.InvalidArgument},
		{"too many seats", general.Presentation.ID, GenerateSeatsRequest{Section: "S", Rows: []string{"A", "B"}, From: 1, To: 4000, Currency: "NIO"}, errs.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GenerateSeats(ctx, tt.presentationID, tt.req)
			if !errs.Has(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestCreateTier_RequiresGeneralVenue(t *testing.T) {
	t.Parallel()

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	numbered := testutil.SeedNumbered(t, st, 1, 10000)
	general := testutil.SeedGeneral(t, st, 10, 0, 5000)

	_, err := svc.CreateTier(ctx, numbered.Presentation.ID, CreateTierRequest{Name: "VIP", UnitPrice: 1, Currency: "NIO", Capacity: 5})
	if !errs.Has(err, errs.FailedPrecondition) {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}

	tier, err := svc.CreateTier(ctx, general.Presentation.ID, CreateTierRequest{Name: "VIP", UnitPrice: 25000, Currency: "NIO", Capacity: 50})
	if err != nil {
		t.Fatalf("create tier: %v", err)
	}
	if tier.Sold != 0 || tier.Remaining() != 50 {
		t.Fatalf("expected fresh tier, got %+v", tier)
	}
}

func TestAvailability_ReportsExpiredHoldsAsAvailable(t *testing.T) {
	t.Parallel()

	svc, st, clk := newTestService(t)
	ctx := context.Background()
	fx := testutil.SeedNumbered(t, st, 3, 10000)

	err := st.RunInTx(ctx, func(tx store.Tx) error {
		held, err := tx.GetSeat(fx.Seats[0].ID)
		if err != nil {
			return err
		}
		held.Reserve("session-1", clk.Now().Add(10*time.Minute))
		if err := tx.PutSeat(held); err != nil {
			return err
		}
		sold, err := tx.GetSeat(fx.Seats[1].ID)
		if err != nil {
			return err
		}
		sold.MarkSold(uuid.New(), uuid.New())
		return tx.PutSeat(sold)
	})
	if err != nil {
		t.Fatalf("prepare seats: %v", err)
	}

	got, err := svc.Availability(ctx, fx.Presentation.ID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if got.Summary != (AvailabilitySummary{Available: 1, Reserved: 1, Sold: 1}) {
		t.Fatalf("unexpected summary %+v", got.Summary)
	}
	if got.Seats[0].ReservedUntil == nil {
		t.Fatalf("expected reserved_until on held seat")
	}

	clk.Advance(11 * time.Minute)
	got, err = svc.Availability(ctx, fx.Presentation.ID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if got.Summary != (AvailabilitySummary{Available: 2, Reserved: 0, Sold: 1}) {
		t.Fatalf("expected lapsed hold to read as available, got %+v", got.Summary)
	}
	if got.Seats[0].Status != domain.SeatAvailable || got.Seats[0].ReservedUntil != nil {
		t.Fatalf("expected A-1 available, got %+v", got.Seats[0])
	}
}

func TestAvailability_CachedUntilInvalidated(t *testing.T) {
	t.Parallel()

	st := testutil.NewStore()
	clk := clock.NewManual(testutil.Epoch)
	svc := NewService(st, cache.NewMemoryWithClock(clk.Now), 5*time.Second, clk, logger.Discard())
	ctx := context.Background()
	fx := testutil.SeedGeneral(t, st, 10, 2, 5000)

	got, err := svc.Availability(ctx, fx.Presentation.ID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if got.Tiers[0].Remaining != 8 {
		t.Fatalf("expected 8 remaining, got %d", got.Tiers[0].Remaining)
	}

	err = st.RunInTx(ctx, func(tx store.Tx) error {
		tier, err := tx.GetTier(fx.Tier.ID)
		if err != nil {
			return err
		}
		tier.Sold = 5
		return tx.PutTier(tier)
	})
	if err != nil {
		t.Fatalf("update tier: %v", err)
	}

	got, _ = svc.Availability(ctx, fx.Presentation.ID)
	if got.Tiers[0].Remaining != 8 {
		t.Fatalf("expected cached snapshot, got %d remaining", got.Tiers[0].Remaining)
	}

	svc.Invalidate(ctx, fx.Presentation.ID)
	got, _ = svc.Availability(ctx, fx.Presentation.ID)
	if got.Tiers[0].Remaining != 5 {
		t.Fatalf("expected fresh snapshot after invalidation, got %d remaining", got.Tiers[0].Remaining)
	}
}

func TestUpdatePresentation(t *testing.T) {
	t.Parallel()

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	fx := testutil.SeedGeneral(t, st, 10, 0, 5000)

	status := "postponed"
	startsAt := testutil.Epoch.Add(30 * 24 * time.Hour)
	p, err := svc.UpdatePresentation(ctx, fx.Presentation.ID, UpdatePresentationRequest{Status: &status, StartsAt: &startsAt})
	if err != nil {
		t.Fatalf("update presentation: %v", err)
	}
	if p.Status != domain.PresentationPostponed || !p.StartsAt.Equal(startsAt) {
		t.Fatalf("unexpected presentation %+v", p)
	}

	if _, err := svc.UpdatePresentation(ctx, uuid.New(), UpdatePresentationRequest{Status: &status}); !errs.Has(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
