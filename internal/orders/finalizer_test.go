package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/errs"
	"taquilla/internal/store"
	"taquilla/internal/testutil"
	"taquilla/pkg/logger"

	"github.com/google/uuid"
)

type recordingNotifier struct {
	mu     sync.Mutex
	orders []*domain.Order
	err    error
}

func (n *recordingNotifier) OrderCompleted(_ context.Context, o *domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, o)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders)
}

func newTestService(t *testing.T) (Service, store.Store, *clock.Manual, *recordingNotifier) {
	t.Helper()
	st := testutil.NewStore()
	clk := clock.NewManual(testutil.Epoch)
	notifier := &recordingNotifier{}
	return NewService(st, nil, notifier, clk, logger.Discard()), st, clk, notifier
}

func seatRequest(fx testutil.Numbered, buyer uuid.UUID, holder string, ids []uuid.UUID, total int64) FinalizeRequest {
	lines := make(domain.LineItems, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, domain.SeatLine{SeatID: id})
	}
	return FinalizeRequest{
		UserID:          buyer,
		PresentationID:  fx.Presentation.ID,
		Type:            domain.VenueNumbered,
		Lines:           lines,
		Total:           total,
		Currency:        testutil.Currency,
		Buyer:           domain.BuyerContact{Name: "Ana", Email: "ana@example.com", Phone: "+50588881234"},
		HolderSessionID: holder,
	}
}

func tierRequest(g testutil.General, buyer uuid.UUID, qty int, total int64) FinalizeRequest {
	return FinalizeRequest{
		UserID:         buyer,
		PresentationID: g.Presentation.ID,
		Type:           domain.VenueGeneral,
		Lines:          domain.LineItems{domain.GeneralLine{TierID: g.Tier.ID, Quantity: qty}},
		Total:          total,
		Currency:       testutil.Currency,
	}
}

func countOrders(t *testing.T, st store.Store) int {
	t.Helper()
	orders, err := st.ListOrders(context.Background(), store.OrderFilter{})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	return len(orders)
}

func TestFinalize_SellsHeldSeats(t *testing.T) {
	t.Parallel()

	svc, st, clk, notifier := newTestService(t)
	fx := testutil.SeedNumbered(t, st, 2, 10000)
	testutil.HoldSeats(t, st, fx.SeatIDs(2), "session-1", clk.Now().Add(10*time.Minute))
	buyer := uuid.New()

	order, err := svc.Finalize(context.Background(), seatRequest(fx, buyer, "session-1", fx.SeatIDs(2), 20000))
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if order.Status != domain.OrderCompleted || order.Total != 20000 || !order.PurchasedAt.Equal(clk.Now()) {
		t.Fatalf("unexpected order %+v", order)
	}

	for _, id := range fx.SeatIDs(2) {
		seat := testutil.MustSeat(t, st, id)
		if seat.Status != domain.SeatSold || seat.SoldTo == nil || *seat.SoldTo != buyer || seat.ReservationHolder != nil {
			t.Fatalf("expected seat %s sold to buyer, got %+v", seat.Label(), seat)
		}
	}

	mirror, err := st.ListUserOrders(context.Background(), buyer)
	if err != nil || len(mirror) != 1 || mirror[0].ID != order.ID {
		t.Fatalf("expected order in buyer mirror, got %+v (%v)", mirror, err)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}
}

func TestFinalize_ConcurrentTierNeverOversells(t *testing.T) {
	t.Parallel()

	svc, st, _, _ := newTestService(t)
	g := testutil.SeedGeneral(t, st, 10, 7, 5000)

	const buyers = 8
	var wg sync.WaitGroup
	errCh := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Finalize(context.Background(), tierRequest(g, uuid.New(), 1, 5000))
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	wins := 0
	for err := range errCh {
		switch {
		case err == nil:
			wins++
		case errs.Has(err, errs.ResourceExhausted), errs.Has(err, errs.Aborted):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}

	tier := testutil.MustTier(t, st, g.Tier.ID)
	if tier.Sold > tier.Capacity {
		t.Fatalf("oversold: %d of %d", tier.Sold, tier.Capacity)
	}
	if tier.Sold != 7+wins || countOrders(t, st) != wins {
		t.Fatalf("expected sold %d and %d orders, got sold %d", 7+wins, wins, tier.Sold)
	}
	if wins > 3 {
		t.Fatalf("expected at most 3 sales, got %d", wins)
	}
}

func TestFinalize_FailureLeavesNoEffects(t *testing.T) {
	t.Parallel()

	svc, st, clk, notifier := newTestService(t)
	fx := testutil.SeedNumbered(t, st, 3, 10000)
	ids := fx.SeatIDs(3)
	testutil.HoldSeats(t, st, ids[:2], "session-1", clk.Now().Add(10*time.Minute))

	// The last seat is sold to someone else
	sold := seatRequest(fx, uuid.New(), "session-2", ids[2:], 10000)
	testutil.HoldSeats(t, st, ids[2:], "session-2", clk.Now().Add(10*time.Minute))
	if _, err := svc.Finalize(context.Background(), sold); err != nil {
		t.Fatalf("seed sale: %v", err)
	}

	_, err := svc.Finalize(context.Background(), seatRequest(fx, uuid.New(), "session-1", ids, 30000))
	if !errs.Has(err, errs.FailedPrecondition) {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}

	for _, id := range ids[:2] {
		seat := testutil.MustSeat(t, st, id)
		if seat.Status != domain.SeatReserved || !seat.HeldBy("session-1", clk.Now()) {
			t.Fatalf("expected seat %s untouched, got %+v", seat.Label(), seat)
		}
	}
	if countOrders(t, st) != 1 || notifier.count() != 1 {
		t.Fatalf("expected only the seed order, got %d orders / %d notifications", countOrders(t, st), notifier.count())
	}

	t.Run("tier batch", func(t *testing.T) {
		g := testutil.SeedGeneral(t, st, 10, 0, 5000)
		full := testutil.SeedGeneral(t, st, 2, 2, 5000)
		req := tierRequest(g, uuid.New(), 3, 0)
		req.Lines = append(req.Lines, domain.GeneralLine{TierID: full.Tier.ID, Quantity: 1})

		// The second tier belongs to another presentation, so the batch is rejected whole
		_, err := svc.Finalize(context.Background(), req)
		if err == nil {
			t.Fatalf("expected an error")
		}
		if tier := testutil.MustTier(t, st, g.Tier.ID); tier.Sold != 0 {
			t.Fatalf("expected first tier untouched, got sold %d", tier.Sold)
		}
	})
}

func TestFinalize_Rejections(t *testing.T) {
	t.Parallel()

	svc, st, clk, _ := newTestService(t)
	fx := testutil.SeedNumbered(t, st, 2, 10000)
	testutil.HoldSeats(t, st, fx.SeatIDs(1), "session-1", clk.Now().Add(10*time.Minute))
	g := testutil.SeedGeneral(t, st, 5, 4, 5000)

	tests := []struct {
		name string
		req  FinalizeRequest
		want errs.Code
	}{
		{"missing presentation", func() FinalizeRequest {
			r := tierRequest(g, uuid.New(), 1, 5000)
			r.PresentationID = uuid.New()
			return r
		}(), errs.NotFound},
		{"missing seat", seatRequest(fx, uuid.New(), "session-1", []uuid.UUID{uuid.New()}, 10000), errs.NotFound},
		{"tier exhausted", tierRequest(g, uuid.New(), 2, 10000), errs.ResourceExhausted},
		{"total mismatch", tierRequest(g, uuid.New(), 1, 4000), errs.FailedPrecondition},
		{"seat without hold", seatRequest(fx, uuid.New(), "session-1", fx.SeatIDs(2)[1:], 10000), errs.FailedPrecondition},
		{"hold of another session", seatRequest(fx, uuid.New(), "session-9", fx.SeatIDs(1), 10000), errs.FailedPrecondition},
		{"no buyer", tierRequest(g, uuid.Nil, 1, 5000), errs.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Finalize(context.Background(), tt.req)
			if !errs.Has(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestFinalize_ExpiredHold(t *testing.T) {
	t.Parallel()

	svc, st, clk, _ := newTestService(t)
	fx := testutil.SeedNumbered(t, st, 1, 10000)
	testutil.HoldSeats(t, st, fx.SeatIDs(1), "session-1", clk.Now().Add(10*time.Minute))

	clk.Advance(11 * time.Minute)

	_, err := svc.Finalize(context.Background(), seatRequest(fx, uuid.New(), "session-1", fx.SeatIDs(1), 10000))
	if !errs.Has(err, errs.FailedPrecondition) {
		t.Fatalf("expected FailedPrecondition for a lapsed hold, got %v", err)
	}
	if seat := testutil.MustSeat(t, st, fx.Seats[0].ID); seat.Status == domain.SeatSold {
		t.Fatalf("expected lapsed seat not to be sold")
	}
}

func TestFinalize_CompletesIntent(t *testing.T) {
	t.Parallel()

	svc, st, _, _ := newTestService(t)
	g := testutil.SeedGeneral(t, st, 10, 0, 5000)
	buyer := uuid.New()
	testutil.PutIntent(t, st, &domain.PaymentIntent{Reference: "ref-1", UserID: buyer, Status: domain.IntentProcessing})

	req := tierRequest(g, buyer, 2, 10000)
	req.IntentReference = "ref-1"
	order, err := svc.Finalize(context.Background(), req)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	intent, _ := st.FindIntent(context.Background(), "ref-1")
	if intent.Status != domain.IntentCompleted || intent.OrderID == nil || *intent.OrderID != order.ID {
		t.Fatalf("expected intent completed with order id, got %+v", intent)
	}

	t.Run("second finalize for the same intent", func(t *testing.T) {
		_, err := svc.Finalize(context.Background(), req)
		if !errs.Has(err, errs.FailedPrecondition) {
			t.Fatalf("expected FailedPrecondition, got %v", err)
		}
		if tier := testutil.MustTier(t, st, g.Tier.ID); tier.Sold != 2 {
			t.Fatalf("expected sold 2, got %d", tier.Sold)
		}
	})

	t.Run("intent of another buyer", func(t *testing.T) {
		testutil.PutIntent(t, st, &domain.PaymentIntent{Reference: "ref-2", UserID: uuid.New(), Status: domain.IntentProcessing})
		r := tierRequest(g, buyer, 1, 5000)
		r.IntentReference = "ref-2"
		if _, err := svc.Finalize(context.Background(), r); !errs.Has(err, errs.FailedPrecondition) {
			t.Fatalf("expected FailedPrecondition, got %v", err)
		}
	})
}

func TestFinalize_NotificationFailureKeepsSale(t *testing.T) {
	t.Parallel()

	svc, st, _, notifier := newTestService(t)
	notifier.err = errors.New("smtp down")
	g := testutil.SeedGeneral(t, st, 10, 0, 5000)

	if _, err := svc.Finalize(context.Background(), tierRequest(g, uuid.New(), 1, 5000)); err != nil {
		t.Fatalf("expected sale to succeed, got %v", err)
	}
	if tier := testutil.MustTier(t, st, g.Tier.ID); tier.Sold != 1 {
		t.Fatalf("expected sold 1, got %d", tier.Sold)
	}
}
