package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/orders"
	"taquilla/internal/payments"
	"taquilla/internal/reservations"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/middleware"
	"taquilla/internal/store"
	"taquilla/internal/testutil"
	"taquilla/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const webhookSecret = "webhook-secret"

type harness struct {
	store        store.Store
	clock        *clock.Manual
	reservations reservations.Service
	ledger       payments.Service
	engine       *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithLogger(t, logger.Discard())
}

func newHarnessWithLogger(t *testing.T, log *logger.Logger) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := testutil.NewStore()
	clk := clock.NewManual(testutil.Epoch)

	gateway := payments.NewGateway(payments.GatewayConfig{
		URL:       "https://pay.example.com/checkout",
		ReturnURL: "https://tickets.example.com/confirmation",
		Secret:    "gateway-secret",
	}, clk)
	ledger := payments.NewService(st, gateway, clk, log)
	finalizer := orders.NewService(st, nil, nil, clk, log)
	holds := reservations.NewService(st, nil, clk, log, reservations.Config{HoldDuration: 10 * time.Minute})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	SetupWebhookRoutes(engine.Group("/api/v1"), NewController(NewProcessor(ledger, finalizer, holds, log), webhookSecret, log))

	return &harness{
		store:        st,
		clock:        clk,
		reservations: holds,
		ledger:       ledger,
		engine:       engine,
	}
}

func (h *harness) deliver(t *testing.T, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func (h *harness) notify(t *testing.T, reference, status string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(Notification{Reference: reference, Status: status, TransactionID: "gw-" + reference})
	return h.deliver(t, body, Sign(body, webhookSecret))
}

func outcomeOf(t *testing.T, w *httptest.ResponseRecorder) Outcome {
	t.Helper()
	var resp struct {
		Data AckResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data.Outcome
}

// checkout holds seat A-1 and creates the intent for it
func (h *harness) checkout(t *testing.T, fx testutil.Numbered, buyer uuid.UUID, holder string) string {
	t.Helper()
	ctx := context.Background()
	seat := fx.Seats[0]
	if _, err := h.reservations.Hold(ctx, fx.Presentation.ID, []uuid.UUID{seat.ID}, holder); err != nil {
		t.Fatalf("hold: %v", err)
	}
	result, err := h.ledger.CreateIntent(ctx, buyer, domain.BuyerContact{Name: "Ana", Email: "ana@example.com", Phone: "+50588881234"}, domain.PurchasePayload{
		PresentationID:  fx.Presentation.ID,
		Type:            domain.VenueNumbered,
		Lines:           domain.LineItems{domain.SeatLine{SeatID: seat.ID}},
		Total:           seat.UnitPrice,
		Currency:        seat.Currency,
		HolderSessionID: holder,
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	return result.Reference
}

func TestWebhook_EndToEndSale(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	fx := testutil.SeedNumbered(t, h.store, 2, 10000)
	buyer := uuid.New()
	ref := h.checkout(t, fx, buyer, "session-1")

	w := h.notify(t, ref, "paid")
	if w.Code != http.StatusOK || outcomeOf(t, w) != OutcomeFinalized {
		t.Fatalf("expected finalized, got %d %s", w.Code, w.Body.String())
	}

	seat := testutil.MustSeat(t, h.store, fx.Seats[0].ID)
	if seat.Label() != "A-1" || seat.Status != domain.SeatSold {
		t.Fatalf("expected A-1 sold, got %s %s", seat.Label(), seat.Status)
	}

	all, _ := h.store.ListOrders(context.Background(), store.OrderFilter{})
	mine, _ := h.store.ListUserOrders(context.Background(), buyer)
	if len(all) != 1 || len(mine) != 1 || all[0].ID != mine[0].ID {
		t.Fatalf("expected one order in both collections, got %d / %d", len(all), len(mine))
	}
	if all[0].Total != 10000 || all[0].Currency != "NIO" {
		t.Fatalf("expected 100 NIO, got %d %s", all[0].Total, all[0].Currency)
	}

	intent, _ := h.store.FindIntent(context.Background(), ref)
	if intent.Status != domain.IntentCompleted || intent.OrderID == nil || *intent.OrderID != all[0].ID {
		t.Fatalf("expected completed intent pointing at the order, got %+v", intent)
	}

	t.Run("redelivery is absorbed once", func(t *testing.T) {
		w := h.notify(t, ref, "paid")
		if w.Code != http.StatusOK || outcomeOf(t, w) != OutcomeDuplicate {
			t.Fatalf("expected duplicate, got %d %s", w.Code, w.Body.String())
		}
		all, _ := h.store.ListOrders(context.Background(), store.OrderFilter{})
		if len(all) != 1 {
			t.Fatalf("expected still one order, got %d", len(all))
		}
	})

	t.Run("late failure report is ignored", func(t *testing.T) {
		w := h.notify(t, ref, "declined")
		if w.Code != http.StatusOK || outcomeOf(t, w) != OutcomeDuplicate {
			t.Fatalf("expected duplicate, got %d %s", w.Code, w.Body.String())
		}
		if seat := testutil.MustSeat(t, h.store, fx.Seats[0].ID); seat.Status != domain.SeatSold {
			t.Fatalf("expected seat to stay sold")
		}
	})
}

func TestWebhook_FinalizeErrorLogCarriesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newHarnessWithLogger(t, logger.NewWithWriter(&buf, "info"))
	fx := testutil.SeedNumbered(t, h.store, 1, 10000)
	ref := h.checkout(t, fx, uuid.New(), "session-1")
	h.clock.Advance(11 * time.Minute)

	body, _ := json.Marshal(Notification{Reference: ref, Status: "paid", TransactionID: "gw-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(body, webhookSecret))
	req.Header.Set(middleware.RequestIDHeader, "gw-delivery-7")
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	if outcomeOf(t, w) != OutcomeFinalizeFailed {
		t.Fatalf("expected finalize_failed, got %s", w.Body.String())
	}

	var found bool
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "Finalize failed after payment capture") {
			found = true
			if !strings.Contains(line, "gw-delivery-7") {
				t.Fatalf("expected request id in %q", line)
			}
		}
	}
	if !found {
		t.Fatalf("expected finalize error log, got %s", buf.String())
	}
}

func TestWebhook_FinalizeErrorIsRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	fx := testutil.SeedNumbered(t, h.store, 1, 10000)
	ref := h.checkout(t, fx, uuid.New(), "session-1")

	// The buyer paid after the hold lapsed
	h.clock.Advance(11 * time.Minute)

	w := h.notify(t, ref, "approved")
	if w.Code != http.StatusOK || outcomeOf(t, w) != OutcomeFinalizeFailed {
		t.Fatalf("expected finalize_failed acknowledged, got %d %s", w.Code, w.Body.String())
	}

	intent, _ := h.store.FindIntent(context.Background(), ref)
	if intent.Status != domain.IntentErrorGeneratingTickets || intent.ErrorDetail == nil {
		t.Fatalf("expected error_generating_tickets with detail, got %+v", intent)
	}
	if seat := testutil.MustSeat(t, h.store, fx.Seats[0].ID); seat.Status == domain.SeatSold {
		t.Fatalf("expected seat not sold")
	}

	// Never retried automatically
	w = h.notify(t, ref, "paid")
	if outcomeOf(t, w) != OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", w.Body.String())
	}
}

func TestWebhook_PaymentFailed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	fx := testutil.SeedNumbered(t, h.store, 1, 10000)
	ref := h.checkout(t, fx, uuid.New(), "session-1")

	w := h.notify(t, ref, "declined")
	if w.Code != http.StatusOK || outcomeOf(t, w) != OutcomePaymentFailed {
		t.Fatalf("expected payment_failed, got %d %s", w.Code, w.Body.String())
	}
	intent, _ := h.store.FindIntent(context.Background(), ref)
	if intent.Status != domain.IntentFailed {
		t.Fatalf("expected failed, got %s", intent.Status)
	}
	if all, _ := h.store.ListOrders(context.Background(), store.OrderFilter{}); len(all) != 0 {
		t.Fatalf("expected no orders, got %d", len(all))
	}

	// The declined buyer's hold is given back without waiting for expiry
	seat := testutil.MustSeat(t, h.store, fx.Seats[0].ID)
	if seat.Status != domain.SeatAvailable || seat.ReservationHolder != nil || seat.ReservationExpiry != nil {
		t.Fatalf("expected seat released, got %+v", seat)
	}
}

func TestWebhook_PaymentFailedKeepsOtherHolds(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	fx := testutil.SeedNumbered(t, h.store, 1, 10000)
	ref := h.checkout(t, fx, uuid.New(), "session-1")

	// The first hold lapsed and another session took the seat before the decline arrived
	h.clock.Advance(11 * time.Minute)
	if _, err := h.reservations.Hold(context.Background(), fx.Presentation.ID, []uuid.UUID{fx.Seats[0].ID}, "session-2"); err != nil {
		t.Fatalf("second hold: %v", err)
	}

	if w := h.notify(t, ref, "declined"); outcomeOf(t, w) != OutcomePaymentFailed {
		t.Fatalf("expected payment_failed, got %s", w.Body.String())
	}
	seat := testutil.MustSeat(t, h.store, fx.Seats[0].ID)
	if seat.Status != domain.SeatReserved || seat.ReservationHolder == nil || *seat.ReservationHolder != "session-2" {
		t.Fatalf("expected session-2 to keep its hold, got %+v", seat)
	}
}

func TestWebhook_Rejections(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	valid, _ := json.Marshal(Notification{Reference: "r1", Status: "paid"})
	noRef, _ := json.Marshal(map[string]string{"status": "paid"})
	big := bytes.Repeat([]byte("x"), maxBodyBytes+1)

	tests := []struct {
		name      string
		body      []byte
		signature string
		want      int
		outcome   Outcome
	}{
		{"unsigned", valid, "", http.StatusUnauthorized, ""},
		{"bad signature", valid, Sign(valid, "other"), http.StatusUnauthorized, ""},
		{"malformed json", []byte("{"), Sign([]byte("{"), webhookSecret), http.StatusBadRequest, ""},
		{"missing reference", noRef, Sign(noRef, webhookSecret), http.StatusBadRequest, ""},
		{"too large", big, Sign(big, webhookSecret), http.StatusBadRequest, ""},
		{"unknown reference", valid, Sign(valid, webhookSecret), http.StatusOK, OutcomeUnknownReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.deliver(t, tt.body, tt.signature)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, w.Code, w.Body.String())
			}
			if tt.outcome != "" && outcomeOf(t, w) != tt.outcome {
				t.Fatalf("expected %s, got %s", tt.outcome, w.Body.String())
			}
		})
	}

	t.Run("unmapped status", func(t *testing.T) {
		w := h.notify(t, "r1", "refunded")
		if w.Code != http.StatusOK || outcomeOf(t, w) != OutcomeIgnored {
			t.Fatalf("expected ignored, got %d %s", w.Code, w.Body.String())
		}
	})
}
