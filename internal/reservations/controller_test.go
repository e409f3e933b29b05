package reservations

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taquilla/internal/shared/clock"
	"taquilla/internal/testutil"
	"taquilla/internal/users"
	"taquilla/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestController_HoldAndRelease(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	st := testutil.NewStore()
	fx := testutil.SeedNumbered(t, st, 2, 10000)
	svc := NewService(st, nil, clock.NewManual(testutil.Epoch), logger.Discard(), Config{HoldDuration: 10 * time.Minute})

	engine := gin.New()
	SetupReservationRoutes(engine.Group("/api/v1"), NewController(svc), testutil.JWTSecret)
	path := "/api/v1/presentations/" + fx.Presentation.ID.String() + "/holds"
	token := testutil.Token(t, uuid.New(), "user")

	do := func(method, token string, body interface{}) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", token)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	seatA1 := fx.Seats[0].ID.String()

	tests := []struct {
		name   string
		method string
		token  string
		body   interface{}
		want   int
	}{
		{"anonymous", http.MethodPost, "", HoldRequest{SeatIDs: []string{seatA1}, HolderSessionID: "s1"}, http.StatusUnauthorized},
		{"malformed seat id", http.MethodPost, token, HoldRequest{SeatIDs: []string{"A-1"}, HolderSessionID: "s1"}, http.StatusBadRequest},
		{"missing holder", http.MethodPost, token, map[string]interface{}{"seat_ids": []string{seatA1}}, http.StatusBadRequest},
		{"hold", http.MethodPost, token, HoldRequest{SeatIDs: []string{seatA1}, HolderSessionID: "s1"}, http.StatusCreated},
		{"taken", http.MethodPost, token, HoldRequest{SeatIDs: []string{seatA1}, HolderSessionID: "s2"}, http.StatusConflict},
		{"release", http.MethodDelete, token, ReleaseRequest{SeatIDs: []string{seatA1}, HolderSessionID: "s1"}, http.StatusOK},
		{"hold again", http.MethodPost, token, HoldRequest{SeatIDs: []string{seatA1}, HolderSessionID: "s2"}, http.StatusCreated},
	}

	// Steps share state and run in order
	for _, tt := range tests {
		w := do(tt.method, tt.token, tt.body)
		if w.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tt.name, tt.want, w.Code, w.Body.String())
		}
	}
}

func TestController_HoldsAreScopedToTheCaller(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	st := testutil.NewStore()
	fx := testutil.SeedNumbered(t, st, 1, 10000)
	svc := NewService(st, nil, clock.NewManual(testutil.Epoch), logger.Discard(), Config{HoldDuration: 10 * time.Minute})

	engine := gin.New()
	SetupReservationRoutes(engine.Group("/api/v1"), NewController(svc), testutil.JWTSecret)
	path := "/api/v1/presentations/" + fx.Presentation.ID.String() + "/holds"
	owner := uuid.New()

	do := func(method string, user uuid.UUID, body interface{}) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", testutil.Token(t, user, "user"))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	seat := []string{fx.Seats[0].ID.String()}
	w := do(http.MethodPost, owner, HoldRequest{SeatIDs: seat, HolderSessionID: "s1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var held struct {
		Data HoldResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &held); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if held.Data.HolderSessionID != "s1" {
		t.Fatalf("expected the client session echoed back, got %q", held.Data.HolderSessionID)
	}

	// Guessing the session string is not enough from another account
	intruder := uuid.New()
	if w := do(http.MethodPost, intruder, HoldRequest{SeatIDs: seat, HolderSessionID: "s1"}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for another account, got %d (%s)", w.Code, w.Body.String())
	}
	if w := do(http.MethodDelete, intruder, ReleaseRequest{SeatIDs: seat, HolderSessionID: "s1"}); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	stored := testutil.MustSeat(t, st, fx.Seats[0].ID)
	want := users.Identity{UserID: owner}.HolderKey("s1")
	if stored.ReservationHolder == nil || *stored.ReservationHolder != want {
		t.Fatalf("expected hold to stay with %s, got %+v", want, stored.ReservationHolder)
	}
}
