package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taquilla/internal/shared/clock"
	"taquilla/internal/testutil"
	"taquilla/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestController_Routes(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	st := testutil.NewStore()
	svc := NewService(st, nil, nil, clock.NewManual(testutil.Epoch), logger.Discard())
	g := testutil.SeedGeneral(t, st, 10, 0, 5000)
	buyer := uuid.New()
	order, err := svc.Finalize(context.Background(), tierRequest(g, buyer, 1, 5000))
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	engine := gin.New()
	SetupOrderRoutes(engine.Group("/api/v1"), NewController(svc), testutil.JWTSecret)

	buyerToken := testutil.Token(t, buyer, "user")
	adminToken := testutil.Token(t, uuid.New(), "admin")
	voidBody := VoidRequest{OrderIDs: []string{order.ID.String()}}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"my orders anonymous", http.MethodGet, "/api/v1/users/me/orders", "", nil, http.StatusUnauthorized},
		{"my orders", http.MethodGet, "/api/v1/users/me/orders", buyerToken, nil, http.StatusOK},
		{"admin list as user", http.MethodGet, "/api/v1/admin/orders", buyerToken, nil, http.StatusForbidden},
		{"admin list", http.MethodGet, "/api/v1/admin/orders?status=completed", adminToken, nil, http.StatusOK},
		{"admin list bad filter", http.MethodGet, "/api/v1/admin/orders?presentation_id=nope", adminToken, nil, http.StatusBadRequest},
		{"void as user", http.MethodPost, "/api/v1/admin/orders/void", buyerToken, voidBody, http.StatusForbidden},
		{"void malformed", http.MethodPost, "/api/v1/admin/orders/void", adminToken, VoidRequest{OrderIDs: []string{"x"}}, http.StatusBadRequest},
		{"void", http.MethodPost, "/api/v1/admin/orders/void", adminToken, voidBody, http.StatusOK},
		{"void all", http.MethodPost, "/api/v1/admin/orders/void-all", adminToken, nil, http.StatusOK},
	}

	for _, tt := range tests {
		var body *bytes.Reader
		if tt.body != nil {
			raw, _ := json.Marshal(tt.body)
			body = bytes.NewReader(raw)
		} else {
			body = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(tt.method, tt.path, body)
		req.Header.Set("Content-Type", "application/json")
		if tt.token != "" {
			req.Header.Set("Authorization", tt.token)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tt.name, tt.want, w.Code, w.Body.String())
		}
	}
}
