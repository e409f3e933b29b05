package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"taquilla/internal/shared/errs"

	"github.com/gin-gonic/gin"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"seat unavailable", errs.E(errs.SeatUnavailable, "that seat was just taken, choose another"), http.StatusConflict, "that seat was just taken, choose another"},
		{"not found", errs.E(errs.NotFound, "presentation x not found"), http.StatusNotFound, "presentation x not found"},
		{"permission", errs.E(errs.PermissionDenied, "admin only"), http.StatusForbidden, "admin only"},
		{"plain error hides cause", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var body StandardApiResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Message != tt.wantMessage {
				t.Fatalf("expected message %q, got %q", tt.wantMessage, body.Message)
			}
			if body.Status != "error" || body.StatusCode != tt.wantStatus {
				t.Fatalf("unexpected envelope %+v", body)
			}
		})
	}
}
