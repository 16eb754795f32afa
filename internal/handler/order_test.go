package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"ddreams/internal/model"
	"ddreams/internal/service"
)

type stubStatusSource struct {
	owner  string
	status model.OrderStatus
}

func (s *stubStatusSource) CachedStatus(_ context.Context, orderID string) (model.OrderStatus, string, error) {
	if orderID != "o-1" {
		return "", "", service.ErrOrderNotFound
	}
	return s.status, s.owner, nil
}

func TestOrderStatusOwnership(t *testing.T) {
	stub := &stubStatusSource{owner: "owner", status: model.StatusShipped}
	r := chi.NewRouter()
	r.Get("/orders/{id}/status", OrderStatusHandler(stub))

	tests := []struct {
		name   string
		userID string
		admin  bool
		target string
		code   int
	}{
		{"owner may poll", "owner", false, "/orders/o-1/status", http.StatusOK},
		{"admin may poll", "staff", true, "/orders/o-1/status", http.StatusOK},
		{"other company is rejected", "intruder", false, "/orders/o-1/status", http.StatusForbidden},
		{"unknown order", "owner", false, "/orders/o-9/status", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, authedRequest(http.MethodGet, tt.target, nil, tt.userID, tt.admin))
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"shipped"`)
				assert.Contains(t, rec.Body.String(), `90`)
			}
		})
	}
}
