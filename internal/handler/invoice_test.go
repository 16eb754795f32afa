package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"ddreams/internal/model"
	"ddreams/internal/mw"
	"ddreams/internal/service"
)

func authedRequest(method, target string, body io.Reader, userID string, admin bool) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), mw.UserCtxKey, userID)
	ctx = context.WithValue(ctx, mw.AdminCtxKey, admin)
	return req.WithContext(ctx)
}

type stubPaymentSource struct {
	invoice  *model.Invoice
	payments []model.PaymentRecord
}

func (s *stubPaymentSource) GetByID(_ context.Context, id string) (*model.Invoice, error) {
	if s.invoice != nil && s.invoice.ID == id {
		return s.invoice, nil
	}
	return nil, service.ErrInvoiceNotFound
}

func (s *stubPaymentSource) ListPayments(_ context.Context, id string) ([]model.PaymentRecord, error) {
	return s.payments, nil
}

func TestListPaymentsOwnership(t *testing.T) {
	stub := &stubPaymentSource{
		invoice: &model.Invoice{ID: "inv-1", UserID: "owner", Status: model.InvoicePaid},
		payments: []model.PaymentRecord{
			{ID: "pay-1", InvoiceID: "inv-1", Amount: 121, Method: "transfer", PaidAt: time.Now()},
		},
	}
	r := chi.NewRouter()
	r.Get("/invoices/{id}/payments", ListPaymentsHandler(stub))

	tests := []struct {
		name   string
		userID string
		admin  bool
		target string
		code   int
	}{
		{"owner sees payments", "owner", false, "/invoices/inv-1/payments", http.StatusOK},
		{"admin sees payments", "staff", true, "/invoices/inv-1/payments", http.StatusOK},
		{"other company is rejected", "intruder", false, "/invoices/inv-1/payments", http.StatusForbidden},
		{"unknown invoice", "owner", false, "/invoices/inv-9/payments", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, authedRequest(http.MethodGet, tt.target, nil, tt.userID, tt.admin))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
