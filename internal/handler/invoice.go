package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ddreams/internal/model"
	"ddreams/internal/mw"
	"ddreams/internal/service"
)

type createInvoiceRequest struct {
	UserID       string                   `json:"user_id,omitempty"` // admins may invoice any company
	OrderID      string                   `json:"order_id,omitempty"`
	PaymentTerms int                      `json:"payment_terms"`
	Currency     string                   `json:"currency"`
	Discount     float64                  `json:"discount"`
	Items        []service.NewInvoiceItem `json:"items"`
}

func CreateInvoiceHandler(billingSvc *service.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)

		var req createInvoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		target := userID
		if req.UserID != "" && mw.IsAdmin(r) {
			target = req.UserID
		}

		invoice, err := billingSvc.Create(r.Context(), target, req.OrderID, req.PaymentTerms, req.Currency, req.Discount, req.Items)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, invoice)
	}
}

func ListInvoicesHandler(billingSvc *service.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)

		invoices, err := billingSvc.ListByUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if len(invoices) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, invoices)
	}
}

func GetInvoiceHandler(billingSvc *service.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)
		invoiceID := chi.URLParam(r, "id")

		invoice, err := billingSvc.GetByID(r.Context(), invoiceID)
		if err != nil {
			if errors.Is(err, service.ErrInvoiceNotFound) {
				http.Error(w, "invoice not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if invoice.UserID != userID && !mw.IsAdmin(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, invoice)
	}
}

func AddInvoiceItemHandler(billingSvc *service.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID := chi.URLParam(r, "id")

		var item service.NewInvoiceItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if item.Quantity <= 0 || item.UnitPrice < 0 {
			http.Error(w, "invalid quantity or price", http.StatusUnprocessableEntity)
			return
		}

		invoice, err := billingSvc.AddItem(r.Context(), invoiceID, item)
		if err != nil {
			writeBillingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invoice)
	}
}

func RemoveInvoiceItemHandler(billingSvc *service.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID := chi.URLParam(r, "id")
		itemID := chi.URLParam(r, "itemID")

		invoice, err := billingSvc.RemoveItem(r.Context(), invoiceID, itemID)
		if err != nil {
			writeBillingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invoice)
	}
}

type invoiceStatusRequest struct {
	Status model.InvoiceStatus `json:"status"`
}

func UpdateInvoiceStatusHandler(billingSvc *service.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID := chi.URLParam(r, "id")

		var req invoiceStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := billingSvc.UpdateStatus(r.Context(), invoiceID, req.Status); err != nil {
			writeBillingError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func PayInvoiceHandler(billingSvc *service.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID := chi.URLParam(r, "id")

		var payment service.PaymentInput
		if err := json.NewDecoder(r.Body).Decode(&payment); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if payment.Method == "" {
			http.Error(w, "payment method required", http.StatusBadRequest)
			return
		}

		record, err := billingSvc.MarkPaid(r.Context(), invoiceID, payment)
		if err != nil {
			writeBillingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, record)
	}
}

// paymentSource is what the payments listing needs: the invoice for the
// ownership check and its payment records.
type paymentSource interface {
	GetByID(ctx context.Context, invoiceID string) (*model.Invoice, error)
	ListPayments(ctx context.Context, invoiceID string) ([]model.PaymentRecord, error)
}

func ListPaymentsHandler(billingSvc paymentSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)
		invoiceID := chi.URLParam(r, "id")

		invoice, err := billingSvc.GetByID(r.Context(), invoiceID)
		if err != nil {
			if errors.Is(err, service.ErrInvoiceNotFound) {
				http.Error(w, "invoice not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if invoice.UserID != userID && !mw.IsAdmin(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		payments, err := billingSvc.ListPayments(r.Context(), invoiceID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if len(payments) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, payments)
	}
}

func BillingStatsHandler(billingSvc *service.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)

		stats, err := billingSvc.Stats(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeBillingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvoiceNotFound), errors.Is(err, service.ErrInvoiceItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvoiceNotEditable),
		errors.Is(err, service.ErrInvoiceTransition),
		errors.Is(err, service.ErrInvoiceAlreadyPaid):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrUnknownInvoiceStatus), errors.Is(err, service.ErrInvalidPaymentAmount):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
