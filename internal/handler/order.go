package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ddreams/internal/model"
	"ddreams/internal/mw"
	"ddreams/internal/service"
)

type createOrderRequest struct {
	Items    []service.NewOrderItem `json:"items"`
	Discount float64                `json:"discount"`
	Shipping float64                `json:"shipping"`
}

// CreateOrderHandler places an order straight into pending_payment.
// CreateQuoteHandler is the same flow entering at quote_requested.
func CreateOrderHandler(orderSvc *service.OrderService, authSvc *service.AuthService) http.HandlerFunc {
	return createHandler(orderSvc, authSvc, false)
}

func CreateQuoteHandler(orderSvc *service.OrderService, authSvc *service.AuthService) http.HandlerFunc {
	return createHandler(orderSvc, authSvc, true)
}

func createHandler(orderSvc *service.OrderService, authSvc *service.AuthService, asQuote bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.UserID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		user, err := authSvc.GetByID(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		order, err := orderSvc.Create(r.Context(), user, req.Items, req.Discount, req.Shipping, asQuote)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmptyOrder), errors.Is(err, service.ErrProductNotFound):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

func ApproveQuoteHandler(orderSvc *service.OrderService, authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)
		orderID := chi.URLParam(r, "id")

		order, err := orderSvc.GetByID(r.Context(), orderID)
		if err != nil {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		if order.UserID != userID && !mw.IsAdmin(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		user, err := authSvc.GetByID(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if err := orderSvc.ApproveQuote(r.Context(), orderID, user.Email); err != nil {
			if errors.Is(err, service.ErrInvalidTransition) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// parseOrderFilter builds an OrderFilter from query parameters:
// status (comma separated), from, to (RFC3339 or 2006-01-02), min, max, q.
func parseOrderFilter(r *http.Request) (service.OrderFilter, error) {
	var f service.OrderFilter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := model.OrderStatus(strings.TrimSpace(s))
			if !st.Valid() {
				return f, errors.New("unknown status: " + string(st))
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if raw := q.Get("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, err
		}
		f.To = &t
	}
	if raw := q.Get("min"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, errors.New("invalid min amount")
		}
		f.MinAmount = &v
	}
	if raw := q.Get("max"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, errors.New("invalid max amount")
		}
		f.MaxAmount = &v
	}
	f.Search = q.Get("q")
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.New("invalid date: " + s)
	}
	return t, nil
}

func ListOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)

		filter, err := parseOrderFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		orders, err := orderSvc.ListByUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		orders = service.FilterOrders(orders, filter)
		sortField := service.SortField(r.URL.Query().Get("sort"))
		if sortField == "" {
			sortField = service.SortByDate
		}
		desc := r.URL.Query().Get("dir") != "asc"
		orders = service.SortOrders(orders, sortField, desc)

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

type orderResponse struct {
	*model.Order
	Progress     int `json:"progress"`      // lifecycle percent
	ItemProgress int `json:"item_progress"` // printed items percent
}

func GetOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)
		orderID := chi.URLParam(r, "id")

		order, err := orderSvc.GetByID(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if order.UserID != userID && !mw.IsAdmin(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, orderResponse{
			Order:        order,
			Progress:     order.Status.Progress(),
			ItemProgress: order.ItemProgress(),
		})
	}
}

// statusSource answers order status polls, ideally from cache.
type statusSource interface {
	CachedStatus(ctx context.Context, orderID string) (model.OrderStatus, string, error)
}

// OrderStatusHandler is the cheap polling endpoint: status only, served
// from the Redis cache when warm. Only the order's owner or an admin
// may poll it.
func OrderStatusHandler(orderSvc statusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)
		orderID := chi.URLParam(r, "id")

		status, ownerID, err := orderSvc.CachedStatus(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if ownerID != userID && !mw.IsAdmin(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":   status,
			"progress": status.Progress(),
		})
	}
}

type updateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
	Note   string            `json:"note,omitempty"`
}

// UpdateOrderStatusHandler drives the lifecycle. Admins may apply any
// allowed transition; customers may only cancel their own orders.
func UpdateOrderStatusHandler(orderSvc *service.OrderService, authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)
		orderID := chi.URLParam(r, "id")

		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if !mw.IsAdmin(r) {
			order, err := orderSvc.GetByID(r.Context(), orderID)
			if err != nil {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			if order.UserID != userID || req.Status != model.StatusCancelled {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		user, err := authSvc.GetByID(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		err = orderSvc.UpdateStatus(r.Context(), orderID, req.Status, req.Note, user.Email)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, service.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, service.ErrUnknownStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

type bulkStatusRequest struct {
	OrderIDs []string          `json:"order_ids"`
	Status   model.OrderStatus `json:"status"`
	Note     string            `json:"note,omitempty"`
}

func BulkStatusHandler(orderSvc *service.OrderService, authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)

		var req bulkStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if len(req.OrderIDs) == 0 {
			http.Error(w, "order_ids required", http.StatusBadRequest)
			return
		}

		user, err := authSvc.GetByID(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		results := orderSvc.BulkUpdateStatus(r.Context(), req.OrderIDs, req.Status, req.Note, user.Email)
		resp := make(map[string]string, len(results))
		for id, err := range results {
			if err == nil {
				resp[id] = "ok"
			} else {
				resp[id] = err.Error()
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func DelayedOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)
		if mw.IsAdmin(r) {
			userID = "" // admins see every delayed order
		}

		orders, err := orderSvc.DelayedOrders(r.Context(), userID, 100)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func MarkItemProducedHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "id")
		itemID := chi.URLParam(r, "itemID")

		if err := orderSvc.MarkItemProduced(r.Context(), orderID, itemID); err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				http.Error(w, "order item not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func OrderStatsHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)

		orders, err := orderSvc.ListByUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, service.ComputeOrderStats(orders, time.Now()))
	}
}
