package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ddreams/internal/model"
	"ddreams/internal/mw"
	"ddreams/internal/service"
)

var csvHeader = []string{"ID", "Date", "Customer", "Email", "Status", "Total", "Items"}

// WriteOrdersCSV renders orders as CSV with a fixed column order.
// encoding/csv handles quoting, so embedded commas and quotes survive.
func WriteOrdersCSV(w io.Writer, orders []model.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range orders {
		o := &orders[i]
		names := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			names = append(names, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
		}
		record := []string{
			o.ID,
			o.CreatedAt.Format("2006-01-02"),
			o.CustomerName,
			o.CustomerEmail,
			string(o.Status),
			fmt.Sprintf("%.2f", o.Total),
			strings.Join(names, "; "),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportOrdersHandler downloads the caller's (filtered) order list as CSV.
// Accepts the same query parameters as the list endpoint.
func ExportOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
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
		orders = service.SortOrders(orders, service.SortByDate, true)

		filename := fmt.Sprintf("orders-%s.csv", time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := WriteOrdersCSV(w, orders); err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
		}
	}
}
