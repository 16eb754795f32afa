package model

import (
	"encoding/json"
	"math"
	"time"
)

type Order struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	CustomerName      string         `json:"customer_name"`
	CustomerEmail     string         `json:"customer_email"`
	Status            OrderStatus    `json:"status"`
	Items             []OrderItem    `json:"items,omitempty"`
	Subtotal          float64        `json:"subtotal"`
	Discount          float64        `json:"discount"`
	TaxAmount         float64        `json:"tax_amount"`
	ShippingCost      float64        `json:"shipping_cost"`
	Total             float64        `json:"total"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time     `json:"actual_delivery,omitempty"`
	History           []StatusChange `json:"history,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     float64         `json:"unit_price"`
	Total         float64         `json:"total"`
	Customization json.RawMessage `json:"customization,omitempty"`
	Produced      bool            `json:"produced"`
}

// StatusChange is one entry of an order's append-only status history.
type StatusChange struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	Actor     string      `json:"actor"`
	ChangedAt time.Time   `json:"changed_at"`
}

// ItemProgress returns the production progress of the order as a rounded
// percentage of items already printed. Orders without items report 0.
func (o *Order) ItemProgress() int {
	if len(o.Items) == 0 {
		return 0
	}
	produced := 0
	for _, it := range o.Items {
		if it.Produced {
			produced++
		}
	}
	return int(math.Round(float64(produced) / float64(len(o.Items)) * 100))
}

// Delayed reports whether the order missed its delivery estimate: the
// estimate has passed without delivery and the order is still in flight.
func (o *Order) Delayed(now time.Time) bool {
	if o.EstimatedDelivery == nil || o.ActualDelivery != nil || o.Status.Terminal() || o.Status == StatusCompleted {
		return false
	}
	return now.After(*o.EstimatedDelivery)
}

// OnTime reports whether a completed order was delivered within its
// estimate plus a one-day grace period. Second result is false when the
// order has no estimate or no delivery date to compare.
func (o *Order) OnTime() (bool, bool) {
	if o.EstimatedDelivery == nil || o.ActualDelivery == nil {
		return false, false
	}
	grace := o.EstimatedDelivery.AddDate(0, 0, 1)
	return !o.ActualDelivery.After(grace), true
}

// Round2 rounds a monetary value to 2 decimals. All stored money fields
// pass through this.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
