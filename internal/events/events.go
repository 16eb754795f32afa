package events

import (
	"encoding/json"
	"time"

	"ddreams/internal/model"
)

const (
	TopicOrderStatusChanged = "order.status.changed"

	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Envelope is the versioned wrapper every published event uses.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderStatusChangedPayload struct {
	OrderID string            `json:"order_id"`
	UserID  string            `json:"user_id"`
	From    model.OrderStatus `json:"from,omitempty"`
	To      model.OrderStatus `json:"to"`
	Note    string            `json:"note,omitempty"`
	Actor   string            `json:"actor"`
}

type OrderCreatedPayload struct {
	OrderID string            `json:"order_id"`
	UserID  string            `json:"user_id"`
	Status  model.OrderStatus `json:"status"`
	Total   float64           `json:"total"`
}

// Events for one order share a partition so consumers see them in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
