package model

import "time"

type OrderStatus string

const (
	StatusQuoteRequested OrderStatus = "quote_requested"
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusPaid           OrderStatus = "paid"
	StatusProcessing     OrderStatus = "processing"
	StatusReady          OrderStatus = "ready"
	StatusShipped        OrderStatus = "shipped"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
	StatusRefunded       OrderStatus = "refunded"
)

// lifecycle holds the forward path; used for ordering when sorting by status.
var lifecycle = []OrderStatus{
	StatusQuoteRequested,
	StatusPendingPayment,
	StatusPaid,
	StatusProcessing,
	StatusReady,
	StatusShipped,
	StatusCompleted,
	StatusCancelled,
	StatusRefunded,
}

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusQuoteRequested: {StatusPendingPayment: true, StatusCancelled: true},
	StatusPendingPayment: {StatusPaid: true, StatusCancelled: true},
	StatusPaid:           {StatusProcessing: true, StatusCancelled: true, StatusRefunded: true},
	StatusProcessing:     {StatusReady: true, StatusCancelled: true, StatusRefunded: true},
	StatusReady:          {StatusShipped: true, StatusCancelled: true, StatusRefunded: true},
	StatusShipped:        {StatusCompleted: true, StatusRefunded: true},
	StatusCompleted:      {StatusRefunded: true},
	StatusCancelled:      {},
	StatusRefunded:       {},
}

var statusProgress = map[OrderStatus]int{
	StatusQuoteRequested: 5,
	StatusPendingPayment: 10,
	StatusPaid:           25,
	StatusProcessing:     50,
	StatusReady:          75,
	StatusShipped:        90,
	StatusCompleted:      100,
	StatusCancelled:      0,
	StatusRefunded:       0,
}

// deliveryOffsetDays maps a status to the number of days added to the
// order's creation date when estimating delivery. Terminal statuses and
// completed have no estimate offset.
var deliveryOffsetDays = map[OrderStatus]int{
	StatusQuoteRequested: 10,
	StatusPendingPayment: 7,
	StatusPaid:           6,
	StatusProcessing:     5,
	StatusReady:          2,
	StatusShipped:        1,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusProgress[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return len(validNext[s]) == 0
}

// Rank returns the position of the status in the lifecycle, for sorting.
func (s OrderStatus) Rank() int {
	for i, st := range lifecycle {
		if st == s {
			return i
		}
	}
	return len(lifecycle)
}

// Progress returns the lifecycle completion percentage for a status.
func (s OrderStatus) Progress() int {
	return statusProgress[s]
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// EstimateDelivery derives an estimated delivery date from the order's
// creation date and its current status. Returns nil for statuses that
// carry no estimate (terminal states and completed).
func EstimateDelivery(createdAt time.Time, status OrderStatus) *time.Time {
	days, ok := deliveryOffsetDays[status]
	if !ok {
		return nil
	}
	t := createdAt.AddDate(0, 0, days)
	return &t
}
