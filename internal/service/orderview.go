package service

import (
	"sort"
	"strings"
	"time"

	"ddreams/internal/model"
)

// OrderFilter narrows an order list. Zero values mean "no constraint".
// Each predicate is independent of the others, so filters can be applied
// in any order with the same result.
type OrderFilter struct {
	Statuses  []model.OrderStatus
	From      *time.Time
	To        *time.Time
	MinAmount *float64
	MaxAmount *float64
	Search    string
}

type SortField string

const (
	SortByDate     SortField = "date"
	SortByStatus   SortField = "status"
	SortByAmount   SortField = "amount"
	SortByDelivery SortField = "delivery"
)

// FilterOrders returns a new slice holding the orders matching every
// constraint of the filter. The input is never mutated.
func FilterOrders(orders []model.Order, f OrderFilter) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if matchesFilter(&o, f) {
			out = append(out, o)
		}
	}
	return out
}

func matchesFilter(o *model.Order, f OrderFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if o.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && o.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.CreatedAt.After(*f.To) {
		return false
	}
	if f.MinAmount != nil && o.Total < *f.MinAmount {
		return false
	}
	if f.MaxAmount != nil && o.Total > *f.MaxAmount {
		return false
	}
	if f.Search != "" && !matchesSearch(o, f.Search) {
		return false
	}
	return true
}

// matchesSearch does a case-insensitive substring match over the order
// id, customer email and name, and every item name.
func matchesSearch(o *model.Order, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(o.ID), q) ||
		strings.Contains(strings.ToLower(o.CustomerEmail), q) ||
		strings.Contains(strings.ToLower(o.CustomerName), q) {
		return true
	}
	for _, it := range o.Items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			return true
		}
	}
	return false
}

// SortOrders sorts a copy of the list by the given field. Status sorts
// by lifecycle position, delivery by estimated date (orders without an
// estimate sort last).
func SortOrders(orders []model.Order, field SortField, desc bool) []model.Order {
	out := make([]model.Order, len(orders))
	copy(out, orders)

	less := func(a, b *model.Order) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch field {
	case SortByStatus:
		less = func(a, b *model.Order) bool { return a.Status.Rank() < b.Status.Rank() }
	case SortByAmount:
		less = func(a, b *model.Order) bool { return a.Total < b.Total }
	case SortByDelivery:
		less = func(a, b *model.Order) bool {
			switch {
			case a.EstimatedDelivery == nil:
				return false
			case b.EstimatedDelivery == nil:
				return true
			default:
				return a.EstimatedDelivery.Before(*b.EstimatedDelivery)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(&out[j], &out[i])
		}
		return less(&out[i], &out[j])
	})
	return out
}

// OrderStats aggregates a list of orders in one linear scan.
type OrderStats struct {
	Total        int                       `json:"total"`
	ByStatus     map[model.OrderStatus]int `json:"by_status"`
	Revenue      float64                   `json:"revenue"`
	AverageValue float64                   `json:"average_value"` // over revenue-bearing orders
	Delayed      int                       `json:"delayed"`
	OnTimeRate   float64                   `json:"on_time_rate"` // percent, over orders with an estimate
	WithEstimate int                       `json:"with_estimate"`
}

func ComputeOrderStats(orders []model.Order, now time.Time) OrderStats {
	stats := OrderStats{ByStatus: make(map[model.OrderStatus]int)}

	onTime, revenueOrders := 0, 0
	for i := range orders {
		o := &orders[i]
		stats.Total++
		stats.ByStatus[o.Status]++
		if o.Status != model.StatusCancelled && o.Status != model.StatusRefunded {
			stats.Revenue += o.Total
			revenueOrders++
		}
		if o.Delayed(now) {
			stats.Delayed++
		}
		if ok, counted := o.OnTime(); counted {
			stats.WithEstimate++
			if ok {
				onTime++
			}
		}
	}
	stats.Revenue = model.Round2(stats.Revenue)
	if revenueOrders > 0 {
		stats.AverageValue = model.Round2(stats.Revenue / float64(revenueOrders))
	}
	if stats.WithEstimate > 0 {
		stats.OnTimeRate = model.Round2(float64(onTime) / float64(stats.WithEstimate) * 100)
	}
	return stats
}
