package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddreams/internal/model"
)

func day(d int) time.Time {
	return time.Date(2025, 5, d, 10, 0, 0, 0, time.UTC)
}

func sampleOrders() []model.Order {
	est1 := day(12)
	est2 := day(3)
	return []model.Order{
		{
			ID: "o1", CustomerName: "Acme Robotics", CustomerEmail: "buyer@acme.test",
			Status: model.StatusProcessing, Total: 450.00, CreatedAt: day(5),
			EstimatedDelivery: &est1,
			Items:             []model.OrderItem{{Name: "Gear housing", Quantity: 3}},
		},
		{
			ID: "o2", CustomerName: "Bolt Studio", CustomerEmail: "ops@bolt.test",
			Status: model.StatusShipped, Total: 1200.50, CreatedAt: day(1),
			EstimatedDelivery: &est2,
			Items:             []model.OrderItem{{Name: "Lamp shade", Quantity: 10}},
		},
		{
			ID: "o3", CustomerName: "Acme Robotics", CustomerEmail: "buyer@acme.test",
			Status: model.StatusCompleted, Total: 80.00, CreatedAt: day(10),
		},
		{
			ID: "o4", CustomerName: "Cove Makers", CustomerEmail: "hello@cove.test",
			Status: model.StatusCancelled, Total: 300.00, CreatedAt: day(8),
		},
	}
}

func TestFilterOrdersByStatus(t *testing.T) {
	orders := sampleOrders()

	got := FilterOrders(orders, OrderFilter{Statuses: []model.OrderStatus{model.StatusProcessing, model.StatusShipped}})

	require.Len(t, got, 2)
	assert.Equal(t, "o1", got[0].ID)
	assert.Equal(t, "o2", got[1].ID)
	assert.Len(t, orders, 4, "input must not be mutated")
}

func TestFilterOrdersDateAndAmount(t *testing.T) {
	orders := sampleOrders()
	from, to := day(4), day(9)
	minAmt := 100.0

	got := FilterOrders(orders, OrderFilter{From: &from, To: &to, MinAmount: &minAmt})

	require.Len(t, got, 2) // o1 and o4
	assert.Equal(t, "o1", got[0].ID)
	assert.Equal(t, "o4", got[1].ID)
}

func TestFilterOrdersSearch(t *testing.T) {
	orders := sampleOrders()

	byItem := FilterOrders(orders, OrderFilter{Search: "lamp"})
	require.Len(t, byItem, 1)
	assert.Equal(t, "o2", byItem[0].ID)

	byEmail := FilterOrders(orders, OrderFilter{Search: "ACME"})
	assert.Len(t, byEmail, 2)

	byID := FilterOrders(orders, OrderFilter{Search: "o4"})
	require.Len(t, byID, 1)
	assert.Equal(t, "o4", byID[0].ID)
}

// Independent predicates must commute: filtering by status then date
// range equals filtering by date range then status.
func TestFilterOrdersCommutes(t *testing.T) {
	orders := sampleOrders()
	from := day(2)
	statusFilter := OrderFilter{Statuses: []model.OrderStatus{model.StatusProcessing, model.StatusCompleted}}
	dateFilter := OrderFilter{From: &from}

	statusThenDate := FilterOrders(FilterOrders(orders, statusFilter), dateFilter)
	dateThenStatus := FilterOrders(FilterOrders(orders, dateFilter), statusFilter)
	combined := FilterOrders(orders, OrderFilter{Statuses: statusFilter.Statuses, From: &from})

	assert.Equal(t, statusThenDate, dateThenStatus)
	assert.Equal(t, combined, statusThenDate)
}

func TestSortOrders(t *testing.T) {
	orders := sampleOrders()

	byAmount := SortOrders(orders, SortByAmount, false)
	assert.Equal(t, "o3", byAmount[0].ID)
	assert.Equal(t, "o2", byAmount[len(byAmount)-1].ID)

	byAmountDesc := SortOrders(orders, SortByAmount, true)
	assert.Equal(t, "o2", byAmountDesc[0].ID)

	byStatus := SortOrders(orders, SortByStatus, false)
	assert.Equal(t, model.StatusProcessing, byStatus[0].Status)
	assert.Equal(t, model.StatusCancelled, byStatus[len(byStatus)-1].Status)

	byDelivery := SortOrders(orders, SortByDelivery, false)
	assert.Equal(t, "o2", byDelivery[0].ID, "earliest estimate first")
	assert.Nil(t, byDelivery[len(byDelivery)-1].EstimatedDelivery, "orders without estimate sort last")

	assert.Equal(t, "o1", orders[0].ID, "input must not be reordered")
}

func TestComputeOrderStats(t *testing.T) {
	now := day(20)
	orders := sampleOrders()

	// o3 completed on time, o1 past its estimate
	actual := day(10)
	est3 := day(11)
	orders[2].EstimatedDelivery = &est3
	orders[2].ActualDelivery = &actual

	stats := ComputeOrderStats(orders, now)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[model.StatusProcessing])
	assert.Equal(t, 1, stats.ByStatus[model.StatusCancelled])
	// cancelled order's 300.00 excluded from revenue
	assert.Equal(t, 1730.50, stats.Revenue)
	// average over the 3 revenue-bearing orders, not all 4
	assert.Equal(t, 576.83, stats.AverageValue)
	assert.Equal(t, 2, stats.Delayed) // o1 and o2 are past their estimates
	assert.Equal(t, 1, stats.WithEstimate)
	assert.Equal(t, 100.0, stats.OnTimeRate)
}

// A cancelled order must not drag the average down: revenue and the
// divisor exclude the same orders.
func TestComputeOrderStatsAverageIgnoresCancelled(t *testing.T) {
	orders := []model.Order{
		{ID: "a", Status: model.StatusCompleted, Total: 100},
		{ID: "b", Status: model.StatusCancelled, Total: 300},
	}

	stats := ComputeOrderStats(orders, time.Now())

	assert.Equal(t, 100.0, stats.Revenue)
	assert.Equal(t, 100.0, stats.AverageValue)
}

func TestComputeOrderStatsEmpty(t *testing.T) {
	stats := ComputeOrderStats(nil, time.Now())
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.AverageValue)
	assert.Equal(t, 0.0, stats.OnTimeRate)
}
