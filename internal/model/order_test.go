package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItemProgress(t *testing.T) {
	o := Order{}
	assert.Equal(t, 0, o.ItemProgress(), "no items must not divide by zero")

	o.Items = []OrderItem{
		{Produced: true},
		{Produced: true},
		{Produced: false},
	}
	assert.Equal(t, 67, o.ItemProgress())

	o.Items = []OrderItem{{Produced: true}, {Produced: true}}
	assert.Equal(t, 100, o.ItemProgress())
}

func TestDelayed(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -2)
	future := now.AddDate(0, 0, 2)

	o := Order{Status: StatusProcessing, EstimatedDelivery: &past}
	assert.True(t, o.Delayed(now))

	o.EstimatedDelivery = &future
	assert.False(t, o.Delayed(now))

	o.EstimatedDelivery = nil
	assert.False(t, o.Delayed(now), "no estimate means never delayed")

	delivered := Order{Status: StatusShipped, EstimatedDelivery: &past, ActualDelivery: &past}
	assert.False(t, delivered.Delayed(now))

	cancelled := Order{Status: StatusCancelled, EstimatedDelivery: &past}
	assert.False(t, cancelled.Delayed(now))
}

func TestOnTime(t *testing.T) {
	estimate := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	onTime := estimate.AddDate(0, 0, 1) // inside the one-day grace
	o := Order{EstimatedDelivery: &estimate, ActualDelivery: &onTime}
	ok, counted := o.OnTime()
	assert.True(t, counted)
	assert.True(t, ok)

	late := estimate.AddDate(0, 0, 2)
	o.ActualDelivery = &late
	ok, counted = o.OnTime()
	assert.True(t, counted)
	assert.False(t, ok)

	o.ActualDelivery = nil
	_, counted = o.OnTime()
	assert.False(t, counted, "orders without a delivery date are not counted")
}
