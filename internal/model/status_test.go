package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{StatusQuoteRequested, StatusPendingPayment, true},
		{StatusPendingPayment, StatusPaid, true},
		{StatusPaid, StatusProcessing, true},
		{StatusProcessing, StatusReady, true},
		{StatusReady, StatusShipped, true},
		{StatusShipped, StatusCompleted, true},
		{StatusCompleted, StatusRefunded, true},

		// no jumping ahead or moving backwards
		{StatusCompleted, StatusPendingPayment, false},
		{StatusPendingPayment, StatusShipped, false},
		{StatusShipped, StatusProcessing, false},
		{StatusQuoteRequested, StatusPaid, false},

		// terminal states stay terminal
		{StatusCancelled, StatusPendingPayment, false},
		{StatusRefunded, StatusCompleted, false},

		// cancellation reachable early, not after shipping
		{StatusQuoteRequested, StatusCancelled, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusShipped, StatusCancelled, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStatusProgress(t *testing.T) {
	// shipped maps to 90, the canonical table
	assert.Equal(t, 90, StatusShipped.Progress())
	assert.Equal(t, 100, StatusCompleted.Progress())
	assert.Equal(t, 0, StatusCancelled.Progress())
	assert.Equal(t, 5, StatusQuoteRequested.Progress())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusProcessing.Valid())
	assert.False(t, OrderStatus("in-production").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestStatusRankFollowsLifecycle(t *testing.T) {
	assert.Less(t, StatusQuoteRequested.Rank(), StatusPendingPayment.Rank())
	assert.Less(t, StatusPaid.Rank(), StatusShipped.Rank())
	assert.Less(t, StatusCompleted.Rank(), StatusCancelled.Rank())
}

func TestEstimateDelivery(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		status OrderStatus
		days   int
	}{
		{StatusPendingPayment, 7},
		{StatusProcessing, 5},
		{StatusShipped, 1},
		{StatusQuoteRequested, 10},
	}
	for _, tt := range tests {
		got := EstimateDelivery(created, tt.status)
		require.NotNil(t, got, "status %s", tt.status)
		assert.Equal(t, created.AddDate(0, 0, tt.days), *got, "status %s", tt.status)
	}

	assert.Nil(t, EstimateDelivery(created, StatusCompleted))
	assert.Nil(t, EstimateDelivery(created, StatusCancelled))
}
