package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddreams/internal/model"
)

type stubTaxes struct {
	rate float64
}

func (s *stubTaxes) TaxRate(context.Context) float64 { return s.rate }

// The tax rate must be read from settings on every order, not frozen at
// service construction.
func TestOrderTaxRateFollowsSettings(t *testing.T) {
	taxes := &stubTaxes{rate: 0.21}
	svc := NewOrderService(nil, nil, nil, nil, "api", taxes)

	assert.Equal(t, 0.21, svc.currentTaxRate(context.Background()))

	taxes.rate = 0.09
	assert.Equal(t, 0.09, svc.currentTaxRate(context.Background()))
}

func TestOrderTaxRateWithoutSource(t *testing.T) {
	svc := NewOrderService(nil, nil, nil, nil, "api", nil)
	assert.Equal(t, 0.0, svc.currentTaxRate(context.Background()))
}

func TestStatusCacheValue(t *testing.T) {
	v := statusCacheValue("user-1", model.StatusPaid)

	userID, status, ok := parseStatusCache(v)
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, model.StatusPaid, status)

	_, _, ok = parseStatusCache("paid")
	assert.False(t, ok, "values without an owner are treated as a miss")

	_, _, ok = parseStatusCache("user-1|in-production")
	assert.False(t, ok, "unknown status is treated as a miss")
}
