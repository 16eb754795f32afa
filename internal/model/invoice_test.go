package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeInvoiceTotals(t *testing.T) {
	items := []InvoiceItem{
		{Quantity: 5, UnitPrice: 150, TaxRate: 0.18},
		{Quantity: 1, UnitPrice: 200, TaxRate: 0.18},
	}

	totals := ComputeInvoiceTotals(items, 0)

	assert.Equal(t, 950.00, totals.Subtotal)
	assert.Equal(t, 171.00, totals.TaxAmount)
	assert.Equal(t, 1121.00, totals.Total)
}

func TestComputeInvoiceTotalsIdentity(t *testing.T) {
	items := []InvoiceItem{
		{Quantity: 3, UnitPrice: 19.99, TaxRate: 0.21},
		{Quantity: 2, UnitPrice: 7.5, TaxRate: 0.1},
	}

	totals := ComputeInvoiceTotals(items, 12.34)

	// subtotal + tax - discount == total, within 2-decimal rounding
	assert.Equal(t, Round2(totals.Subtotal+totals.TaxAmount-12.34), totals.Total)
}

func TestComputeInvoiceTotalsAddRemoveRestores(t *testing.T) {
	base := []InvoiceItem{
		{Quantity: 2, UnitPrice: 45.5, TaxRate: 0.21},
		{Quantity: 1, UnitPrice: 120, TaxRate: 0.21},
	}
	before := ComputeInvoiceTotals(base, 10)

	extra := InvoiceItem{Quantity: 4, UnitPrice: 9.99, TaxRate: 0.1}
	withExtra := ComputeInvoiceTotals(append(append([]InvoiceItem{}, base...), extra), 10)
	assert.NotEqual(t, before.Total, withExtra.Total)

	after := ComputeInvoiceTotals(base, 10)
	assert.Equal(t, before, after)
}

func TestComputeInvoiceTotalsEmpty(t *testing.T) {
	totals := ComputeInvoiceTotals(nil, 0)
	assert.Equal(t, 0.0, totals.Subtotal)
	assert.Equal(t, 0.0, totals.TaxAmount)
	assert.Equal(t, 0.0, totals.Total)
}

func TestInvoiceTransitions(t *testing.T) {
	assert.True(t, CanTransitionInvoice(InvoiceDraft, InvoiceSent))
	assert.True(t, CanTransitionInvoice(InvoiceSent, InvoicePaid))
	assert.True(t, CanTransitionInvoice(InvoiceSent, InvoiceOverdue))
	assert.True(t, CanTransitionInvoice(InvoiceOverdue, InvoicePaid))

	assert.False(t, CanTransitionInvoice(InvoiceDraft, InvoicePaid))
	assert.False(t, CanTransitionInvoice(InvoicePaid, InvoiceSent))
	assert.False(t, CanTransitionInvoice(InvoiceCancelled, InvoiceSent))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.57, Round2(10.566))
	assert.Equal(t, 0.1, Round2(0.1))
	assert.Equal(t, 2.72, Round2(2.718))
	assert.Equal(t, -3.14, Round2(-3.14159))
}
