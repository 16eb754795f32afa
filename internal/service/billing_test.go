package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceNumber(t *testing.T) {
	dec := time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-202512-0007", invoiceNumber(dec, 7))

	mar := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-202603-0001", invoiceNumber(mar, 1), "month is zero padded")
}
