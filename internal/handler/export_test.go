package handler

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddreams/internal/model"
)

func TestWriteOrdersCSV(t *testing.T) {
	created := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	orders := []model.Order{
		{
			ID: "ord-1", CustomerName: "Acme Robotics", CustomerEmail: "buyer@acme.test",
			Status: model.StatusShipped, Total: 1200.5, CreatedAt: created,
			Items: []model.OrderItem{
				{Name: "Gear housing", Quantity: 3},
				{Name: "Mount plate", Quantity: 1},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOrdersCSV(&buf, orders))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{
		"ord-1", "2025-04-02", "Acme Robotics", "buyer@acme.test",
		"shipped", "1200.50", "Gear housing x3; Mount plate x1",
	}, records[1])
}

// Customer names with commas and quotes must survive a parse round trip.
func TestWriteOrdersCSVQuoting(t *testing.T) {
	name := `Smith, Jones & "Partners"`
	orders := []model.Order{
		{
			ID: "ord-2", CustomerName: name, CustomerEmail: "legal@sjp.test",
			Status: model.StatusPaid, Total: 99,
			CreatedAt: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
			Items:     []model.OrderItem{{Name: `Sign "OPEN", large`, Quantity: 2}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOrdersCSV(&buf, orders))
	assert.True(t, strings.Contains(buf.String(), `"`), "fields with commas get quoted")

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, name, records[1][2])
	assert.Equal(t, `Sign "OPEN", large x2`, records[1][6])
}

func TestWriteOrdersCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOrdersCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header only")
}
