package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etl/backend/internal/etl/batch"
)

func TestCalculateOrderTotal_PriceTimesQuantity(t *testing.T) {
	b := batch.Batch{
		{"price": 10.0, "quantity": 2.0},
		{"price": 5.0, "quantity": 3.0},
	}

	out := CalculateOrderTotal(b, OrderTotalOptions{})

	assert.Equal(t, 20.0, out[0]["order_total"])
	assert.Equal(t, 15.0, out[1]["order_total"])
	_, ok := b[0]["order_total"]
	assert.False(t, ok, "input batch must not be mutated")
}

func TestCalculateOrderTotal_MissingQuantityDefaultsToOne(t *testing.T) {
	b := batch.Batch{
		{"price": 10.0},
	}

	out := CalculateOrderTotal(b, OrderTotalOptions{})
	assert.Equal(t, 10.0, out[0]["order_total"])
}

func TestCalculateOrderTotal_DiscountTaxShipping(t *testing.T) {
	b := batch.Batch{
		{"price": 100.0, "quantity": 1.0, "discount": 10.0, "tax": 5.0, "shipping": 7.5},
	}

	out := CalculateOrderTotal(b, OrderTotalOptions{
		DiscountColumn: "discount",
		TaxColumn:      "tax",
		ShippingColumn: "shipping",
	})
	assert.Equal(t, 102.5, out[0]["order_total"])
}

func TestCalculateOrderTotal_OptionalColumnsAbsentFromBatch(t *testing.T) {
	// Configured optional columns that no record carries are ignored
	b := batch.Batch{
		{"price": 10.0, "quantity": 2.0},
	}

	out := CalculateOrderTotal(b, OrderTotalOptions{
		DiscountColumn: "discount",
	})
	assert.Equal(t, 20.0, out[0]["order_total"])
}

func TestCalculateOrderTotal_MissingPriceDefaultsToZero(t *testing.T) {
	b := batch.Batch{
		{"quantity": 4.0},
	}

	out := CalculateOrderTotal(b, OrderTotalOptions{})
	assert.Equal(t, 0.0, out[0]["order_total"])
}

func TestCalculateCLV_Aggregates(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	b := batch.Batch{
		{"customer_id": "c1", "order_total": 10.0, "order_date": "2024-06-01"},
		{"customer_id": "c2", "order_total": 50.0, "order_date": "2024-05-01"},
		{"customer_id": "c1", "order_total": 20.0, "order_date": "2024-06-05"},
	}

	out := CalculateCLV(b, "customer_id", "order_total", now)

	require.Len(t, out, 2)

	c1 := out[0]
	assert.Equal(t, "c1", c1.CustomerID)
	assert.Equal(t, 30.0, c1.CLV)
	assert.Equal(t, 2, c1.TotalOrders)
	assert.Equal(t, 15.0, c1.AvgOrderValue)
	assert.Equal(t, 2, c1.Frequency)
	require.NotNil(t, c1.RecencyDays)
	assert.Equal(t, 5, *c1.RecencyDays)
	require.NotNil(t, c1.LastOrderDate)
	assert.True(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC).Equal(*c1.LastOrderDate))

	c2 := out[1]
	assert.Equal(t, "c2", c2.CustomerID)
	assert.Equal(t, 50.0, c2.CLV)
	assert.Equal(t, 1, c2.TotalOrders)
	require.NotNil(t, c2.RecencyDays)
	assert.Equal(t, 40, *c2.RecencyDays)
}

func TestCalculateCLV_SkipsRowsWithoutCustomer(t *testing.T) {
	b := batch.Batch{
		{"customer_id": nil, "order_total": 10.0},
		{"order_total": 20.0},
		{"customer_id": "c1", "order_total": 5.0},
	}

	out := CalculateCLV(b, "", "", time.Now())

	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].CustomerID)
	assert.Equal(t, 5.0, out[0].CLV)
}

func TestCalculateCLV_NoParseableDatesLeavesRecencyNil(t *testing.T) {
	b := batch.Batch{
		{"customer_id": "c1", "order_total": 5.0},
	}

	out := CalculateCLV(b, "", "", time.Now())

	require.Len(t, out, 1)
	assert.Nil(t, out[0].RecencyDays)
	assert.Nil(t, out[0].LastOrderDate)
}

func TestCalculateCLV_NumericCustomerIDs(t *testing.T) {
	// JSON-decoded numeric ids group with their string form
	b := batch.Batch{
		{"customer_id": 42.0, "order_total": 10.0},
		{"customer_id": "42", "order_total": 15.0},
	}

	out := CalculateCLV(b, "", "", time.Now())

	require.Len(t, out, 1)
	assert.Equal(t, "42", out[0].CustomerID)
	assert.Equal(t, 25.0, out[0].CLV)
}
