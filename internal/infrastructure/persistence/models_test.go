package persistence

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etl/backend/internal/domain/commerce"
	"github.com/etl/backend/internal/etl/batch"
)

func TestOrderFactFromRecord(t *testing.T) {
	orderDate := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	rec := batch.Record{
		"order_id":          "1001",
		"order_date":        orderDate,
		"customer_id":       "42",
		"currency":          "usd",
		"total_amount":      59.98,
		"tax_amount":        5.0,
		"order_total":       59.98,
		"item_count":        2.0,
		"fraud_score":       3,
		"fraud_flag":        false,
		"validation_issues": []string{"missing_customer_id"},
		"shipping_address":  map[string]any{"country_code": "US"},
		"line_items":        []any{map[string]any{"sku": "A", "qty": 2.0}},
		"raw_payload":       map[string]any{"id": 1001.0, "source": "shopify"},
	}

	fact := OrderFactFromRecord(rec, "run-1")

	assert.Equal(t, "1001", fact.OrderID)
	require.NotNil(t, fact.OrderDate)
	assert.True(t, orderDate.Equal(*fact.OrderDate))
	assert.Equal(t, "42", fact.CustomerID)
	assert.Equal(t, "USD", fact.Currency)
	require.NotNil(t, fact.TotalAmount)
	assert.True(t, fact.TotalAmount.Equal(decimal.NewFromFloat(59.98)))
	require.NotNil(t, fact.OrderTotal)
	assert.InDelta(t, 59.98, *fact.OrderTotal, 1e-9)
	assert.Equal(t, 2, fact.ItemCount)
	assert.Equal(t, 3, fact.FraudScore)
	assert.False(t, fact.FraudFlag)
	assert.Contains(t, fact.ValidationIssues, "missing_customer_id")
	assert.Contains(t, fact.ShippingAddress, "US")
	assert.Contains(t, fact.LineItems, `"sku":"A"`)
	assert.Contains(t, fact.RawPayload, `"source":"shopify"`)
	assert.Equal(t, "run-1", fact.RunID)
}

func TestOrderFactFromRecord_NilCellsBecomeNullColumns(t *testing.T) {
	rec := batch.Record{
		"order_id":     "1002",
		"order_date":   nil,
		"total_amount": nil,
		"order_total":  nil,
	}

	fact := OrderFactFromRecord(rec, "run-1")

	assert.Nil(t, fact.OrderDate)
	assert.Nil(t, fact.TotalAmount)
	assert.Nil(t, fact.OrderTotal)
	assert.Empty(t, fact.CustomerID)
	assert.Equal(t, "null", fact.LineItems)
	assert.Equal(t, "null", fact.RawPayload)
}

func TestCustomerDimFromCustomer(t *testing.T) {
	clv := 150.0
	last := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	c := commerce.Customer{
		CustomerID:         "42",
		Email:              "ada@example.com",
		Name:               "Ada",
		CreatedAt:          "2024-01-15T10:30:00Z",
		LastOrderID:        "1001",
		TotalLifetimeValue: &clv,
		Metadata: map[string]any{
			"total_orders":    3,
			"avg_order_value": 50.0,
			"last_order_date": last,
		},
	}

	dim := CustomerDimFromCustomer(c, "run-1")

	assert.Equal(t, "42", dim.CustomerID)
	assert.Equal(t, "ada@example.com", dim.Email)
	require.NotNil(t, dim.CreatedAt)
	assert.Equal(t, 2024, dim.CreatedAt.Year())
	require.NotNil(t, dim.TotalLifetimeValue)
	assert.Equal(t, 150.0, *dim.TotalLifetimeValue)
	assert.Equal(t, 3, dim.TotalOrders)
	assert.Equal(t, 50.0, dim.AvgOrderValue)
	require.NotNil(t, dim.LastOrderDate)
	assert.True(t, last.Equal(*dim.LastOrderDate))
}

func TestTransactionFactFromTransaction(t *testing.T) {
	amt := decimal.NewFromFloat(59.98)
	tx := commerce.Transaction{
		TransactionID:   "ch_1",
		TransactionDate: "2024-01-15T10:30:00",
		OrderID:         "1001",
		CustomerID:      "cus_9",
		PaymentProvider: commerce.ProviderStripe,
		Amount:          &amt,
		Currency:        "usd",
		Status:          "paid",
		RawPayload:      map[string]any{"id": "ch_1", "paid": true},
	}

	fact := TransactionFactFromTransaction(tx, "run-1")

	assert.Equal(t, "ch_1", fact.TransactionID)
	assert.Equal(t, "stripe", fact.PaymentProvider)
	assert.Equal(t, "USD", fact.Currency)
	require.NotNil(t, fact.Amount)
	assert.True(t, fact.Amount.Equal(amt))
	require.NotNil(t, fact.TransactionDate)
	assert.Equal(t, 15, fact.TransactionDate.Day())
	assert.Contains(t, fact.RawPayload, `"paid":true`)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "customers_dim", CustomerDim{}.TableName())
	assert.Equal(t, "orders_fact", OrderFact{}.TableName())
	assert.Equal(t, "transactions_fact", TransactionFact{}.TableName())
}
