package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etl/backend/internal/etl/batch"
)

func TestCheckOrders_Defaults(t *testing.T) {
	orders := []batch.Record{
		{"order_id": "o1", "customer_id": "c1", "order_date": "2024-01-01", "order_total": 10.0},
		{"order_id": "o2", "order_date": "2024-01-02", "order_total": -5.0},
		{"order_id": "o3", "customer_id": "c3", "order_date": "2024-01-03", "order_total": "abc"},
	}

	results := CheckOrders(orders, nil)
	require.Len(t, results, 3)

	assert.False(t, results[0].Failed())

	assert.True(t, results[1].Failed())
	assert.Contains(t, results[1].Issues, "missing_customer_id")
	assert.Contains(t, results[1].Issues, "negative_order_total")

	assert.True(t, results[2].Failed())
	assert.Contains(t, results[2].Issues, "invalid_order_total")
}

func TestCheckOrders_ZeroTotalPasses(t *testing.T) {
	orders := []batch.Record{
		{"order_id": "o1", "customer_id": "c1", "order_date": "2024-01-01", "order_total": 0.0},
	}

	results := CheckOrders(orders, nil)
	assert.False(t, results[0].Failed())
}

func TestCheckOrders_BlankStringIsMissing(t *testing.T) {
	orders := []batch.Record{
		{"order_id": "  ", "customer_id": "c1"},
	}

	results := CheckOrders(orders, []string{"order_id", "customer_id"})
	assert.Contains(t, results[0].Issues, "missing_order_id")
}

func TestCheckOrders_IDFallsBackToIndex(t *testing.T) {
	orders := []batch.Record{
		{"customer_id": "c1"},
	}

	results := CheckOrders(orders, []string{"order_id"})
	assert.Equal(t, "idx:0", results[0].ID)
}

func TestCheckCustomers(t *testing.T) {
	customers := []batch.Record{
		{"customer_id": "c1", "email": "a@example.com"},
		{"customer_id": nil, "email": "no-at-sign"},
	}

	results := CheckCustomers(customers)
	require.Len(t, results, 2)

	assert.False(t, results[0].Failed())
	assert.Contains(t, results[1].Issues, "missing_customer_id")
	assert.Contains(t, results[1].Issues, "invalid_email")
}

func TestCheckTransactions(t *testing.T) {
	txs := []batch.Record{
		{"transaction_id": "t1", "amount": 10.0},
		{"transaction_id": "t2", "amount": 0.0},
		{"transaction_id": "", "amount": nil},
	}

	results := CheckTransactions(txs)
	require.Len(t, results, 3)

	assert.False(t, results[0].Failed())
	assert.False(t, results[1].Failed(), "zero amount is a present value")
	assert.Contains(t, results[2].Issues, "missing_transaction_id")
	assert.Contains(t, results[2].Issues, "missing_amount")
}

func TestFailOnIssues(t *testing.T) {
	clean := []RecordIssues{{ID: "a", Issues: []string{}}}
	assert.NoError(t, FailOnIssues(clean, "orders"))

	failing := []RecordIssues{
		{ID: "a", Issues: []string{}},
		{ID: "b", Issues: []string{"missing_order_id", "invalid_order_total"}},
		{ID: "c", Issues: []string{"negative_order_total"}},
	}
	err := FailOnIssues(failing, "orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: missing_order_id")
	assert.Contains(t, err.Error(), "c: negative_order_total")
}
