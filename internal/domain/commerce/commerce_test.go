package commerce

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return &d
}

func TestGuestCustomerID(t *testing.T) {
	o := Order{OrderID: "1001"}
	assert.Equal(t, "guest_1001", o.GuestCustomerID())
}

func TestOrderRecord_MapsFields(t *testing.T) {
	o := Order{
		OrderID:     "1001",
		OrderDate:   "2024-01-15T10:30:00Z",
		CustomerID:  "42",
		Currency:    "USD",
		TotalAmount: dec("59.98"),
		ItemCount:   2,
		ShippingAddress: map[string]any{
			"country_code": "US",
		},
		BillingAddress: map[string]any{
			"name":    "Ada L",
			"country": "CA",
		},
		RawPayload: map[string]any{"email": "ada@example.com"},
	}

	rec := o.Record()

	assert.Equal(t, "1001", rec["order_id"])
	assert.Equal(t, "2024-01-15T10:30:00Z", rec["order_date"])
	assert.Equal(t, "42", rec["customer_id"])
	assert.Equal(t, "USD", rec["currency"])
	assert.InDelta(t, 59.98, rec["total_amount"].(float64), 1e-9)
	assert.Equal(t, 2.0, rec["item_count"])

	// Flat columns surfaced for the quality rules
	assert.Equal(t, "ada@example.com", rec["email"])
	assert.Equal(t, "US", rec["shipping_country"])
	assert.Equal(t, "CA", rec["billing_country"])
	assert.Equal(t, "Ada L", rec["billing_name"])
}

func TestOrderRecord_MissingValuesBecomeNil(t *testing.T) {
	o := Order{OrderID: "1002"}
	rec := o.Record()

	assert.Nil(t, rec["order_date"])
	assert.Nil(t, rec["customer_id"])
	assert.Nil(t, rec["currency"])
	assert.Nil(t, rec["total_amount"])
	assert.Nil(t, rec["subtotal"])

	_, hasEmail := rec["email"]
	assert.False(t, hasEmail)
	_, hasShipCountry := rec["shipping_country"]
	assert.False(t, hasShipCountry)
}

func TestOrderRecord_BillingNameFromFirstLast(t *testing.T) {
	o := Order{
		OrderID: "1003",
		BillingAddress: map[string]any{
			"first_name": "Kay",
			"last_name":  "Ser",
		},
	}

	rec := o.Record()
	require.Contains(t, rec, "billing_name")
	assert.Equal(t, "Kay Ser", rec["billing_name"])
}
