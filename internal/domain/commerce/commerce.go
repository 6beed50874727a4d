// Package commerce defines the canonical order, customer and transaction
// records produced by schema normalization, independent of the source
// provider. Each record keeps the untouched provider payload for audit.
package commerce

import (
	"github.com/shopspring/decimal"

	"github.com/etl/backend/internal/etl/batch"
)

// Provider identifies the commerce platform a payload came from.
type Provider string

const (
	ProviderShopify     Provider = "shopify"
	ProviderWooCommerce Provider = "woocommerce"
	ProviderStripe      Provider = "stripe"
	ProviderPayPal      Provider = "paypal"
	ProviderUnknown     Provider = ""
)

// Order is the canonical order record. Optional fields use pointers or the
// empty string; OrderDate stays provider-native text until the datetime
// normalization stage parses it.
type Order struct {
	OrderID         string
	OrderDate       string
	CustomerID      string
	Currency        string
	TotalAmount     *decimal.Decimal
	Subtotal        *decimal.Decimal
	TaxAmount       *decimal.Decimal
	ShippingAmount  *decimal.Decimal
	ItemCount       int
	ShippingAddress map[string]any
	BillingAddress  map[string]any
	LineItems       []any
	RawPayload      map[string]any
}

// GuestCustomerID returns the synthesized customer key for orders whose
// source carried no customer identity.
func (o *Order) GuestCustomerID() string {
	return "guest_" + o.OrderID
}

// Record converts the order into a batch record for the transform stages.
// Nil decimals become nil cells so downstream stages see them as missing.
func (o *Order) Record() batch.Record {
	rec := batch.Record{
		"order_id":         o.OrderID,
		"order_date":       nilIfEmpty(o.OrderDate),
		"customer_id":      nilIfEmpty(o.CustomerID),
		"currency":         nilIfEmpty(o.Currency),
		"total_amount":     decimalCell(o.TotalAmount),
		"subtotal":         decimalCell(o.Subtotal),
		"tax_amount":       decimalCell(o.TaxAmount),
		"shipping_amount":  decimalCell(o.ShippingAmount),
		"item_count":       float64(o.ItemCount),
		"shipping_address": o.ShippingAddress,
		"billing_address":  o.BillingAddress,
		"line_items":       o.LineItems,
		"raw_payload":      o.RawPayload,
	}

	// Surface the fields the quality rules read from flat columns.
	if email, ok := o.RawPayload["email"].(string); ok && email != "" {
		rec["email"] = email
	}
	if c, ok := countryOf(o.ShippingAddress); ok {
		rec["shipping_country"] = c
	}
	if c, ok := countryOf(o.BillingAddress); ok {
		rec["billing_country"] = c
	}
	if name, ok := nameOf(o.BillingAddress); ok {
		rec["billing_name"] = name
	}
	return rec
}

// Customer is the canonical customer dimension record. Most instances are
// implied by an order's embedded customer/billing block.
type Customer struct {
	CustomerID         string
	Email              string
	Name               string
	CreatedAt          string
	LastOrderID        string
	TotalLifetimeValue *float64
	Metadata           map[string]any
}

// Transaction is the canonical payment transaction record. Amounts are in
// major units of Currency (minor-unit providers are converted during
// normalization); no FX conversion is applied to transactions.
type Transaction struct {
	TransactionID   string
	TransactionDate string
	OrderID         string
	CustomerID      string
	PaymentProvider Provider
	Amount          *decimal.Decimal
	Currency        string
	Status          string
	RawPayload      map[string]any
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decimalCell(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}

func countryOf(addr map[string]any) (string, bool) {
	for _, key := range []string{"country_code", "country"} {
		if s, ok := addr[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func nameOf(addr map[string]any) (string, bool) {
	if s, ok := addr["name"].(string); ok && s != "" {
		return s, true
	}
	first, _ := addr["first_name"].(string)
	last, _ := addr["last_name"].(string)
	switch {
	case first != "" && last != "":
		return first + " " + last, true
	case first != "":
		return first, true
	case last != "":
		return last, true
	}
	return "", false
}
