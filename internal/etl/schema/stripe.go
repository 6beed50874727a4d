package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/etl/backend/internal/domain/commerce"
)

// minorUnitDivisor converts Stripe's integer minor-unit amounts (cents)
// into major units.
var minorUnitDivisor = decimal.NewFromInt(100)

// normalizeStripeCharges maps Stripe charge payloads (bare array or object
// with a "data"/"charges" key) into canonical transactions. Amounts arrive
// as integer minor units and are divided by 100.
func normalizeStripeCharges(payload any) []commerce.Transaction {
	items := Items(payload, "data", "charges")

	txs := make([]commerce.Transaction, 0, len(items))
	for _, it := range items {
		txs = append(txs, commerce.Transaction{
			TransactionID:   aliasString(it, "id", "balance_transaction"),
			TransactionDate: stripeCreated(it),
			OrderID:         stripeOrderID(it),
			CustomerID:      stripeCustomerID(it),
			PaymentProvider: commerce.ProviderStripe,
			Amount:          stripeAmount(it["amount"]),
			Currency:        aliasString(it, "currency"),
			Status:          stripeStatus(it),
			RawPayload:      it,
		})
	}
	return txs
}

func stripeAmount(v any) *decimal.Decimal {
	d := parseDecimal(v)
	if d == nil {
		return nil
	}
	major := d.Div(minorUnitDivisor)
	return &major
}

// stripeCreated renders the epoch-seconds created field as an ISO-8601
// string, falling back to any textual created field.
func stripeCreated(it map[string]any) string {
	if epoch, ok := it["created"].(float64); ok {
		return time.Unix(int64(epoch), 0).UTC().Format("2006-01-02T15:04:05")
	}
	return aliasString(it, "created_at", "created")
}

func stripeOrderID(it map[string]any) string {
	if id, ok := nested(it, "metadata", "order_id").(string); ok && id != "" {
		return id
	}
	return aliasString(it, "invoice")
}

func stripeCustomerID(it map[string]any) string {
	if id := aliasString(it, "customer"); id != "" {
		return id
	}
	if id, ok := nested(it, "metadata", "customer_id").(string); ok {
		return id
	}
	return ""
}

// stripeStatus prefers the explicit status, degrading to "paid" when only
// the boolean paid marker is present.
func stripeStatus(it map[string]any) string {
	if s := aliasString(it, "status"); s != "" {
		return s
	}
	if paid, ok := it["paid"].(bool); ok && paid {
		return "paid"
	}
	return ""
}
