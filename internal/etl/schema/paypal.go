package schema

import (
	"github.com/shopspring/decimal"

	"github.com/etl/backend/internal/domain/commerce"
)

// normalizePayPalTransactions maps PayPal reporting payloads (bare array or
// object with a "transactions"/"data" key) into canonical transactions.
// PayPal does not correlate transactions to orders, so OrderID stays empty.
func normalizePayPalTransactions(payload any) []commerce.Transaction {
	items := Items(payload, "transactions", "data")

	txs := make([]commerce.Transaction, 0, len(items))
	for _, it := range items {
		payerID, _ := nested(it, "payer", "payer_id").(string)
		txs = append(txs, commerce.Transaction{
			TransactionID:   aliasString(it, "transaction_id", "id"),
			TransactionDate: aliasString(it, "transaction_initiation_date", "transaction_updated_date", "create_time"),
			CustomerID:      payerID,
			PaymentProvider: commerce.ProviderPayPal,
			Amount:          paypalAmount(it),
			Currency:        paypalCurrency(it),
			Status:          aliasString(it, "status"),
			RawPayload:      it,
		})
	}
	return txs
}

// paypalAmount resolves the amount alias chain: a scalar amount, the
// nested amount.value shape, then gross_amount.value.
func paypalAmount(it map[string]any) *decimal.Decimal {
	switch amt := it["amount"].(type) {
	case map[string]any:
		if d := parseDecimal(amt["value"]); d != nil {
			return d
		}
	default:
		if d := parseDecimal(amt); d != nil {
			return d
		}
	}
	return parseDecimal(nested(it, "gross_amount", "value"))
}

func paypalCurrency(it map[string]any) string {
	if c, ok := nested(it, "amount", "currency").(string); ok && c != "" {
		return c
	}
	if c, ok := nested(it, "amount", "currency_code").(string); ok && c != "" {
		return c
	}
	return aliasString(it, "currency")
}
