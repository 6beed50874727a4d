// Package schema maps provider-specific raw payload shapes into canonical
// commerce records. Each canonical field is resolved through an ordered
// alias list per provider; the first present, non-null alias wins.
// Malformed sub-fields degrade to nil or zero, never failing the batch.
package schema

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/etl/backend/internal/domain/commerce"
	"github.com/etl/backend/internal/etl/batch"
)

// DetectProvider infers the provider from a staged file name by substring
// match, in the same precedence order the staging layer writes them.
func DetectProvider(filename string) commerce.Provider {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "shopify"):
		return commerce.ProviderShopify
	case strings.Contains(name, "stripe"), strings.Contains(name, "charge"):
		return commerce.ProviderStripe
	case strings.Contains(name, "woocommerce"), strings.Contains(name, "orders"):
		return commerce.ProviderWooCommerce
	case strings.Contains(name, "paypal"), strings.Contains(name, "transactions"):
		return commerce.ProviderPayPal
	default:
		return commerce.ProviderUnknown
	}
}

// Items unwraps a payload into its record list. Providers ship either a
// bare array or an object keyed by one of the given wrapper keys.
func Items(payload any, keys ...string) []map[string]any {
	var raw []any
	switch t := payload.(type) {
	case []any:
		raw = t
	case map[string]any:
		for _, key := range keys {
			if list, ok := t[key].([]any); ok {
				raw = list
				break
			}
		}
	}

	items := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// NormalizeOrders converts an order-shaped payload into canonical orders
// plus the customers implied by each order's embedded customer/billing
// block (0..1 per order).
func NormalizeOrders(payload any, provider commerce.Provider) ([]commerce.Order, []commerce.Customer) {
	switch provider {
	case commerce.ProviderShopify:
		return normalizeShopifyOrders(payload)
	case commerce.ProviderWooCommerce:
		return normalizeWooCommerceOrders(payload)
	default:
		return nil, nil
	}
}

// NormalizeTransactions converts a transaction-shaped payload into
// canonical transactions.
func NormalizeTransactions(payload any, provider commerce.Provider) []commerce.Transaction {
	switch provider {
	case commerce.ProviderStripe:
		return normalizeStripeCharges(payload)
	case commerce.ProviderPayPal:
		return normalizePayPalTransactions(payload)
	default:
		return nil
	}
}

// alias returns the first present, non-null value among the given field
// names.
func alias(m map[string]any, names ...string) any {
	for _, n := range names {
		if v, ok := m[n]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

// aliasString resolves an alias chain to a string, rendering numeric ids
// without float artifacts.
func aliasString(m map[string]any, names ...string) string {
	v := alias(m, names...)
	if v == nil {
		return ""
	}
	s, _ := batch.AsString(v)
	return s
}

// nested walks a path of map keys, returning nil as soon as a hop is
// missing or not a mapping.
func nested(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

// parseDecimal parses a numeric or string amount into a decimal, returning
// nil for missing or malformed values.
func parseDecimal(v any) *decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		d := decimal.NewFromFloat(t)
		return &d
	case int:
		d := decimal.NewFromInt(int64(t))
		return &d
	case int64:
		d := decimal.NewFromInt(t)
		return &d
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return &d
	default:
		return nil
	}
}

// mapField returns a named sub-object, or an empty map when absent or of
// the wrong shape.
func mapField(m map[string]any, name string) map[string]any {
	if obj, ok := m[name].(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}

// listField returns a named sub-list, or nil when absent.
func listField(m map[string]any, name string) []any {
	if list, ok := m[name].([]any); ok {
		return list
	}
	return nil
}

// customerIdentity resolves the canonical customer identity chain:
// explicit customer id, then the nested customer object id, then an
// email-derived pseudo-id. Empty means no identity; callers fall back to
// guest_<order_id>.
func customerIdentity(item map[string]any, emailKeys ...[]string) string {
	if id := aliasString(item, "customer_id"); id != "" && id != "0" {
		return id
	}
	if id := aliasString(mapField(item, "customer"), "id"); id != "" {
		return id
	}
	for _, path := range emailKeys {
		if email, ok := nested(item, path...).(string); ok && email != "" {
			return "email:" + email
		}
	}
	return ""
}
