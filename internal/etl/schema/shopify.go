package schema

import (
	"github.com/shopspring/decimal"

	"github.com/etl/backend/internal/domain/commerce"
)

// normalizeShopifyOrders maps Shopify order payloads (bare array or object
// with an "orders"/"data" key) into canonical orders and implied customers.
func normalizeShopifyOrders(payload any) ([]commerce.Order, []commerce.Customer) {
	items := Items(payload, "orders", "data")

	orders := make([]commerce.Order, 0, len(items))
	customers := make([]commerce.Customer, 0, len(items))
	for _, it := range items {
		order := commerce.Order{
			OrderID:   aliasString(it, "id", "order_number", "name", "number"),
			OrderDate: aliasString(it, "created_at", "date_created", "created"),
			CustomerID: customerIdentity(it,
				[]string{"email"},
			),
			Currency:        aliasString(it, "currency"),
			TotalAmount:     orderTotalAmount(it),
			Subtotal:        parseDecimal(alias(it, "subtotal_price", "subtotal")),
			TaxAmount:       parseDecimal(alias(it, "total_tax", "tax")),
			ShippingAmount:  shippingAmount(it),
			ItemCount:       len(listField(it, "line_items")),
			ShippingAddress: mapField(it, "shipping_address"),
			BillingAddress:  mapField(it, "billing_address"),
			LineItems:       listField(it, "line_items"),
			RawPayload:      it,
		}
		orders = append(orders, order)
		customers = append(customers, impliedShopifyCustomer(&order, it))
	}
	return orders, customers
}

// orderTotalAmount resolves the order total alias chain, ending at the
// nested current_total_price.amount shape newer API versions use.
func orderTotalAmount(it map[string]any) *decimal.Decimal {
	if d := parseDecimal(alias(it, "total_price", "total")); d != nil {
		return d
	}
	return parseDecimal(nested(it, "current_total_price", "amount"))
}

// shippingAmount sums shipping_lines prices when present (absent or
// unparseable line prices count as 0), falling back to the flat shipping
// total fields.
func shippingAmount(it map[string]any) *decimal.Decimal {
	if lines := listField(it, "shipping_lines"); len(lines) > 0 {
		sum := decimal.Zero
		for _, l := range lines {
			line, ok := l.(map[string]any)
			if !ok {
				continue
			}
			if d := parseDecimal(line["price"]); d != nil {
				sum = sum.Add(*d)
			}
		}
		return &sum
	}
	return parseDecimal(alias(it, "shipping_total", "shipping"))
}

// impliedShopifyCustomer derives the 0..1 customer record carried inside a
// Shopify order payload.
func impliedShopifyCustomer(order *commerce.Order, it map[string]any) commerce.Customer {
	id := order.CustomerID
	if id == "" {
		id = order.GuestCustomerID()
	}
	email, _ := it["email"].(string)
	name, _ := nested(it, "customer", "first_name").(string)
	return commerce.Customer{
		CustomerID:  id,
		Email:       email,
		Name:        name,
		CreatedAt:   order.OrderDate,
		LastOrderID: order.OrderID,
		Metadata:    map[string]any{},
	}
}
