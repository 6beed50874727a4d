package schema

import (
	"github.com/etl/backend/internal/domain/commerce"
)

// normalizeWooCommerceOrders maps WooCommerce REST order payloads into
// canonical orders and implied customers. WooCommerce reports guests as
// customer_id 0, which the identity chain treats as absent.
func normalizeWooCommerceOrders(payload any) ([]commerce.Order, []commerce.Customer) {
	items := Items(payload, "orders", "data")

	orders := make([]commerce.Order, 0, len(items))
	customers := make([]commerce.Customer, 0, len(items))
	for _, it := range items {
		order := commerce.Order{
			OrderID:   aliasString(it, "id", "order_id", "number"),
			OrderDate: aliasString(it, "date_created", "created_at"),
			CustomerID: customerIdentity(it,
				[]string{"billing", "email"},
				[]string{"email"},
			),
			Currency:        aliasString(it, "currency", "currency_code"),
			TotalAmount:     parseDecimal(alias(it, "total", "total_price")),
			Subtotal:        parseDecimal(alias(it, "subtotal")),
			TaxAmount:       parseDecimal(alias(it, "total_tax", "tax")),
			ShippingAmount:  parseDecimal(alias(it, "shipping_total", "shipping")),
			ItemCount:       len(listField(it, "line_items")),
			ShippingAddress: mapField(it, "shipping"),
			BillingAddress:  mapField(it, "billing"),
			LineItems:       listField(it, "line_items"),
			RawPayload:      it,
		}
		orders = append(orders, order)
		customers = append(customers, impliedWooCommerceCustomer(&order, it))
	}
	return orders, customers
}

// impliedWooCommerceCustomer derives the customer record from the order's
// billing block.
func impliedWooCommerceCustomer(order *commerce.Order, it map[string]any) commerce.Customer {
	id := order.CustomerID
	if id == "" {
		id = order.GuestCustomerID()
	}
	email, _ := nested(it, "billing", "email").(string)
	first, _ := nested(it, "billing", "first_name").(string)
	last, _ := nested(it, "billing", "last_name").(string)
	name := first
	if last != "" {
		if name != "" {
			name += " "
		}
		name += last
	}
	return commerce.Customer{
		CustomerID:  id,
		Email:       email,
		Name:        name,
		CreatedAt:   order.OrderDate,
		LastOrderID: order.OrderID,
		Metadata:    map[string]any{},
	}
}
