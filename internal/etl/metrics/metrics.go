// Package metrics implements the derivation stage: order totals and
// per-customer lifetime-value / RFM aggregation.
package metrics

import (
	"sort"
	"time"

	"github.com/etl/backend/internal/etl/batch"
)

// OrderTotalOptions configures CalculateOrderTotal. Zero values select the
// conventional column names.
type OrderTotalOptions struct {
	PriceColumn    string // default "price"
	QuantityColumn string // default "quantity"
	DiscountColumn string // optional, subtracted
	TaxColumn      string // optional, added
	ShippingColumn string // optional, added
	OutColumn      string // default "order_total"
}

func (o *OrderTotalOptions) defaults() {
	if o.PriceColumn == "" {
		o.PriceColumn = "price"
	}
	if o.QuantityColumn == "" {
		o.QuantityColumn = "quantity"
	}
	if o.OutColumn == "" {
		o.OutColumn = "order_total"
	}
}

// CalculateOrderTotal writes price*qty - discount + tax + shipping into the
// output column on a copy of the batch. Missing or unparseable inputs
// default to 1 for quantity and 0 for everything else, so the total is
// always numeric.
func CalculateOrderTotal(b batch.Batch, opts OrderTotalOptions) batch.Batch {
	opts.defaults()
	out := b.Clone()

	hasDiscount := opts.DiscountColumn != "" && out.HasColumn(opts.DiscountColumn)
	hasTax := opts.TaxColumn != "" && out.HasColumn(opts.TaxColumn)
	hasShipping := opts.ShippingColumn != "" && out.HasColumn(opts.ShippingColumn)

	for _, rec := range out {
		price := floatOr(rec[opts.PriceColumn], 0)
		qty := floatOr(rec[opts.QuantityColumn], 1)
		total := price * qty
		if hasDiscount {
			total -= floatOr(rec[opts.DiscountColumn], 0)
		}
		if hasTax {
			total += floatOr(rec[opts.TaxColumn], 0)
		}
		if hasShipping {
			total += floatOr(rec[opts.ShippingColumn], 0)
		}
		rec[opts.OutColumn] = total
	}
	return out
}

func floatOr(v any, fallback float64) float64 {
	if f, ok := batch.AsFloat(v); ok {
		return f
	}
	return fallback
}

// CustomerValue is one customer's lifetime-value and RFM aggregate.
type CustomerValue struct {
	CustomerID    string
	CLV           float64
	TotalOrders   int
	AvgOrderValue float64
	// RecencyDays is the whole days between now and the most recent order.
	// Nil when the customer has no parseable order date.
	RecencyDays   *int
	Frequency     int
	LastOrderDate *time.Time
}

// CalculateCLV groups the order batch by customer key and returns one
// aggregate per distinct customer, sorted by customer id. Rows without a
// customer key are skipped. The caller supplies now so the recency
// computation is deterministic; it is truncated to UTC-naive before
// subtraction.
func CalculateCLV(b batch.Batch, customerKey, orderTotalKey string, now time.Time) []CustomerValue {
	if customerKey == "" {
		customerKey = "customer_id"
	}
	if orderTotalKey == "" {
		orderTotalKey = "order_total"
	}
	now = now.UTC()

	byCustomer := make(map[string]*CustomerValue)
	var order []string
	for _, rec := range b {
		id, ok := batch.AsString(rec[customerKey])
		if !ok || id == "" {
			continue
		}
		cv, seen := byCustomer[id]
		if !seen {
			cv = &CustomerValue{CustomerID: id}
			byCustomer[id] = cv
			order = append(order, id)
		}

		cv.CLV += floatOr(rec[orderTotalKey], 0)
		cv.TotalOrders++

		if t, ok := batch.AsTime(rec["order_date"]); ok {
			t = t.UTC()
			if cv.LastOrderDate == nil || t.After(*cv.LastOrderDate) {
				cv.LastOrderDate = &t
			}
		}
	}

	sort.Strings(order)
	out := make([]CustomerValue, 0, len(order))
	for _, id := range order {
		cv := byCustomer[id]
		if cv.TotalOrders > 0 {
			cv.AvgOrderValue = cv.CLV / float64(cv.TotalOrders)
		}
		if cv.LastOrderDate != nil {
			days := int(now.Sub(*cv.LastOrderDate).Hours() / 24)
			cv.RecencyDays = &days
		}
		cv.Frequency = cv.TotalOrders
		out = append(out, *cv)
	}
	return out
}
