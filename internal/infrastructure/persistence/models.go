package persistence

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etl/backend/internal/domain/commerce"
	"github.com/etl/backend/internal/etl/batch"
)

// CustomerDim is the warehouse customer dimension row
type CustomerDim struct {
	CustomerID         string     `gorm:"column:customer_id;primaryKey;size:191"`
	Email              string     `gorm:"column:email;size:320"`
	Name               string     `gorm:"column:name;size:255"`
	CreatedAt          *time.Time `gorm:"column:created_at"`
	LastOrderID        string     `gorm:"column:last_order_id;size:191"`
	TotalLifetimeValue *float64   `gorm:"column:total_lifetime_value"`
	TotalOrders        int        `gorm:"column:total_orders"`
	AvgOrderValue      float64    `gorm:"column:avg_order_value"`
	LastOrderDate      *time.Time `gorm:"column:last_order_date"`
	Metadata           string     `gorm:"column:metadata;type:jsonb"`
	RunID              string     `gorm:"column:run_id;size:64"`
	LoadedAt           time.Time  `gorm:"column:loaded_at;autoUpdateTime"`
}

// TableName returns the warehouse table name
func (CustomerDim) TableName() string {
	return "customers_dim"
}

// OrderFact is the warehouse order fact row. Amount columns carry the
// original currency amounts; order_total is the normalized target-currency
// total the transform stage computed.
type OrderFact struct {
	OrderID          string           `gorm:"column:order_id;primaryKey;size:191"`
	OrderDate        *time.Time       `gorm:"column:order_date;index"`
	CustomerID       string           `gorm:"column:customer_id;size:191;index"`
	Currency         string           `gorm:"column:currency;size:3"`
	TotalAmount      *decimal.Decimal `gorm:"column:total_amount;type:numeric(18,4)"`
	Subtotal         *decimal.Decimal `gorm:"column:subtotal;type:numeric(18,4)"`
	TaxAmount        *decimal.Decimal `gorm:"column:tax_amount;type:numeric(18,4)"`
	ShippingAmount   *decimal.Decimal `gorm:"column:shipping_amount;type:numeric(18,4)"`
	OrderTotal       *float64         `gorm:"column:order_total"`
	ItemCount        int              `gorm:"column:item_count"`
	FraudScore       int              `gorm:"column:fraud_score"`
	FraudFlag        bool             `gorm:"column:fraud_flag"`
	ValidationIssues string           `gorm:"column:validation_issues;type:jsonb"`
	ShippingAddress  string           `gorm:"column:shipping_address;type:jsonb"`
	BillingAddress   string           `gorm:"column:billing_address;type:jsonb"`
	LineItems        string           `gorm:"column:line_items;type:jsonb"`
	RawPayload       string           `gorm:"column:raw_payload;type:jsonb"`
	RunID            string           `gorm:"column:run_id;size:64"`
	LoadedAt         time.Time        `gorm:"column:loaded_at;autoUpdateTime"`
}

// TableName returns the warehouse table name
func (OrderFact) TableName() string {
	return "orders_fact"
}

// TransactionFact is the warehouse payment transaction fact row. Amounts
// stay in the provider's currency.
type TransactionFact struct {
	TransactionID   string           `gorm:"column:transaction_id;primaryKey;size:191"`
	TransactionDate *time.Time       `gorm:"column:transaction_date;index"`
	OrderID         string           `gorm:"column:order_id;size:191;index"`
	CustomerID      string           `gorm:"column:customer_id;size:191;index"`
	PaymentProvider string           `gorm:"column:payment_provider;size:32"`
	Amount          *decimal.Decimal `gorm:"column:amount;type:numeric(18,4)"`
	Currency        string           `gorm:"column:currency;size:3"`
	Status          string           `gorm:"column:status;size:32"`
	RawPayload      string           `gorm:"column:raw_payload;type:jsonb"`
	RunID           string           `gorm:"column:run_id;size:64"`
	LoadedAt        time.Time        `gorm:"column:loaded_at;autoUpdateTime"`
}

// TableName returns the warehouse table name
func (TransactionFact) TableName() string {
	return "transactions_fact"
}

// OrderFactFromRecord maps a fully transformed order record to its
// warehouse row. Cells that a stage left nil map to NULL columns.
func OrderFactFromRecord(rec batch.Record, runID string) OrderFact {
	fact := OrderFact{
		OrderID:         stringCell(rec["order_id"]),
		OrderDate:       timeCell(rec["order_date"]),
		CustomerID:      stringCell(rec["customer_id"]),
		Currency:        strings.ToUpper(stringCell(rec["currency"])),
		TotalAmount:     decimalColumn(rec["total_amount"]),
		Subtotal:        decimalColumn(rec["subtotal"]),
		TaxAmount:       decimalColumn(rec["tax_amount"]),
		ShippingAmount:  decimalColumn(rec["shipping_amount"]),
		ShippingAddress: jsonColumn(rec["shipping_address"]),
		BillingAddress:  jsonColumn(rec["billing_address"]),
		LineItems:       jsonColumn(rec["line_items"]),
		RawPayload:      jsonColumn(rec["raw_payload"]),
		RunID:           runID,
	}

	if total, ok := batch.AsFloat(rec["order_total"]); ok {
		fact.OrderTotal = &total
	}
	if n, ok := batch.AsFloat(rec["item_count"]); ok {
		fact.ItemCount = int(n)
	}
	if score, ok := rec["fraud_score"].(int); ok {
		fact.FraudScore = score
	}
	if flag, ok := rec["fraud_flag"].(bool); ok {
		fact.FraudFlag = flag
	}
	if issues, ok := rec["validation_issues"].([]string); ok {
		fact.ValidationIssues = jsonColumn(issues)
	}
	return fact
}

// CustomerDimFromCustomer maps a canonical customer plus its computed
// lifetime metrics to the warehouse row.
func CustomerDimFromCustomer(c commerce.Customer, runID string) CustomerDim {
	dim := CustomerDim{
		CustomerID:         c.CustomerID,
		Email:              c.Email,
		Name:               c.Name,
		LastOrderID:        c.LastOrderID,
		TotalLifetimeValue: c.TotalLifetimeValue,
		Metadata:           jsonColumn(c.Metadata),
		RunID:              runID,
	}
	if t, ok := batch.ParseTime(c.CreatedAt); ok {
		utc := t.UTC()
		dim.CreatedAt = &utc
	}
	if n, ok := c.Metadata["total_orders"].(int); ok {
		dim.TotalOrders = n
	}
	if v, ok := c.Metadata["avg_order_value"].(float64); ok {
		dim.AvgOrderValue = v
	}
	if t, ok := c.Metadata["last_order_date"].(time.Time); ok {
		utc := t.UTC()
		dim.LastOrderDate = &utc
	}
	return dim
}

// TransactionFactFromTransaction maps a canonical transaction to the
// warehouse row.
func TransactionFactFromTransaction(tx commerce.Transaction, runID string) TransactionFact {
	fact := TransactionFact{
		TransactionID:   tx.TransactionID,
		OrderID:         tx.OrderID,
		CustomerID:      tx.CustomerID,
		PaymentProvider: string(tx.PaymentProvider),
		Currency:        strings.ToUpper(tx.Currency),
		Status:          tx.Status,
		RawPayload:      jsonColumn(tx.RawPayload),
		RunID:           runID,
	}
	if tx.Amount != nil {
		amt := *tx.Amount
		fact.Amount = &amt
	}
	if t, ok := batch.ParseTime(tx.TransactionDate); ok {
		utc := t.UTC()
		fact.TransactionDate = &utc
	}
	return fact
}

func stringCell(v any) string {
	s, _ := batch.AsString(v)
	return s
}

func timeCell(v any) *time.Time {
	if t, ok := batch.AsTime(v); ok {
		utc := t.UTC()
		return &utc
	}
	return nil
}

func decimalColumn(v any) *decimal.Decimal {
	f, ok := batch.AsFloat(v)
	if !ok {
		return nil
	}
	d := decimal.NewFromFloat(f)
	return &d
}

func jsonColumn(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
