// Package pipeline orchestrates one transform-and-load run over the
// staging area: scan staged payloads, normalize them into canonical
// records, run the cleaning / normalization / metrics / quality stages,
// and upsert the results into the warehouse.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/etl/backend/internal/domain/commerce"
	"github.com/etl/backend/internal/etl/batch"
	"github.com/etl/backend/internal/etl/cleaning"
	"github.com/etl/backend/internal/etl/metrics"
	"github.com/etl/backend/internal/etl/normalize"
	"github.com/etl/backend/internal/etl/quality"
	"github.com/etl/backend/internal/etl/schema"
	"github.com/etl/backend/internal/infrastructure/bookmarks"
	"github.com/etl/backend/internal/infrastructure/staging"
)

// Loader writes transformed records into the warehouse. All writes must
// be idempotent upserts so a re-run of the same window yields the same
// warehouse state.
type Loader interface {
	UpsertCustomers(ctx context.Context, customers []commerce.Customer, runID string) error
	UpsertOrders(ctx context.Context, orders batch.Batch, runID string) error
	UpsertTransactions(ctx context.Context, txs []commerce.Transaction, runID string) error
}

// Options holds the tunable transform parameters
type Options struct {
	TargetCurrency     string
	HighValueThreshold float64

	// Rates pins FX rates for the run. When empty, rates are fetched live
	// through Fetcher; fetch failure degrades to no conversion.
	Rates map[string]float64

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Pipeline wires the staging scanner, transform stages, warehouse loader
// and bookmark store into one runnable unit.
type Pipeline struct {
	scanner   *staging.Scanner
	loader    Loader
	bookmarks bookmarks.Store
	fetcher   normalize.RateFetcher
	opts      Options
	logger    *zap.Logger
}

// New creates a pipeline. The bookmark store and rate fetcher are
// optional; without them checkpoints are skipped and amounts are not
// converted.
func New(scanner *staging.Scanner, loader Loader, store bookmarks.Store, fetcher normalize.RateFetcher, opts Options, logger *zap.Logger) *Pipeline {
	if opts.TargetCurrency == "" {
		opts.TargetCurrency = "USD"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		scanner:   scanner,
		loader:    loader,
		bookmarks: store,
		fetcher:   fetcher,
		opts:      opts,
		logger:    logger.Named("pipeline"),
	}
}

// Result summarizes one pipeline run
type Result struct {
	RunID              string
	FilesProcessed     int
	FilesSkipped       int
	OrdersLoaded       int
	CustomersLoaded    int
	TransactionsLoaded int
	DuplicatesRemoved  int
	FraudFlagged       int
	ValidationFailures int
}

// Run executes one full transform-and-load pass over the staging area.
// Unreadable or unrecognized staged files are logged and skipped; they
// never fail the run. Load errors do fail the run, and bookmarks only
// advance after a successful load.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", res.RunID))
	log.Info("pipeline run starting")

	names, err := p.scanner.List()
	if err != nil {
		return nil, err
	}

	var orders []commerce.Order
	var transactions []commerce.Transaction
	customersByID := map[string]commerce.Customer{}
	var customerOrder []string
	cursors := map[string]string{}

	for _, name := range names {
		file, err := p.scanner.Read(name)
		if err != nil {
			log.Warn("skipping unreadable staged file", zap.String("file", name), zap.Error(err))
			res.FilesSkipped++
			continue
		}

		switch file.Provider {
		case commerce.ProviderShopify, commerce.ProviderWooCommerce:
			fileOrders, implied := schema.NormalizeOrders(file.Payload, file.Provider)
			orders = append(orders, fileOrders...)
			for _, c := range implied {
				mergeCustomer(customersByID, &customerOrder, c)
			}
			advanceCursor(cursors, string(file.Provider), orderDates(fileOrders))
			log.Info("normalized staged orders",
				zap.String("file", name),
				zap.String("provider", string(file.Provider)),
				zap.Int("orders", len(fileOrders)))

		case commerce.ProviderStripe, commerce.ProviderPayPal:
			txs := schema.NormalizeTransactions(file.Payload, file.Provider)
			transactions = append(transactions, txs...)
			advanceCursor(cursors, string(file.Provider), transactionDates(txs))
			log.Info("normalized staged transactions",
				zap.String("file", name),
				zap.String("provider", string(file.Provider)),
				zap.Int("transactions", len(txs)))

		default:
			log.Warn("skipping staged file with unknown provider", zap.String("file", name))
			res.FilesSkipped++
			continue
		}
		res.FilesProcessed++
	}

	records := make(batch.Batch, 0, len(orders))
	for i := range orders {
		if orders[i].CustomerID == "" {
			orders[i].CustomerID = orders[i].GuestCustomerID()
		}
		records = append(records, orders[i].Record())
	}

	records, res.DuplicatesRemoved = p.transform(ctx, records, res, log)

	p.applyLifetimeValue(records, customersByID)

	if err := p.loader.UpsertCustomers(ctx, orderedCustomers(customersByID, customerOrder), res.RunID); err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	if err := p.loader.UpsertOrders(ctx, records, res.RunID); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if err := p.loader.UpsertTransactions(ctx, transactions, res.RunID); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	res.OrdersLoaded = len(records)
	res.CustomersLoaded = len(customersByID)
	res.TransactionsLoaded = len(transactions)

	p.advanceBookmarks(ctx, cursors, log)

	log.Info("pipeline run finished",
		zap.Int("files", res.FilesProcessed),
		zap.Int("skipped", res.FilesSkipped),
		zap.Int("orders", res.OrdersLoaded),
		zap.Int("customers", res.CustomersLoaded),
		zap.Int("transactions", res.TransactionsLoaded),
		zap.Int("duplicates_removed", res.DuplicatesRemoved),
		zap.Int("fraud_flagged", res.FraudFlagged),
		zap.Int("validation_failures", res.ValidationFailures))
	return res, nil
}

// transform runs the order batch through dedup, datetime and currency
// normalization, total derivation, fraud scoring and validation.
func (p *Pipeline) transform(ctx context.Context, records batch.Batch, res *Result, log *zap.Logger) (batch.Batch, int) {
	records, removed := cleaning.RemoveDuplicates(records, []string{"order_id"}, cleaning.KeepFirst)
	if removed > 0 {
		log.Info("removed duplicate orders", zap.Int("count", removed))
	}

	records = normalize.NormalizeDatetime(records, normalize.DatetimeOptions{
		Columns:  []string{"order_date"},
		Location: time.UTC,
	})

	records = normalize.NormalizeCurrency(ctx, records, normalize.CurrencyOptions{
		AmountColumn:   "total_amount",
		CurrencyColumn: "currency",
		Rates:          p.opts.Rates,
		TargetCurrency: p.opts.TargetCurrency,
		Fetcher:        p.fetcher,
		Logger:         log,
	})

	// Orders that carried a provider total keep it (normalized); orders
	// without one get a total derived from their amount components.
	if records.HasColumn("total_amount") {
		for _, rec := range records {
			rec["order_total"] = rec["total_amount_normalized"]
		}
	} else {
		records = metrics.CalculateOrderTotal(records, metrics.OrderTotalOptions{
			TaxColumn:      "tax_amount",
			ShippingColumn: "shipping_amount",
		})
	}

	records = quality.FlagFraud(records, quality.FraudOptions{
		HighValueThreshold: p.opts.HighValueThreshold,
	})
	for _, rec := range records {
		if flag, ok := rec["fraud_flag"].(bool); ok && flag {
			res.FraudFlagged++
		}
	}

	records = quality.ValidateOrders(records, quality.ValidateOptions{})
	for _, rec := range records {
		if issues, ok := rec["validation_issues"].([]string); ok && len(issues) > 0 {
			res.ValidationFailures++
			log.Warn("order failed validation",
				zap.Any("order_id", rec["order_id"]),
				zap.Strings("issues", issues))
		}
	}
	return records, removed
}

// applyLifetimeValue folds per-customer aggregates back into the implied
// customer records before they are loaded.
func (p *Pipeline) applyLifetimeValue(records batch.Batch, customersByID map[string]commerce.Customer) {
	for _, cv := range metrics.CalculateCLV(records, "customer_id", "order_total", p.opts.Now()) {
		c, ok := customersByID[cv.CustomerID]
		if !ok {
			continue
		}
		clv := cv.CLV
		c.TotalLifetimeValue = &clv
		if c.Metadata == nil {
			c.Metadata = map[string]any{}
		}
		c.Metadata["total_orders"] = cv.TotalOrders
		c.Metadata["avg_order_value"] = cv.AvgOrderValue
		if cv.LastOrderDate != nil {
			c.Metadata["last_order_date"] = *cv.LastOrderDate
		}
		if cv.RecencyDays != nil {
			c.Metadata["recency_days"] = *cv.RecencyDays
		}
		customersByID[cv.CustomerID] = c
	}
}

// advanceBookmarks records the newest seen source timestamp per provider.
// Bookmark write failures are logged, not fatal; the next run simply
// re-extracts an already-processed window, which the idempotent loader
// absorbs.
func (p *Pipeline) advanceBookmarks(ctx context.Context, cursors map[string]string, log *zap.Logger) {
	if p.bookmarks == nil {
		return
	}
	for source, cursor := range cursors {
		if cursor == "" {
			continue
		}
		if err := p.bookmarks.Set(ctx, source, cursor); err != nil {
			log.Warn("failed to advance bookmark",
				zap.String("source", source),
				zap.Error(err))
			continue
		}
		log.Info("advanced bookmark",
			zap.String("source", source),
			zap.String("cursor", cursor))
	}
}

// mergeCustomer collapses repeated implied customers by id, letting later
// occurrences fill fields earlier ones left blank and taking over the
// last-order pointer.
func mergeCustomer(byID map[string]commerce.Customer, order *[]string, c commerce.Customer) {
	if c.CustomerID == "" {
		return
	}
	existing, ok := byID[c.CustomerID]
	if !ok {
		byID[c.CustomerID] = c
		*order = append(*order, c.CustomerID)
		return
	}
	if existing.Email == "" {
		existing.Email = c.Email
	}
	if existing.Name == "" {
		existing.Name = c.Name
	}
	if c.LastOrderID != "" {
		existing.LastOrderID = c.LastOrderID
	}
	byID[c.CustomerID] = existing
}

func orderedCustomers(byID map[string]commerce.Customer, order []string) []commerce.Customer {
	out := make([]commerce.Customer, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// orderDates yields the parseable order timestamps of a file, in UTC
func orderDates(orders []commerce.Order) []time.Time {
	var ts []time.Time
	for i := range orders {
		if t, ok := batch.ParseTime(orders[i].OrderDate); ok {
			ts = append(ts, t.UTC())
		}
	}
	return ts
}

func transactionDates(txs []commerce.Transaction) []time.Time {
	var ts []time.Time
	for i := range txs {
		if t, ok := batch.ParseTime(txs[i].TransactionDate); ok {
			ts = append(ts, t.UTC())
		}
	}
	return ts
}

// advanceCursor keeps the max timestamp seen per source, RFC3339-rendered
func advanceCursor(cursors map[string]string, source string, ts []time.Time) {
	max, ok := maxTime(ts)
	if !ok {
		return
	}
	cursor := max.Format(time.RFC3339)
	if prev := cursors[source]; prev == "" || cursor > prev {
		cursors[source] = cursor
	}
}

func maxTime(ts []time.Time) (time.Time, bool) {
	if len(ts) == 0 {
		return time.Time{}, false
	}
	max := ts[0]
	for _, t := range ts[1:] {
		if t.After(max) {
			max = t
		}
	}
	return max, true
}
