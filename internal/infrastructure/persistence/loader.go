package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/etl/backend/internal/domain/commerce"
	"github.com/etl/backend/internal/etl/batch"
)

// upsertBatchSize bounds the rows per INSERT statement
const upsertBatchSize = 500

// WarehouseLoader writes transformed records into the warehouse tables.
// All writes are idempotent upserts keyed by the natural record id, so
// re-running a window replaces rows instead of duplicating them.
type WarehouseLoader struct {
	db     *Database
	logger *zap.Logger
}

// NewWarehouseLoader creates a loader over an open warehouse connection
func NewWarehouseLoader(db *Database, logger *zap.Logger) *WarehouseLoader {
	return &WarehouseLoader{
		db:     db,
		logger: logger.Named("loader"),
	}
}

// UpsertCustomers writes customer dimension rows
func (l *WarehouseLoader) UpsertCustomers(ctx context.Context, customers []commerce.Customer, runID string) error {
	if len(customers) == 0 {
		return nil
	}

	rows := make([]CustomerDim, 0, len(customers))
	for _, c := range customers {
		if c.CustomerID == "" {
			continue
		}
		rows = append(rows, CustomerDimFromCustomer(c, runID))
	}

	err := l.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert customers: %w", err)
	}

	l.logger.Info("loaded customers", zap.Int("rows", len(rows)), zap.String("run_id", runID))
	return nil
}

// UpsertOrders writes order fact rows from transformed records. Records
// without an order id cannot be keyed and are skipped with a warning.
func (l *WarehouseLoader) UpsertOrders(ctx context.Context, orders batch.Batch, runID string) error {
	if len(orders) == 0 {
		return nil
	}

	rows := make([]OrderFact, 0, len(orders))
	skipped := 0
	for _, rec := range orders {
		fact := OrderFactFromRecord(rec, runID)
		if fact.OrderID == "" {
			skipped++
			continue
		}
		rows = append(rows, fact)
	}
	if skipped > 0 {
		l.logger.Warn("skipped orders without order_id", zap.Int("count", skipped))
	}

	err := l.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert orders: %w", err)
	}

	l.logger.Info("loaded orders", zap.Int("rows", len(rows)), zap.String("run_id", runID))
	return nil
}

// UpsertTransactions writes payment transaction fact rows
func (l *WarehouseLoader) UpsertTransactions(ctx context.Context, txs []commerce.Transaction, runID string) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]TransactionFact, 0, len(txs))
	skipped := 0
	for _, tx := range txs {
		if tx.TransactionID == "" {
			skipped++
			continue
		}
		rows = append(rows, TransactionFactFromTransaction(tx, runID))
	}
	if skipped > 0 {
		l.logger.Warn("skipped transactions without transaction_id", zap.Int("count", skipped))
	}

	err := l.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert transactions: %w", err)
	}

	l.logger.Info("loaded transactions", zap.Int("rows", len(rows)), zap.String("run_id", runID))
	return nil
}
