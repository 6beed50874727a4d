package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/etl/backend/internal/application/pipeline"
	"github.com/etl/backend/internal/etl/normalize"
	"github.com/etl/backend/internal/infrastructure/bookmarks"
	"github.com/etl/backend/internal/infrastructure/config"
	"github.com/etl/backend/internal/infrastructure/fx"
	"github.com/etl/backend/internal/infrastructure/logger"
	"github.com/etl/backend/internal/infrastructure/persistence"
	"github.com/etl/backend/internal/infrastructure/staging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting pipeline",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("staging_dir", cfg.Staging.Dir),
		zap.String("target_currency", cfg.Pipeline.TargetCurrency),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return fmt.Errorf("connect warehouse: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate warehouse schema: %w", err)
	}

	store, closeStore, err := newBookmarkStore(cfg)
	if err != nil {
		return fmt.Errorf("open bookmark store: %w", err)
	}
	defer closeStore()

	var fetcher normalize.RateFetcher
	if cfg.FX.Enabled {
		fetcher = fx.NewClient(cfg.FX.Endpoint, log, fx.WithTimeout(cfg.FX.Timeout))
	}

	scanner := staging.NewScanner(cfg.Staging.Dir, log)
	loader := persistence.NewWarehouseLoader(db, log)

	p := pipeline.New(scanner, loader, store, fetcher, pipeline.Options{
		TargetCurrency:     cfg.Pipeline.TargetCurrency,
		HighValueThreshold: cfg.Pipeline.HighValueThreshold,
	}, log)

	res, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	log.Info("pipeline completed",
		zap.String("run_id", res.RunID),
		zap.Int("orders", res.OrdersLoaded),
		zap.Int("customers", res.CustomersLoaded),
		zap.Int("transactions", res.TransactionsLoaded),
	)
	return nil
}

func newBookmarkStore(cfg *config.Config) (bookmarks.Store, func(), error) {
	switch cfg.Bookmarks.Backend {
	case "redis":
		store, err := bookmarks.NewRedisStore(bookmarks.RedisConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return bookmarks.NewFileStore(cfg.Bookmarks.Path), func() {}, nil
	}
}
