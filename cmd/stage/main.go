// Command stage writes one raw provider payload into the staging area,
// named <source>_<timestamp>.json so the pipeline can pick it up. With S3
// upload enabled in configuration the file is also mirrored to object
// storage for raw-data retention.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/etl/backend/internal/infrastructure/config"
	"github.com/etl/backend/internal/infrastructure/logger"
	"github.com/etl/backend/internal/infrastructure/staging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stage: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	source := flag.String("source", "", "source system the payload came from (shopify, woocommerce, stripe, paypal)")
	file := flag.String("file", "", "path to the raw JSON payload")
	flag.Parse()

	if *source == "" || *file == "" {
		flag.Usage()
		return errors.New("-source and -file are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	// Reject non-JSON input before it lands in the staging area.
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse payload %s: %w", *file, err)
	}

	var opts []staging.StoreOption
	if cfg.S3.Enabled {
		uploader, err := staging.NewUploader(&cfg.S3, log)
		if err != nil {
			return fmt.Errorf("configure upload: %w", err)
		}
		opts = append(opts, staging.WithUploader(uploader))
	}
	store := staging.NewStore(cfg.Staging.Dir, log, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name, err := store.Save(ctx, *source, payload)
	if err != nil {
		return fmt.Errorf("stage payload: %w", err)
	}

	log.Info("payload staged",
		zap.String("source", *source),
		zap.String("file", name),
		zap.Bool("uploaded", cfg.S3.Enabled),
	)
	return nil
}
