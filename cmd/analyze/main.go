package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"photoGalleryAi/internal/app"
	"photoGalleryAi/internal/config"
	"photoGalleryAi/internal/ingest"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.App, "photo-gallery-analyze")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "bootstrap.failed", err)
		os.Exit(1)
	}
	defer a.Close()

	outcomes, err := a.Ingestor().Run(ctx)
	if err != nil {
		logger.Error(ctx, "analyze.failed", err)
		os.Exit(1)
	}

	counts := map[ingest.Status]int{}
	for _, o := range outcomes {
		counts[o.Status]++
	}
	logger.Info(logger.WithFields(ctx, map[string]any{
		"processed": counts[ingest.StatusProcessed],
		"skipped":   counts[ingest.StatusSkipped],
		"failed":    counts[ingest.StatusFailed],
	}), "analyze.done")

	if failures := ingest.Failures(outcomes); failures != nil {
		for _, err := range multierr.Errors(failures) {
			logger.Error(ctx, "analyze.item_failed", err)
		}
		os.Exit(1)
	}
}
