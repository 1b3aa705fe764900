package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"photoGalleryAi/internal/app"
	"photoGalleryAi/internal/auth"
	"photoGalleryAi/internal/config"
	"photoGalleryAi/internal/gallery"
	"photoGalleryAi/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	hashToken := flag.String("hash-token", "", "Print the bcrypt hash of this admin token for ADMIN_TOKEN_HASH and exit")
	flag.Parse()
	if *hashToken != "" {
		hash, err := auth.HashToken(*hashToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hash token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.App, "photo-gallery-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "bootstrap.failed", err)
		os.Exit(1)
	}
	defer a.Close()

	guard := auth.NewAdminGuard(cfg.App.AdminTokenHash)
	if !guard.Enabled() {
		logger.Warn(ctx, "admin token not configured; mutating routes are open")
	}

	srv := server.New(server.Options{
		App: cfg.App,
		Gallery: gallery.Handler{
			Catalog:    a.Catalog,
			Ingestor:   a.Ingestor(),
			Generation: a.Generation(),
			Logger:     logger,
		},
		Events:   a.Events,
		Guard:    guard,
		Gatherer: a.Registry,
		Logger:   logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info(logger.WithField(ctx, "addr", srv.Addr), "server.ready")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "server.failed", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "server.shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "server.shutdown_failed", err)
		}
	}
}
