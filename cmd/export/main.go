package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"photoGalleryAi/internal/app"
	"photoGalleryAi/internal/config"
	"photoGalleryAi/internal/dataset"
	"photoGalleryAi/internal/photos"
)

func main() {
	var (
		outputPath = flag.String("out", "gallery.jsonl", "Where to write the JSONL export (- for stdout)")
		room       = flag.String("room", "", "Only export records in this room")
		recordType = flag.String("type", "", "Only export records of this type (original or generated)")
		skipFailed = flag.Bool("skip-failed", false, "Leave out records whose analysis failed")
	)
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.App, "photo-gallery-export")

	ctx := context.Background()
	a, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "export.stores_failed", err)
		os.Exit(1)
	}
	defer a.Close()

	records, err := a.Catalog.ListAll(ctx)
	if err != nil {
		logger.Error(ctx, "export.list_failed", err)
		os.Exit(1)
	}
	rows := dataset.BuildRows(records, dataset.Options{
		Room:       *room,
		Type:       photos.RecordType(strings.ToLower(strings.TrimSpace(*recordType))),
		SkipFailed: *skipFailed,
	})

	if err := write(*outputPath, rows); err != nil {
		logger.Error(ctx, "export.write_failed", err)
		os.Exit(1)
	}
	logger.Info(logger.WithFields(ctx, map[string]any{"rows": len(rows), "out": *outputPath}), "export.done")
}

func write(path string, rows []dataset.Row) error {
	var out io.Writer = os.Stdout
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	return dataset.WriteJSONL(out, rows)
}
