// Package app turns a loaded config into the stores and providers the entrypoints share.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"photoGalleryAi/internal/config"
	"photoGalleryAi/internal/events"
	"photoGalleryAi/internal/generation"
	"photoGalleryAi/internal/ingest"
	"photoGalleryAi/internal/logging"
	"photoGalleryAi/internal/media"
	"photoGalleryAi/internal/metrics"
	"photoGalleryAi/internal/photos"
	"photoGalleryAi/internal/storage"
	"photoGalleryAi/internal/vision"
)

// App holds the long-lived collaborators of one process.
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Blobs    media.Store
	Metadata storage.Store
	Catalog  *photos.Catalog
	Analyzer vision.Analyzer
	Images   vision.ImageGenerator
	Events   *events.Broker
	Registry *prometheus.Registry
	Metrics  *metrics.Gallery
}

// NewLogger builds the process logger from the app settings.
func NewLogger(cfg config.AppConfig, service string) *logging.Logger {
	return logging.New(logging.Options{
		ServiceName: service,
		Level:       logging.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})
}

// OpenStores connects the blob and metadata stores only. Providers stay unset.
func OpenStores(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	blobs, err := NewBlobStore(ctx, cfg.Media)
	if err != nil {
		return nil, err
	}
	meta, err := storage.NewStore(ctx, storage.Config{
		DatabaseURL: cfg.Metadata.DatabaseURL,
		RedisURL:    cfg.Metadata.RedisURL,
		Namespace:   cfg.Metadata.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("metadata store: %w", err)
	}
	logger.Info(logger.WithFields(ctx, map[string]any{
		"blob_store":     backendName(cfg.Media.Bucket != "", "s3", "local"),
		"metadata_store": metadataBackend(cfg.Metadata),
	}), "stores.ready")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Blobs:    blobs,
		Metadata: meta,
		Catalog:  photos.NewCatalog(meta),
		Events:   events.NewBroker(),
		Registry: registry,
		Metrics:  metrics.NewGallery(registry),
	}, nil
}

// Bootstrap opens the stores and builds the configured vision and image providers.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	analyzer, err := NewAnalyzer(ctx, cfg.Vision)
	if err != nil {
		a.Close()
		return nil, err
	}
	images, err := NewImageGenerator(cfg.Images, a.Blobs)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Analyzer = analyzer
	a.Images = images
	a.Logger.Info(a.Logger.WithFields(ctx, map[string]any{
		"vision_provider": cfg.Vision.Provider,
		"image_provider":  cfg.Images.Provider,
	}), "providers.ready")
	return a, nil
}

// Ingestor returns an ingestion runner wired to the app's stores and analyzer.
func (a *App) Ingestor() *ingest.Ingestor {
	return ingest.New(ingest.Deps{
		Blobs:    a.Blobs,
		Catalog:  a.Catalog,
		Analyzer: a.Analyzer,
		Events:   a.Events,
		Metrics:  a.Metrics,
		Logger:   a.Logger,
	})
}

// Generation returns the image generation service.
func (a *App) Generation() *generation.Service {
	return generation.NewService(generation.Deps{
		Catalog:   a.Catalog,
		Blobs:     a.Blobs,
		Generator: a.Images,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})
}

// Close releases the metadata store connection.
func (a *App) Close() {
	if a.Metadata != nil {
		a.Metadata.Close()
	}
}

// NewBlobStore picks S3 when a bucket is configured and the local directory otherwise.
func NewBlobStore(ctx context.Context, cfg config.MediaConfig) (media.Store, error) {
	if cfg.Bucket != "" {
		store, err := media.NewS3Store(ctx, media.Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			PublicURL:       cfg.PublicURL,
			KeyPrefix:       cfg.KeyPrefix,
			ForcePathStyle:  cfg.ForcePathStyle,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 media store: %w", err)
		}
		return store, nil
	}
	store, err := media.NewLocalStore(cfg.LocalDir, cfg.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("local media store: %w", err)
	}
	return store, nil
}

// NewAnalyzer builds the configured vision provider.
func NewAnalyzer(ctx context.Context, cfg config.VisionConfig) (vision.Analyzer, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for VISION_PROVIDER=openai")
		}
		return vision.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.Model, cfg.Timeout), nil
	case "gemini", "":
		if cfg.GeminiAPIKey != "" {
			return vision.NewGeminiAnalyzer(cfg.GeminiAPIKey, cfg.Model, cfg.Timeout, nil), nil
		}
		if cfg.GoogleCredentialsJSON == "" {
			return nil, errors.New("GEMINI_API_KEY or GOOGLE_CREDENTIALS_JSON is required for VISION_PROVIDER=gemini")
		}
		tokens, err := vision.GoogleTokenSource(ctx, cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, err
		}
		return vision.NewGeminiAnalyzer("", cfg.Model, cfg.Timeout, tokens), nil
	default:
		return nil, fmt.Errorf("unsupported VISION_PROVIDER %q", cfg.Provider)
	}
}

// NewImageGenerator builds the configured image provider. Gemini and Imagen renders are
// written to blobs.
func NewImageGenerator(cfg config.ImagesConfig, blobs media.Store) (vision.ImageGenerator, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for IMAGE_PROVIDER=openai")
		}
		return vision.NewOpenAIImageGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAISize, cfg.Timeout), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required for IMAGE_PROVIDER=gemini")
		}
		return vision.NewGeminiImageGenerator(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout, blobs), nil
	case "imagen":
		if cfg.Vertex.ProjectID == "" {
			return nil, errors.New("VERTEX_PROJECT_ID is required for IMAGE_PROVIDER=imagen")
		}
		return vision.NewVertexImagen(vision.VertexImagenConfig{
			ProjectID:          cfg.Vertex.ProjectID,
			Location:           cfg.Vertex.Location,
			Model:              cfg.Vertex.Model,
			GenerateModel:      cfg.Vertex.GenerateModel,
			APIKey:             cfg.Vertex.APIKey,
			ServiceAccount:     cfg.Vertex.ServiceAccount,
			ServiceAccountJSON: cfg.Vertex.ServiceAccountJSON,
		}, blobs), nil
	default:
		return nil, fmt.Errorf("unsupported IMAGE_PROVIDER %q", cfg.Provider)
	}
}

func metadataBackend(cfg config.MetadataConfig) string {
	switch {
	case cfg.RedisURL != "":
		return "redis"
	case cfg.DatabaseURL != "":
		return "postgres"
	default:
		return "memory"
	}
}

func backendName(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
