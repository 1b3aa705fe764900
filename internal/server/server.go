package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photoGalleryAi/internal/auth"
	"photoGalleryAi/internal/config"
	"photoGalleryAi/internal/events"
	"photoGalleryAi/internal/gallery"
	"photoGalleryAi/internal/logging"
)

// Options collects what the HTTP layer needs.
type Options struct {
	App      config.AppConfig
	Gallery  gallery.Handler
	Events   *events.Broker
	Guard    *auth.AdminGuard
	Gatherer prometheus.Gatherer
	Logger   *logging.Logger
}

// NewRouter builds the chi router with middleware and routes.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.App.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", auth.HeaderAdminToken},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	h := opts.Gallery
	router.Route("/api", func(r chi.Router) {
		r.With(opts.Guard.Require).Post("/analyze-photos", h.AnalyzePhotos)
		r.Get("/gallery-data", h.GalleryData)
		r.Get("/search-photos", h.SearchPhotos)
		r.Post("/inpainting", h.Inpainting)
		r.With(opts.Guard.Require).Post("/save-generated-image", h.SaveGeneratedImage)
		if opts.Events != nil {
			r.Get("/events", events.Stream(opts.Events))
		}
	})

	if opts.App.StaticDir != "" {
		router.Handle("/*", http.FileServer(http.Dir(opts.App.StaticDir)))
	}
	return router
}

// New constructs the HTTP server with routes and middleware.
func New(opts Options) *http.Server {
	return &http.Server{
		Addr:         ":" + opts.App.Port,
		Handler:      NewRouter(opts),
		ReadTimeout:  opts.App.ReadTimeout,
		WriteTimeout: opts.App.WriteTimeout,
		IdleTimeout:  opts.App.IdleTimeout,
	}
}
