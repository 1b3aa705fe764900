package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Gallery records ingestion and image generation activity.
type Gallery struct {
	ingestItems    *prometheus.CounterVec
	ingestDuration prometheus.Histogram
	generations    *prometheus.CounterVec
	persisted      prometheus.Counter
}

// NewGallery registers the gallery metrics on the provided registerer. A nil registerer
// yields a recorder that drops every observation.
func NewGallery(reg prometheus.Registerer) *Gallery {
	if reg == nil {
		return &Gallery{}
	}
	ingestItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "photo_ingest_items_total",
		Help: "Photos handled by ingestion runs, by outcome.",
	}, []string{"status"})
	ingestDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "photo_ingest_duration_seconds",
		Help:    "Duration of full ingestion runs in seconds.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})
	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "photo_generations_total",
		Help: "Image generation requests, by result.",
	}, []string{"result"})
	persisted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photo_generated_saved_total",
		Help: "Generated images persisted to the gallery.",
	})
	reg.MustRegister(ingestItems, ingestDuration, generations, persisted)
	return &Gallery{
		ingestItems:    ingestItems,
		ingestDuration: ingestDuration,
		generations:    generations,
		persisted:      persisted,
	}
}

// IncIngestItem counts one ingestion outcome.
func (g *Gallery) IncIngestItem(status string) {
	if g == nil || g.ingestItems == nil {
		return
	}
	g.ingestItems.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveIngest records how long a run took.
func (g *Gallery) ObserveIngest(d time.Duration) {
	if g == nil || g.ingestDuration == nil {
		return
	}
	g.ingestDuration.Observe(d.Seconds())
}

// IncGeneration counts one generation request by result ("success" or "failure").
func (g *Gallery) IncGeneration(result string) {
	if g == nil || g.generations == nil {
		return
	}
	g.generations.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncPersisted counts one saved generated image.
func (g *Gallery) IncPersisted() {
	if g == nil || g.persisted == nil {
		return
	}
	g.persisted.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
