// Package ingest runs the batch that tags every uploaded photo with a vision model.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"photoGalleryAi/internal/events"
	"photoGalleryAi/internal/logging"
	"photoGalleryAi/internal/media"
	"photoGalleryAi/internal/metrics"
	"photoGalleryAi/internal/photos"
	"photoGalleryAi/internal/prompts"
	"photoGalleryAi/internal/tagging"
	"photoGalleryAi/internal/vision"
)

// Status is the per-photo result of an ingestion run.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// FailedDescription is the placeholder written when the vision model could not be reached.
const FailedDescription = "AI analysis failed."

// Outcome reports what happened to one blob.
type Outcome struct {
	Key    string            `json:"key"`
	Status Status            `json:"status"`
	Room   string            `json:"room,omitempty"`
	Type   photos.RecordType `json:"type,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Deps are the collaborators of an Ingestor. Events and Metrics are optional.
type Deps struct {
	Blobs    media.Store
	Catalog  *photos.Catalog
	Analyzer vision.Analyzer
	Events   *events.Broker
	Metrics  *metrics.Gallery
	Logger   *logging.Logger
}

// Ingestor walks the blob store and writes one metadata record per original photo.
type Ingestor struct {
	deps Deps
}

// New wires an Ingestor.
func New(deps Deps) *Ingestor {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	return &Ingestor{deps: deps}
}

// Run processes every original photo sequentially and returns one outcome per photo.
// A failure on one photo never aborts the run; only a failed blob listing does. The run
// ignores cancellation of ctx once started.
func (i *Ingestor) Run(ctx context.Context) ([]Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	defer func() { i.deps.Metrics.ObserveIngest(time.Since(started)) }()

	objects, err := i.deps.Blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}

	outcomes := make([]Outcome, 0, len(objects))
	for _, obj := range objects {
		if !Eligible(obj.Key) {
			continue
		}
		outcome := i.ingestOne(ctx, obj)
		i.deps.Metrics.IncIngestItem(string(outcome.Status))
		i.deps.Events.Publish(events.Event{
			Key:    outcome.Key,
			Status: string(outcome.Status),
			Room:   outcome.Room,
			Type:   string(outcome.Type),
			Error:  outcome.Error,
		})
		outcomes = append(outcomes, outcome)
	}

	i.deps.Logger.Info(i.deps.Logger.WithFields(ctx, map[string]any{
		"items":       len(outcomes),
		"duration_ms": time.Since(started).Milliseconds(),
	}), "ingest.complete")
	return outcomes, nil
}

// Failures combines the errors of every failed outcome, or returns nil when none failed.
func Failures(outcomes []Outcome) error {
	var combined error
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			combined = multierr.Append(combined, fmt.Errorf("%s: %s", o.Key, o.Error))
		}
	}
	return combined
}

// Eligible reports whether a blob key should be analysed: directory markers and generated
// images are left alone.
func Eligible(key string) bool {
	return !media.IsDirectoryMarker(key) && photos.TypeForKey(key) == photos.TypeOriginal
}

func (i *Ingestor) ingestOne(ctx context.Context, obj media.Object) Outcome {
	logg := i.deps.Logger
	ctx = logg.WithField(ctx, "key", obj.Key)

	image, err := i.deps.Blobs.Get(ctx, obj.Key)
	if err != nil {
		if errors.Is(err, media.ErrObjectNotFound) {
			logg.Warn(ctx, "ingest.blob_missing")
			return Outcome{Key: obj.Key, Status: StatusSkipped}
		}
		logg.Error(ctx, "ingest.blob_read_failed", err)
		return Outcome{Key: obj.Key, Status: StatusFailed, Error: err.Error()}
	}

	rec := Analyze(ctx, i.deps.Analyzer, obj.Key, image)
	rec.PublicURL = i.deps.Blobs.PublicURL(obj.Key)
	rec.LastModified = obj.Uploaded
	if rec.Analysis.Error != "" {
		logg.Error(ctx, "ingest.analysis_failed", errors.New(rec.Analysis.Error))
	}

	if err := i.deps.Catalog.Save(ctx, rec); err != nil {
		logg.Error(ctx, "ingest.save_failed", err)
		return Outcome{Key: obj.Key, Status: StatusFailed, Room: rec.Room, Type: rec.Type, Error: err.Error()}
	}
	return Outcome{Key: obj.Key, Status: StatusProcessed, Room: rec.Room, Type: rec.Type}
}

// Analyze builds the original-photo record for key from a vision description of image.
// Inference failures are embedded in the record rather than returned.
func Analyze(ctx context.Context, analyzer vision.Analyzer, key string, image []byte) photos.Record {
	rec := photos.Record{
		Key:        key,
		Type:       photos.TypeOriginal,
		Room:       photos.RoomUncategorized,
		Categories: []string{},
	}

	desc, err := analyzer.Describe(ctx, image, prompts.Analysis(key))
	if err != nil {
		rec.Analysis = &photos.Analysis{Description: FailedDescription, Error: err.Error()}
		return rec
	}

	tags := tagging.Tag(key, desc.Text)
	rec.Room = tags.Room
	if tags.Categories != nil {
		rec.Categories = tags.Categories
	}
	rec.Analysis = &photos.Analysis{
		Description:         desc.Text,
		RawAIResponse:       desc.Raw,
		ExtractedRoom:       rec.Room,
		ExtractedCategories: rec.Categories,
	}
	return rec
}
