// Package generation produces edited variants of gallery photos and saves them back.
package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"photoGalleryAi/internal/apperr"
	"photoGalleryAi/internal/logging"
	"photoGalleryAi/internal/media"
	"photoGalleryAi/internal/metrics"
	"photoGalleryAi/internal/photos"
	"photoGalleryAi/internal/prompts"
	"photoGalleryAi/internal/vision"
)

const (
	MsgMissingGenerateInput = "Missing originalImageUrl or inpaintingPrompt"
	MsgMissingImageData     = "Missing image data"
	MsgInvalidImageData     = "Invalid image data format"

	defaultSafeName = "image"
)

var (
	dataURIPattern   = regexp.MustCompile(`^data:(image/(.+));base64,(.*)$`)
	unsafeKeyChars   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	trailingExtRegex = regexp.MustCompile(`\.[^/.]+$`)
)

// Deps are the collaborators of a Service. Metrics and Clock are optional.
type Deps struct {
	Catalog   *photos.Catalog
	Blobs     media.Store
	Generator vision.ImageGenerator
	Metrics   *metrics.Gallery
	Logger    *logging.Logger
	Clock     func() time.Time
}

// Service generates and persists edited images.
type Service struct {
	deps Deps
}

// NewService wires a Service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{deps: deps}
}

// PersistInput is a generated image handed back by the client for saving.
type PersistInput struct {
	ImageData        string
	OriginalImageKey string
	PromptUsed       string
}

// PersistResult locates a saved generated image.
type PersistResult struct {
	Key       string `json:"key"`
	PublicURL string `json:"publicUrl"`
}

// Generate asks the image provider for a variant of the photo at originalImageURL and
// returns the URL of the result. An unknown URL degrades to a generic description of the
// source. When the provider can edit and the source is known, its bytes are sent along.
func (s *Service) Generate(ctx context.Context, originalImageURL, instruction string) (string, error) {
	if originalImageURL == "" || instruction == "" {
		return "", apperr.Validation(MsgMissingGenerateInput)
	}
	logg := s.deps.Logger
	ctx = logg.WithField(ctx, "original_url", originalImageURL)

	rec, found, err := s.deps.Catalog.FindByPublicURL(ctx, originalImageURL)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeDependency, err, "lookup original image")
	}
	description := prompts.DefaultSourceDescription
	if found && rec.Description() != "" {
		description = rec.Description()
	}
	if !found {
		logg.Debug(ctx, "generation.original_not_found")
	}
	prompt := prompts.Generation(description, instruction)

	url, err := s.render(ctx, rec, found, prompt)
	if err != nil {
		s.deps.Metrics.IncGeneration("failure")
		logg.Error(ctx, "generation.failed", err)
		return "", apperr.Wrap(apperr.CodeDependency, err, "image generation failed")
	}
	s.deps.Metrics.IncGeneration("success")
	return url, nil
}

func (s *Service) render(ctx context.Context, rec photos.Record, found bool, prompt string) (string, error) {
	editor, canEdit := s.deps.Generator.(vision.ImageEditor)
	if canEdit && found {
		source, err := s.deps.Blobs.Get(ctx, rec.Key)
		if err == nil {
			return editor.Edit(ctx, prompt, source)
		}
		s.deps.Logger.Warn(s.deps.Logger.WithField(ctx, "key", rec.Key), "generation.source_unavailable")
	}
	return s.deps.Generator.Generate(ctx, prompt)
}

// Persist decodes a data URI, stores the image under a fresh generated/ key and writes its
// metadata record. Every call creates a new key.
func (s *Service) Persist(ctx context.Context, in PersistInput) (PersistResult, error) {
	if in.ImageData == "" {
		return PersistResult{}, apperr.Validation(MsgMissingImageData)
	}
	m := dataURIPattern.FindStringSubmatch(in.ImageData)
	if m == nil {
		return PersistResult{}, apperr.Validation(MsgInvalidImageData)
	}
	mimeType, ext, payload := m[1], m[2], m[3]
	data, err := decodePayload(payload)
	if err != nil {
		return PersistResult{}, apperr.Validation(MsgInvalidImageData)
	}

	now := s.deps.Clock()
	key := GeneratedKey(in.OriginalImageKey, now, ext)

	if _, err := s.deps.Blobs.Put(ctx, media.PutInput{
		Key:         key,
		ContentType: mimeType,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
	}); err != nil {
		return PersistResult{}, apperr.Wrap(apperr.CodeDependency, err, "store generated image")
	}

	publicURL := s.deps.Blobs.PublicURL(key)
	rec := photos.Record{
		Key:       key,
		PublicURL: publicURL,
		Type:      photos.TypeGenerated,
		Analysis: &photos.Analysis{
			Description: prompts.GeneratedDescription(in.PromptUsed, in.OriginalImageKey),
		},
		Room:         photos.RoomGenerated,
		Categories:   []string{},
		LastModified: now.UTC(),
		Lineage: &photos.Lineage{
			OriginalImageKey: in.OriginalImageKey,
			PromptUsed:       in.PromptUsed,
		},
	}
	if err := s.deps.Catalog.Save(ctx, rec); err != nil {
		return PersistResult{}, apperr.Wrap(apperr.CodeDependency, err, "save generated metadata")
	}

	s.deps.Metrics.IncPersisted()
	s.deps.Logger.Info(s.deps.Logger.WithField(ctx, "key", key), "generation.saved")
	return PersistResult{Key: key, PublicURL: publicURL}, nil
}

// decodePayload decodes base64 leniently: ASCII whitespace is ignored and padding is
// optional.
func decodePayload(payload string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\f', '\r':
			return -1
		}
		return r
	}, payload)
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(compact, "="))
}

// GeneratedKey builds generated/<sanitized original>-<unix millis>.<ext>.
func GeneratedKey(originalKey string, at time.Time, ext string) string {
	safe := defaultSafeName
	if originalKey != "" {
		safe = trailingExtRegex.ReplaceAllString(unsafeKeyChars.ReplaceAllString(originalKey, "_"), "")
	}
	return fmt.Sprintf("%s%s-%s.%s", photos.GeneratedPrefix, safe, strconv.FormatInt(at.UnixMilli(), 10), ext)
}
