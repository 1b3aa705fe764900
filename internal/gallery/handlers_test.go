package gallery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoGalleryAi/internal/generation"
	"photoGalleryAi/internal/ingest"
	"photoGalleryAi/internal/media"
	"photoGalleryAi/internal/photos"
	"photoGalleryAi/internal/storage"
	"photoGalleryAi/internal/vision"
)

type stubGenerator struct {
	calls int
	url   string
}

func (s *stubGenerator) Generate(context.Context, string) (string, error) {
	s.calls++
	return s.url, nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) Describe(context.Context, []byte, string) (vision.Description, error) {
	return vision.Description{Text: "A bright kitchen. Categories: stove, sink"}, nil
}

type fixture struct {
	handler   Handler
	meta      storage.Store
	blobs     *media.LocalStore
	generator *stubGenerator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	blobs, err := media.NewLocalStore(t.TempDir(), "https://pub.example")
	require.NoError(t, err)
	meta := storage.NewInMemoryStore()
	catalog := photos.NewCatalog(meta)
	gen := &stubGenerator{url: "https://img.test/new.png"}
	return fixture{
		handler: Handler{
			Catalog:  catalog,
			Ingestor: ingest.New(ingest.Deps{Blobs: blobs, Catalog: catalog, Analyzer: stubAnalyzer{}}),
			Generation: generation.NewService(generation.Deps{
				Catalog:   catalog,
				Blobs:     blobs,
				Generator: gen,
				Clock:     func() time.Time { return time.UnixMilli(1700000000000) },
			}),
		},
		meta:      meta,
		blobs:     blobs,
		generator: gen,
	}
}

func (f fixture) putBlob(t *testing.T, key string) {
	t.Helper()
	_, err := f.blobs.Put(context.Background(), media.PutInput{Key: key, ContentType: "image/jpeg", Body: strings.NewReader("img")})
	require.NoError(t, err)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestInpaintingMissingPromptIs400(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`{"originalImageUrl":"https://pub.example/a.jpg"}`,
		`{"inpaintingPrompt":"add a lamp"}`,
		``,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/inpainting", strings.NewReader(body))
		f.handler.Inpainting(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		got := decode[map[string]string](t, rec)
		assert.Equal(t, map[string]string{"status": "error", "message": "Missing originalImageUrl or inpaintingPrompt"}, got)
	}
	assert.Zero(t, f.generator.calls)
}

func TestInpaintingReturnsImageURL(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/inpainting",
		strings.NewReader(`{"originalImageUrl":"https://pub.example/a.jpg","inpaintingPrompt":"add a lamp"}`))
	f.handler.Inpainting(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"imageUrl": "https://img.test/new.png"}, decode[map[string]string](t, rec))
	assert.Equal(t, 1, f.generator.calls)
}

func TestInpaintingMalformedJSON(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.Inpainting(rec, httptest.NewRequest(http.MethodPost, "/api/inpainting", strings.NewReader(`{"originalImageUrl":`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decode[map[string]string](t, rec)["message"])
}

func TestSaveGeneratedImage(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/save-generated-image", strings.NewReader(
		`{"imageData":"data:image/png;base64,QUJD","originalImageKey":"photo 1.jpg","promptUsed":"add a lamp"}`))
	f.handler.SaveGeneratedImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[map[string]string](t, rec)
	assert.Equal(t, "success", got["status"])
	assert.Regexp(t, `^generated/photo_1-\d+\.png$`, got["key"])
	assert.Equal(t, "https://pub.example/"+got["key"], got["publicUrl"])

	stored, err := f.blobs.Get(context.Background(), got["key"])
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC"), stored)

	raw, err := f.meta.Get(context.Background(), got["key"])
	require.NoError(t, err)
	record, err := photos.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, photos.TypeGenerated, record.Type)
	assert.Equal(t, "Generated", record.Room)
}

func TestSaveGeneratedImageRejectsBadData(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		body string
		msg  string
	}{
		{body: `{"promptUsed":"x"}`, msg: "Missing image data"},
		{body: `{"imageData":"iVBORw0KGgo=","promptUsed":"x"}`, msg: "Invalid image data format"},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		f.handler.SaveGeneratedImage(rec, httptest.NewRequest(http.MethodPost, "/api/save-generated-image", strings.NewReader(tc.body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, tc.msg, decode[map[string]string](t, rec)["message"])
	}
}

func TestAnalyzeThenGalleryAndSearch(t *testing.T) {
	f := newFixture(t)
	f.putBlob(t, "bedroom/b.jpg")
	f.putBlob(t, "a.jpg")
	f.putBlob(t, "generated/old-1.png")

	rec := httptest.NewRecorder()
	f.handler.AnalyzePhotos(rec, httptest.NewRequest(http.MethodPost, "/api/analyze-photos", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analyzed struct {
		Status  string           `json:"status"`
		Message string           `json:"message"`
		Details []ingest.Outcome `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analyzed))
	assert.Equal(t, "success", analyzed.Status)
	assert.Equal(t, "Photos analyzed", analyzed.Message)
	assert.Len(t, analyzed.Details, 2)

	rec = httptest.NewRecorder()
	f.handler.GalleryData(rec, httptest.NewRequest(http.MethodGet, "/api/gallery-data", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	gallery := decode[[]photos.Record](t, rec)
	require.Len(t, gallery, 2)
	assert.Equal(t, "bedroom/b.jpg", gallery[0].Key)
	assert.Equal(t, "bedroom", gallery[0].Room)
	assert.Equal(t, "a.jpg", gallery[1].Key)
	assert.Equal(t, "kitchen", gallery[1].Room)

	rec = httptest.NewRecorder()
	f.handler.SearchPhotos(rec, httptest.NewRequest(http.MethodGet, "/api/search-photos?query=KITCHEN", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	matches := decode[[]photos.Record](t, rec)
	// The bedroom photo's description also mentions the kitchen.
	assert.Len(t, matches, 2)

	rec = httptest.NewRecorder()
	f.handler.SearchPhotos(rec, httptest.NewRequest(http.MethodGet, "/api/search-photos?query=stove", nil))
	assert.Len(t, decode[[]photos.Record](t, rec), 2)

	rec = httptest.NewRecorder()
	f.handler.SearchPhotos(rec, httptest.NewRequest(http.MethodGet, "/api/search-photos", nil))
	assert.JSONEq(t, mustGallery(t, f), rec.Body.String())
}

func mustGallery(t *testing.T, f fixture) string {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.GalleryData(rec, httptest.NewRequest(http.MethodGet, "/api/gallery-data", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestGalleryDataEmptyIsArray(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.GalleryData(rec, httptest.NewRequest(http.MethodGet, "/api/gallery-data", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGalleryDataCorruptRecordIs500(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.meta.Put(context.Background(), "x.jpg", []byte("{")))
	rec := httptest.NewRecorder()
	f.handler.GalleryData(rec, httptest.NewRequest(http.MethodGet, "/api/gallery-data", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decode[map[string]string](t, rec)["status"])
}
