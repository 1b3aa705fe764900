package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoGalleryAi/internal/auth"
	"photoGalleryAi/internal/config"
	"photoGalleryAi/internal/events"
	"photoGalleryAi/internal/gallery"
	"photoGalleryAi/internal/ingest"
	"photoGalleryAi/internal/media"
	"photoGalleryAi/internal/metrics"
	"photoGalleryAi/internal/photos"
	"photoGalleryAi/internal/storage"
	"photoGalleryAi/internal/vision"
)

type captionAnalyzer struct{}

func (captionAnalyzer) Describe(context.Context, []byte, string) (vision.Description, error) {
	return vision.Description{Text: "A cozy living room."}, nil
}

func newRouter(t *testing.T, guard *auth.AdminGuard, staticDir string) http.Handler {
	t.Helper()
	blobs, err := media.NewLocalStore(t.TempDir(), "https://pub.example")
	require.NoError(t, err)
	catalog := photos.NewCatalog(storage.NewInMemoryStore())
	reg := prometheus.NewRegistry()
	ingestor := ingest.New(ingest.Deps{
		Blobs:    blobs,
		Catalog:  catalog,
		Analyzer: captionAnalyzer{},
		Metrics:  metrics.NewGallery(reg),
	})
	return NewRouter(Options{
		App:      config.AppConfig{AllowedOrigins: []string{"https://app.example"}, StaticDir: staticDir},
		Gallery:  gallery.Handler{Catalog: catalog, Ingestor: ingestor},
		Events:   events.NewBroker(),
		Guard:    guard,
		Gatherer: reg,
	})
}

func TestHealth(t *testing.T) {
	router := newRouter(t, nil, "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGalleryRoutesAreMounted(t *testing.T) {
	router := newRouter(t, nil, "")
	for _, path := range []string{"/api/gallery-data", "/api/search-photos?query=x"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `[]`, rec.Body.String(), path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/inpainting", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	hash, err := auth.HashToken("letmein")
	require.NoError(t, err)
	router := newRouter(t, auth.NewAdminGuard(hash), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze-photos", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/save-generated-image", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-photos", nil)
	req.Header.Set(auth.HeaderAdminToken, "letmein")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "photo_ingest_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(t, nil, "")
	req := httptest.NewRequest(http.MethodOptions, "/api/inpainting", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticFrontend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>gallery</h1>"), 0o644))
	router := newRouter(t, nil, dir)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gallery")
}
