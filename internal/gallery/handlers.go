// Package gallery exposes the photo gallery over HTTP.
package gallery

import (
	"encoding/json"
	"net/http"

	"photoGalleryAi/internal/apperr"
	"photoGalleryAi/internal/generation"
	"photoGalleryAi/internal/ingest"
	"photoGalleryAi/internal/logging"
	"photoGalleryAi/internal/photos"
)

const analyzedMessage = "Photos analyzed"

// Handler bundles dependencies for the gallery endpoints.
type Handler struct {
	Catalog    *photos.Catalog
	Ingestor   *ingest.Ingestor
	Generation *generation.Service
	Logger     *logging.Logger
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type analyzeResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Details []ingest.Outcome `json:"details"`
}

type savedResponse struct {
	Status    string `json:"status"`
	Key       string `json:"key"`
	PublicURL string `json:"publicUrl"`
}

// AnalyzePhotos handles POST /api/analyze-photos. The run continues even if the client
// goes away.
func (h Handler) AnalyzePhotos(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.Ingestor.Run(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		Status:  "success",
		Message: analyzedMessage,
		Details: outcomes,
	})
}

// GalleryData handles GET /api/gallery-data.
func (h Handler) GalleryData(w http.ResponseWriter, r *http.Request) {
	records, err := h.Catalog.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// SearchPhotos handles GET /api/search-photos?query=.
func (h Handler) SearchPhotos(w http.ResponseWriter, r *http.Request) {
	records, err := h.Catalog.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Inpainting handles POST /api/inpainting.
func (h Handler) Inpainting(w http.ResponseWriter, r *http.Request) {
	var req InpaintingRequest
	if err := decodeBody(r, &req, generation.MsgMissingGenerateInput); err != nil {
		h.writeError(w, r, err)
		return
	}
	url, err := h.Generation.Generate(r.Context(), req.OriginalImageURL, req.InpaintingPrompt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": url})
}

// SaveGeneratedImage handles POST /api/save-generated-image.
func (h Handler) SaveGeneratedImage(w http.ResponseWriter, r *http.Request) {
	var req SaveGeneratedRequest
	if err := decodeBody(r, &req, generation.MsgMissingImageData); err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := h.Generation.Persist(r.Context(), generation.PersistInput{
		ImageData:        req.ImageData,
		OriginalImageKey: req.OriginalImageKey,
		PromptUsed:       req.PromptUsed,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, savedResponse{Status: "success", Key: saved.Key, PublicURL: saved.PublicURL})
}

func (h Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error(h.Logger.WithField(r.Context(), "path", r.URL.Path), "request.failed", err)
	}
	writeJSON(w, status, errorResponse{Status: "error", Message: apperr.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
