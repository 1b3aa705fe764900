package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"photoGalleryAi/internal/media"
)

// ImageGenerator renders one image for a text prompt and returns where it can be fetched.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageEditor renders a variant of a source image. Providers that support editing implement
// it alongside ImageGenerator.
type ImageEditor interface {
	Edit(ctx context.Context, prompt string, source []byte) (string, error)
}

// ErrMissingImageURL is returned when the provider answered without an image location.
var ErrMissingImageURL = errors.New("OpenAI response did not contain a valid image URL")

// RenderPrefix is where renders that a provider returns as bytes are stored.
const RenderPrefix = "generated/renders/"

const (
	defaultOpenAIImageModel = "dall-e-3"
	defaultOpenAIImageSize  = "1024x1024"
	defaultGeminiImageModel = "gemini-2.5-flash-image"
)

// OpenAIImageGenerator calls the OpenAI images API and returns the hosted URL.
type OpenAIImageGenerator struct {
	apiKey  string
	model   string
	size    string
	baseURL string
	client  *http.Client
}

// NewOpenAIImageGenerator constructs a DALL-E client.
func NewOpenAIImageGenerator(apiKey, model, size string, timeout time.Duration) *OpenAIImageGenerator {
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIImageModel
	}
	if strings.TrimSpace(size) == "" {
		size = defaultOpenAIImageSize
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIImageGenerator{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		size:    size,
		baseURL: defaultOpenAIBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate requests exactly one image as a URL.
func (o *OpenAIImageGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":           o.model,
		"prompt":          prompt,
		"n":               1,
		"size":            o.size,
		"response_format": "url",
	})
	if err != nil {
		return "", fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(o.baseURL, "/")+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("OpenAI API error: %s", upstreamError(resp))
	}

	var result struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(result.Data) == 0 || strings.TrimSpace(result.Data[0].URL) == "" {
		return "", ErrMissingImageURL
	}
	return result.Data[0].URL, nil
}

// GeminiImageGenerator renders images via Gemini image outputs and stores them in the blob
// store, since the API returns inline bytes rather than a hosted URL.
type GeminiImageGenerator struct {
	apiKey  string
	model   string
	timeout time.Duration
	baseURL string
	store   media.Store
}

// NewGeminiImageGenerator constructs a generator able to request inline images.
func NewGeminiImageGenerator(apiKey, model string, timeout time.Duration, store media.Store) *GeminiImageGenerator {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiImageModel
	}
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiImageGenerator{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		timeout: timeout,
		store:   store,
	}
}

// Generate requests one image for the prompt and returns the public URL of the stored render.
func (g *GeminiImageGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.render(ctx, genai.Text(prompt))
}

// Edit sends the source image along with the prompt.
func (g *GeminiImageGenerator) Edit(ctx context.Context, prompt string, source []byte) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(source, detectMime(source)),
		}, genai.RoleUser),
	}
	return g.render(ctx, contents)
}

func (g *GeminiImageGenerator) render(ctx context.Context, contents []*genai.Content) (string, error) {
	if g.apiKey == "" || g.store == nil {
		return "", fmt.Errorf("gemini image generator unavailable")
	}

	childCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.ClientConfig{APIKey: g.apiKey, Backend: genai.BackendGeminiAPI}
	if g.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(childCtx, cfg)
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	resp, err := client.Models.GenerateContent(childCtx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini image generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini image generation returned no candidates")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := strings.TrimSpace(part.InlineData.MIMEType)
		if mime == "" {
			mime = "image/png"
		}
		return storeRender(ctx, g.store, part.InlineData.Data, mime)
	}
	return "", fmt.Errorf("gemini image generation returned no image data")
}

// storeRender writes provider bytes to the blob store under RenderPrefix.
func storeRender(ctx context.Context, store media.Store, data []byte, mime string) (string, error) {
	ext := strings.TrimPrefix(mime, "image/")
	if ext == "" || ext == mime {
		ext = "png"
	}
	result, err := store.Put(ctx, media.PutInput{
		Key:         RenderPrefix + uuid.NewString() + "." + ext,
		ContentType: mime,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
	})
	if err != nil {
		return "", fmt.Errorf("store render: %w", err)
	}
	return result.URL, nil
}
