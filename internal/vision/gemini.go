package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultVisionModel   = "gemini-2.0-flash"
)

var geminiScopes = []string{
	"https://www.googleapis.com/auth/generative-language",
	"https://www.googleapis.com/auth/cloud-platform",
}

// GeminiAnalyzer implements Analyzer using Google's Generative Language API.
type GeminiAnalyzer struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	tokenSource oauth2.TokenSource
}

// NewGeminiAnalyzer constructs a Gemini-powered image analyzer. When tokenSource is set it
// takes precedence over the API key.
func NewGeminiAnalyzer(apiKey, model string, timeout time.Duration, tokenSource oauth2.TokenSource) *GeminiAnalyzer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiAnalyzer{
		apiKey:      strings.TrimSpace(apiKey),
		model:       normalizeGeminiModel(model),
		baseURL:     defaultGeminiBaseURL,
		client:      &http.Client{Timeout: timeout},
		tokenSource: tokenSource,
	}
}

// GoogleTokenSource builds an OAuth token source from a service account JSON document.
func GoogleTokenSource(ctx context.Context, credentialsJSON string) (oauth2.TokenSource, error) {
	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), geminiScopes...)
	if err != nil {
		return nil, fmt.Errorf("gemini: parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}

// Describe sends the image inline with the prompt and returns the joined candidate text.
func (g *GeminiAnalyzer) Describe(ctx context.Context, image []byte, prompt string) (Description, error) {
	if err := checkImage(image); err != nil {
		return Description{}, err
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{"text": prompt},
					{
						"inline_data": map[string]string{
							"mime_type": detectMime(image),
							"data":      base64.StdEncoding.EncodeToString(image),
						},
					},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature": 0.2,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Description{}, fmt.Errorf("gemini: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(g.baseURL, "/"), url.PathEscape(g.model))
	if g.tokenSource == nil {
		if g.apiKey == "" {
			return Description{}, fmt.Errorf("gemini: missing API key or service account credentials")
		}
		endpoint = fmt.Sprintf("%s?key=%s", endpoint, url.QueryEscape(g.apiKey))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Description{}, fmt.Errorf("gemini: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.tokenSource != nil {
		token, err := g.tokenSource.Token()
		if err != nil {
			return Description{}, fmt.Errorf("gemini: fetch oauth token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Description{}, fmt.Errorf("gemini: perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Description{}, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, upstreamError(resp))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Description{}, fmt.Errorf("gemini: read response: %w", err)
	}
	var completion struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &completion); err != nil {
		return Description{}, fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(completion.Candidates) == 0 {
		return Description{}, ErrEmptyDescription
	}

	var parts []string
	for _, part := range completion.Candidates[0].Content.Parts {
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return Description{}, ErrEmptyDescription
	}
	return Description{Text: strings.Join(parts, "\n\n"), Raw: rawJSON(raw)}, nil
}

func normalizeGeminiModel(model string) string {
	clean := strings.TrimSpace(model)
	clean = strings.TrimPrefix(clean, "models/")
	if clean == "" {
		return defaultVisionModel
	}
	return clean
}
