package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenAIVisionModel = "gpt-4o-mini"
)

// OpenAIAnalyzer implements Analyzer with the chat completions API and an inline image.
type OpenAIAnalyzer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIAnalyzer constructs an OpenAI vision client.
func NewOpenAIAnalyzer(apiKey, model string, timeout time.Duration) *OpenAIAnalyzer {
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIVisionModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIAnalyzer{
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		baseURL: defaultOpenAIBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

// Describe asks the chat model about the image and returns the first choice.
func (o *OpenAIAnalyzer) Describe(ctx context.Context, image []byte, prompt string) (Description, error) {
	if err := checkImage(image); err != nil {
		return Description{}, err
	}
	if o.apiKey == "" {
		return Description{}, fmt.Errorf("openai: missing API key")
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", detectMime(image), base64.StdEncoding.EncodeToString(image))
	payload := map[string]any{
		"model":       o.model,
		"temperature": 0.2,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []chatContentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &chatImageURL{URL: dataURI}},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Description{}, fmt.Errorf("openai: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(o.baseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Description{}, fmt.Errorf("openai: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return Description{}, fmt.Errorf("openai: perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Description{}, fmt.Errorf("openai: status %d: %s", resp.StatusCode, upstreamError(resp))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Description{}, fmt.Errorf("openai: read response: %w", err)
	}
	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &completion); err != nil {
		return Description{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Description{}, ErrEmptyDescription
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return Description{}, ErrEmptyDescription
	}
	return Description{Text: text, Raw: rawJSON(raw)}, nil
}
